package channels

import (
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/acegen/internal/models"
	"github.com/desertthunder/acegen/internal/shared"
	"github.com/dlclark/regexp2"
)

// categoryRule rewrites a matching category label to a fixed replacement.
type categoryRule struct {
	rx       *regexp2.Regexp
	category string
}

// nameRule replaces the whole category set of channels whose name matches.
type nameRule struct {
	rx         *regexp2.Regexp
	categories []string
}

// ruleSet holds one destination's rules with the regular expressions
// compiled. Map-backed rules are ordered by pattern so repeated runs apply
// them identically.
type ruleSet struct {
	cfg             shared.FilterRules
	categoryMap     []categoryRule
	nameCategoryMap []nameRule
	nameAllow       []*regexp2.Regexp
	nameBlock       []*regexp2.Regexp
}

func compileRules(cfg shared.FilterRules) (*ruleSet, error) {
	s := &ruleSet{cfg: cfg}

	for _, pattern := range sortedKeys(cfg.CategoryMap) {
		rx, err := regexp2.Compile(pattern, regexp2.RE2)
		if err != nil {
			return nil, fmt.Errorf("category_map %q: %w", pattern, err)
		}
		s.categoryMap = append(s.categoryMap, categoryRule{rx: rx, category: cfg.CategoryMap[pattern]})
	}

	for _, pattern := range sortedKeys(cfg.NameCategoryMap) {
		rx, err := regexp2.Compile(pattern, regexp2.RE2)
		if err != nil {
			return nil, fmt.Errorf("name_category_map %q: %w", pattern, err)
		}
		s.nameCategoryMap = append(s.nameCategoryMap, nameRule{rx: rx, categories: cfg.NameCategoryMap[pattern]})
	}

	for _, pattern := range cfg.NameAllow {
		rx, err := regexp2.Compile(pattern, regexp2.RE2)
		if err != nil {
			return nil, fmt.Errorf("name_allow %q: %w", pattern, err)
		}
		s.nameAllow = append(s.nameAllow, rx)
	}

	for _, pattern := range cfg.NameBlock {
		rx, err := regexp2.Compile(pattern, regexp2.RE2)
		if err != nil {
			return nil, fmt.Errorf("name_block %q: %w", pattern, err)
		}
		s.nameBlock = append(s.nameBlock, rx)
	}

	return s, nil
}

// RemapCategories rewrites channel categories using the destination's
// category_map and name_category_map rules and returns the rewritten slice.
// Patterns match the labels as fetched; every matching rule applies in
// pattern order, so with overlapping rules the last one wins.
func (r *Repository) RemapCategories(channels []models.Channel, dest shared.Destination) []models.Channel {
	rules := r.rules[dest.OutputPath]
	if rules == nil || (len(rules.categoryMap) == 0 && len(rules.nameCategoryMap) == 0) {
		return channels
	}

	remapped := make([]models.Channel, len(channels))
	changed := 0
	for i, ch := range channels {
		labels := splitLabels(ch.Category)
		for j, label := range labels {
			mapped := label
			for _, rule := range rules.categoryMap {
				if ok, _ := rule.rx.MatchString(label); ok {
					mapped = rule.category
				}
			}
			if mapped != label {
				changed++
			}
			labels[j] = mapped
		}

		for _, rule := range rules.nameCategoryMap {
			if ok, _ := rule.rx.MatchString(ch.Name); ok {
				labels = append([]string(nil), rule.categories...)
				changed++
			}
		}

		ch.Category = normalizeLabels(labels)
		remapped[i] = ch
	}

	r.logger.Debugf("remapped %d categories for %s", changed, dest.Name)
	return remapped
}

// IsAllowed reports whether channel passes the destination's filter rules.
// Rejections are logged at debug level with the failing rule.
func (r *Repository) IsAllowed(channel models.Channel, dest shared.Destination) bool {
	rules := r.rules[dest.OutputPath]
	if rules == nil {
		return true
	}

	if reason := rules.deny(channel); reason != "" {
		r.logger.Debugf("rejected %q for %s: %s", channel.Name, dest.Name, reason)
		return false
	}
	return true
}

// deny returns the reason channel fails the rules, or "" when it passes.
// Checks run cheapest first; name patterns are last.
func (s *ruleSet) deny(ch models.Channel) string {
	if len(s.cfg.Status) > 0 && !slices.Contains(s.cfg.Status, ch.Status) {
		return fmt.Sprintf("status %d not allowed", ch.Status)
	}
	if ch.Availability < s.cfg.AvailabilityMin {
		return fmt.Sprintf("availability %.2f below %.2f", ch.Availability, s.cfg.AvailabilityMin)
	}
	if s.cfg.AvailabilityMaxAge > 0 {
		maxAge := time.Duration(s.cfg.AvailabilityMaxAge) * time.Hour
		if time.Since(ch.AvailabilityUpdatedAt) > maxAge {
			return fmt.Sprintf("availability older than %dh", s.cfg.AvailabilityMaxAge)
		}
	}

	categories := splitLabels(ch.Category)
	if len(s.cfg.CategoryAllow) > 0 {
		if s.cfg.CategoryStrict {
			if !allIn(categories, s.cfg.CategoryAllow) {
				return fmt.Sprintf("category %q outside allow list", ch.Category)
			}
		} else if !anyOverlap(categories, s.cfg.CategoryAllow) {
			return fmt.Sprintf("category %q not in allow list", ch.Category)
		}
	}
	if len(s.cfg.CategoryBlock) > 0 && anyOverlap(categories, s.cfg.CategoryBlock) {
		return fmt.Sprintf("category %q blocked", ch.Category)
	}

	languages := splitLabels(ch.Language)
	if len(s.cfg.LanguageAllow) > 0 {
		if s.cfg.LanguageStrict {
			if !allIn(languages, s.cfg.LanguageAllow) {
				return fmt.Sprintf("language %q outside allow list", ch.Language)
			}
		} else if !anyOverlap(languages, s.cfg.LanguageAllow) {
			return fmt.Sprintf("language %q not in allow list", ch.Language)
		}
	}
	if len(s.cfg.LanguageBlock) > 0 && anyOverlap(languages, s.cfg.LanguageBlock) {
		return fmt.Sprintf("language %q blocked", ch.Language)
	}

	countries := splitLabels(ch.Country)
	if len(s.cfg.CountryAllow) > 0 {
		if s.cfg.CountryStrict {
			if !allIn(countries, s.cfg.CountryAllow) {
				return fmt.Sprintf("country %q outside allow list", ch.Country)
			}
		} else if !anyOverlap(countries, s.cfg.CountryAllow) {
			return fmt.Sprintf("country %q not in allow list", ch.Country)
		}
	}
	if len(s.cfg.CountryBlock) > 0 && anyOverlap(countries, s.cfg.CountryBlock) {
		return fmt.Sprintf("country %q blocked", ch.Country)
	}

	if len(s.nameAllow) > 0 && !matchAny(s.nameAllow, ch.Name) {
		return "name matches no allow pattern"
	}
	if len(s.nameBlock) > 0 && matchAny(s.nameBlock, ch.Name) {
		return "name matches a block pattern"
	}

	return ""
}

// anyOverlap reports whether any label appears in list.
func anyOverlap(labels, list []string) bool {
	for _, label := range labels {
		if slices.Contains(list, label) {
			return true
		}
	}
	return false
}

// allIn reports whether every label appears in list.
func allIn(labels, list []string) bool {
	for _, label := range labels {
		if !slices.Contains(list, label) {
			return false
		}
	}
	return true
}

// matchAny reports whether any pattern matches s. Match errors count as
// no match.
func matchAny(rxs []*regexp2.Regexp, s string) bool {
	for _, rx := range rxs {
		if ok, _ := rx.MatchString(s); ok {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
