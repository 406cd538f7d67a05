package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/acegen/internal/formatter"
	"github.com/dlclark/regexp2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Engine       EngineConfig   `toml:"engine"`
	Database     DatabaseConfig `toml:"database"`
	Schedule     ScheduleConfig `toml:"schedule"`
	Crash        CrashConfig    `toml:"crash"`
	SMTP         SMTPConfig     `toml:"smtp"`
	Log          LogConfig      `toml:"log"`
	Destinations []Destination  `toml:"destinations"`
}

// EngineConfig contains Ace Stream engine connection settings.
type EngineConfig struct {
	Addr           string `toml:"addr"`
	SearchPageSize int    `toml:"search_page_size"`
}

// DatabaseConfig contains database connection settings. CheckTTLHours bounds
// how long a cached availability probe may be reused; zero re-probes every
// time.
type DatabaseConfig struct {
	Path          string `toml:"path"`
	MaxOpenConns  int    `toml:"max_open_conns"`
	MaxIdleConns  int    `toml:"max_idle_conns"`
	CheckTTLHours int    `toml:"check_ttl_hours"`
}

// ScheduleConfig contains the delays between destinations and between
// generation cycles, in seconds.
type ScheduleConfig struct {
	DestinationDelaySeconds int `toml:"destination_delay_seconds"`
	CycleDelaySeconds       int `toml:"cycle_delay_seconds"`
}

// CrashConfig controls what happens after an unrecoverable failure.
type CrashConfig struct {
	Notify bool `toml:"notify"`
	Pause  bool `toml:"pause"`
}

// SMTPConfig contains mail delivery settings for crash notifications.
// The password may be left empty and supplied via ACEGEN_SMTP_PASSWORD.
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	From     string `toml:"from"`
	To       string `toml:"to"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	StartTLS bool   `toml:"starttls"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Destination describes one playlist file to generate. Destinations are
// processed in the order they appear in the config file.
type Destination struct {
	Name           string      `toml:"name"`
	OutputPath     string      `toml:"output_path"`
	OutputEncoding string      `toml:"output_encoding"`
	Header         string      `toml:"header"`
	EntryTemplate  string      `toml:"entry_template"`
	Dedup          bool        `toml:"dedup"`
	Rules          FilterRules `toml:"rules"`
}

// FilterRules describes how channels are remapped and filtered for one
// destination. Name lists and map keys are regular expressions; the
// category, language and country lists match labels exactly. An empty list
// means no constraint. Strict variants require every label of a multi-label
// field to appear in the allow list instead of just one.
type FilterRules struct {
	CategoryMap     map[string]string   `toml:"category_map"`
	NameCategoryMap map[string][]string `toml:"name_category_map"`

	NameAllow []string `toml:"name_allow"`
	NameBlock []string `toml:"name_block"`

	CategoryAllow  []string `toml:"category_allow"`
	CategoryStrict bool     `toml:"category_strict"`
	CategoryBlock  []string `toml:"category_block"`

	LanguageAllow  []string `toml:"language_allow"`
	LanguageStrict bool     `toml:"language_strict"`
	LanguageBlock  []string `toml:"language_block"`

	CountryAllow  []string `toml:"country_allow"`
	CountryStrict bool     `toml:"country_strict"`
	CountryBlock  []string `toml:"country_block"`

	Status              []int   `toml:"status"`
	AvailabilityMin     float64 `toml:"availability_min"`
	AvailabilityMaxAge  int     `toml:"availability_max_age_hours"`
	RemoveDead          bool    `toml:"remove_dead"`
	MpegTSProbe         bool    `toml:"mpegts_probe"`
	CheckTimeoutSeconds int     `toml:"check_timeout_seconds"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for problems that would otherwise only
// surface mid-cycle, and fills in derived defaults (destination names, the
// engine search page size). Every regular expression, entry template and
// output encoding is verified here so the pipeline can assume they resolve.
func (c *Config) Validate() error {
	if c.Engine.Addr == "" {
		return fmt.Errorf("%w: engine.addr is required", ErrInvalidConfig)
	}
	if c.Engine.SearchPageSize <= 0 {
		c.Engine.SearchPageSize = 200
	}
	if c.Schedule.DestinationDelaySeconds < 0 || c.Schedule.CycleDelaySeconds < 0 {
		return fmt.Errorf("%w: schedule delays must not be negative", ErrInvalidConfig)
	}
	if c.Database.CheckTTLHours < 0 {
		return fmt.Errorf("%w: database.check_ttl_hours must not be negative", ErrInvalidConfig)
	}
	if len(c.Destinations) == 0 {
		return ErrNoDestination
	}
	if c.Crash.Notify {
		if c.SMTP.Host == "" || c.SMTP.From == "" || c.SMTP.To == "" {
			return fmt.Errorf("%w: crash.notify requires smtp host, from and to", ErrInvalidConfig)
		}
	}
	if c.SMTP.Password == "" {
		c.SMTP.Password = os.Getenv("ACEGEN_SMTP_PASSWORD")
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%w: log.level %q: %v", ErrInvalidConfig, c.Log.Level, err)
		}
	}

	seen := make(map[string]int)
	for i := range c.Destinations {
		d := &c.Destinations[i]
		if err := validateDestination(d); err != nil {
			return fmt.Errorf("destinations[%d]: %w", i, err)
		}
		if prev, ok := seen[d.OutputPath]; ok {
			return fmt.Errorf("%w: destinations[%d] and destinations[%d] share output_path %s",
				ErrInvalidConfig, prev, i, d.OutputPath)
		}
		seen[d.OutputPath] = i
	}

	return nil
}

func validateDestination(d *Destination) error {
	if d.OutputPath == "" {
		return fmt.Errorf("%w: output_path is required", ErrInvalidConfig)
	}
	if d.Name == "" {
		d.Name = d.OutputPath
	}
	if d.EntryTemplate == "" {
		return fmt.Errorf("%w: entry_template is required", ErrInvalidConfig)
	}
	if err := formatter.ValidateEntryTemplate(d.EntryTemplate); err != nil {
		return fmt.Errorf("%w: entry_template: %v", ErrInvalidConfig, err)
	}
	if _, err := ResolveEncoding(d.OutputEncoding); err != nil {
		return fmt.Errorf("%w: output_encoding: %v", ErrInvalidConfig, err)
	}

	r := &d.Rules
	if r.AvailabilityMin < 0 || r.AvailabilityMin > 1 {
		return fmt.Errorf("%w: availability_min must be within [0, 1]", ErrInvalidConfig)
	}
	if r.AvailabilityMaxAge < 0 {
		return fmt.Errorf("%w: availability_max_age_hours must not be negative", ErrInvalidConfig)
	}
	if r.CheckTimeoutSeconds < 0 {
		return fmt.Errorf("%w: check_timeout_seconds must not be negative", ErrInvalidConfig)
	}
	if r.RemoveDead && !d.Dedup {
		return fmt.Errorf("%w: remove_dead requires dedup", ErrInvalidConfig)
	}

	for rx := range r.CategoryMap {
		if err := checkRegexp(rx); err != nil {
			return fmt.Errorf("category_map: %w", err)
		}
	}
	for rx := range r.NameCategoryMap {
		if err := checkRegexp(rx); err != nil {
			return fmt.Errorf("name_category_map: %w", err)
		}
	}
	for _, rx := range r.NameAllow {
		if err := checkRegexp(rx); err != nil {
			return fmt.Errorf("name_allow: %w", err)
		}
	}
	for _, rx := range r.NameBlock {
		if err := checkRegexp(rx); err != nil {
			return fmt.Errorf("name_block: %w", err)
		}
	}

	return nil
}

func checkRegexp(rx string) error {
	if _, err := regexp2.Compile(rx, regexp2.RE2); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidConfig, rx, err)
	}
	return nil
}
