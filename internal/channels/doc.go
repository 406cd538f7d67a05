// Package channels implements the per-destination channel pipeline over the
// engine's search results.
//
// [Repository] is the production pipeline collaborator used by the generator:
// it fetches and flattens search results into [models.Channel] values,
// rewrites categories through the destination's remap rules, removes
// duplicates and dead sources, applies the destination's filter rules and
// renders playlist entries.
//
// Remap and filter rules are compiled once per destination when the
// repository is constructed; configuration validation has already proven
// them compilable.
package channels
