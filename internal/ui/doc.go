// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a two-view channel browser:
//  1. [ChannelListView] : Browse and filter the transformed channel listing for a destination
//  2. [DetailView] : Inspect one channel (labels, availability, stream link) and probe its stream on demand
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Channel listings come from a [Source] (the channels repository in production) and stream probes run through a [StreamProber],
// so both can be substituted in tests.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, p, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
