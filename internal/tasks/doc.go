// Package tasks drives the playlist generation cycle.
//
// # Core Operations
//
// The [Generator] runs the daemon loop:
//
//  1. [Generator.Run] : Infinite generation loop
//     - Reports the cycle start with a short cycle id
//     - Blocks until the engine answers version requests
//     - Processes every configured destination in order
//     - Sleeps the configured delays between destinations and cycles
//     - Stops on context cancellation, even mid-sleep
//
//  2. [Generator.RunCycle] : Exactly one cycle
//     - Same destination processing without the trailing cycle delay
//     - Used by one-shot generation and by tests
//
// # Destination Processing
//
// Each destination is rebuilt from scratch on every cycle: the output file
// is truncated, the header is written verbatim, channels are fetched and
// remapped, stable-sorted by name and then category, optionally
// clean-filtered, and every channel passing the destination's rules is
// rendered through its entry template. Destinations are never isolated from
// each other; the first error aborts the cycle.
//
// # Collaborators
//
// [ChannelRepository] supplies and transforms channels
// (channels.Repository in production) and [Connectivity] gates cycles on
// engine reachability (services.EngineClient in production). Sleeping is
// injectable so tests can observe delays without waiting.
package tasks
