// Package services defines the [Engine] interface for the Ace Stream engine HTTP API and the probe, notification and update services around it.
//
// # Engine Interface
//
// The generator consumes the engine through a small abstraction so the pipeline and tests never depend on live HTTP.
//
// # Engine Implementation
//
// [EngineClient] talks to the engine webui over [APIService].
//
// Version requests double as liveness checks; [EngineClient.WaitUntilAvailable] polls them until the engine answers.
// Search is paged with page_size/page query parameters until an empty page is returned.
// Channel names arrive as either JSON strings or numbers and are normalized while decoding.
//
// # Availability Checker
//
// [Checker] probes stream links with a bounded worker pool and a shared rate limiter
//
// A probe issues one GET per link and reads a single chunk of the body; an optional
// MPEG-TS parse validates that the chunk is an actual transport stream. Outcomes are
// stored through [CheckCache] so fresh results are reused across destinations and cycles.
//
// # Notifications
//
// The [Notifier] interface delivers operator mail; [SMTPNotifier] implements it over SMTP with optional STARTTLS.
//
// [NoopNotifier] stands in when crash notifications are disabled.
//
// # Self Update
//
// [Updater] resolves the latest GitHub release for the running platform and applies it in place.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrEngineUnavailable] : engine not answering version requests
//   - [shared.ErrEngineRequest] : HTTP request against the engine failed
package services
