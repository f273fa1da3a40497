// Package services defines shared utilities consumed by the pipeline stage
// handlers and remote-store adapters.
//
// Key responsibilities:
//   - Context helpers that stamp event IDs, stage names, resource keys, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent classes (transient vs fatal) for event redelivery.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
