// Package notifications delivers pipeline events via pluggable notifiers.
//
// Playback URL batches are rendered as YAML and published to an SNS topic for
// email subscribers; an optional ntfy topic receives a short summary of the
// same events plus pipeline errors. When neither destination is configured a
// no-op notifier is returned so stage code never checks for nil.
package notifications
