// Package pipeline routes delivered event bus envelopes to the stage that
// owns them.
//
// Every delivery gets a request ID, a stage-scoped logger, a journal entry,
// and a metrics sample. Failures are classified so the caller can tell the
// event bus whether redelivery may help, and non-retryable failures are
// forwarded to the error notifier.
package pipeline
