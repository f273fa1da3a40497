// Package daemon runs the long-lived event receiver.
//
// It accepts event envelopes over HTTP in the shape an EventBridge API
// destination delivers them, hands each one to the pipeline dispatcher, and
// answers with a status code the bus can act on: 503 for failures a
// redelivery may fix, 422 for malformed events, 500 for everything else.
// The same server exposes the delivery journal, a status summary, and the
// Prometheus registry.
//
// A flock on the state directory keeps a second daemon from sharing the
// journal. Stage work runs on a context that outlives individual HTTP
// requests so a client hanging up does not abandon a half-finished
// reconcile; shutdown drains in-flight requests before cancelling it.
package daemon
