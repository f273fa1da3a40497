// Package api defines the wire-format types served by the daemon's HTTP
// endpoints and a small client the CLI uses to read them.
//
// # Key Types
//
// DaemonStatus: running state, lock and journal paths, delivery counts, and
// the stages left unconfigured.
//
// Delivery/HistoryResponse: journal rows in a transport-friendly shape.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Durations are reported in milliseconds so non-Go consumers need no parser.
package api
