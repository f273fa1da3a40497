// Package journal records every event delivery the pipeline handles in a
// local SQLite database.
//
// The journal is an operator aid for the history command and the daemon's
// /api/history endpoint. It is never consulted to deduplicate deliveries:
// stages stay idempotent against the remote stores on their own.
package journal
