// Package reconcile converges remote media resources under at-least-once,
// unordered event delivery.
//
// Remote stores report failures as *Conflict values. Writer implements the
// create, jitter, read, merge, update protocol for resources that accept
// updates. ReplaceWriter handles resources that only support delete and
// recreate. RetryPolicy wraps throttled calls in bounded exponential backoff.
//
// The remote stores offer no conditional writes, so two processes merging
// into the same pre-existing resource can still overwrite each other. Writer
// narrows that window with jitter and an optional verify-after-write read;
// KeyedMutex closes it for writers sharing a process.
package reconcile
