package reconcile

import (
	"errors"
	"fmt"
)

// ConflictKind classifies a failure reported by a remote resource store.
type ConflictKind int

const (
	// KindOther covers every failure that is not a recognized race or throttle.
	KindOther ConflictKind = iota
	// KindAlreadyExists means a create collided with an existing resource.
	KindAlreadyExists
	// KindNotFound means the resource vanished between calls.
	KindNotFound
	// KindThrottled means the remote asked the caller to slow down.
	KindThrottled
)

func (k ConflictKind) String() string {
	switch k {
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFound:
		return "not_found"
	case KindThrottled:
		return "throttled"
	default:
		return "other"
	}
}

// Conflict is the structured error every remote store adapter returns.
type Conflict struct {
	Kind     ConflictKind
	Resource string
	Message  string
	Err      error
}

func (c *Conflict) Error() string {
	msg := c.Message
	if msg == "" && c.Err != nil {
		msg = c.Err.Error()
	}
	if c.Resource == "" {
		return fmt.Sprintf("%s: %s", c.Kind, msg)
	}
	return fmt.Sprintf("%s %s: %s", c.Resource, c.Kind, msg)
}

func (c *Conflict) Unwrap() error { return c.Err }

// NewConflict builds a Conflict of the given kind.
func NewConflict(kind ConflictKind, resource, message string, err error) *Conflict {
	return &Conflict{Kind: kind, Resource: resource, Message: message, Err: err}
}

// KindOf returns the conflict kind carried by err. Errors without a Conflict
// in their chain report KindOther.
func KindOf(err error) ConflictKind {
	var conflict *Conflict
	if errors.As(err, &conflict) {
		return conflict.Kind
	}
	return KindOther
}

// IsKind reports whether err carries a conflict of the given kind.
func IsKind(err error, kind ConflictKind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
