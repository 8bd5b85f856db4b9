package kvdb

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound   = errors.New("key not found")
	ErrInvalidKey = errors.New("invalid key")
)

type InvalidKeyError struct {
	Key    string
	Reason string
}
type NotFoundError struct {
	Key string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %s: %s", e.Key, e.Reason)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("key not found: %s", e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Query lifecycle states as recorded in the queries bucket.
const (
	QueryStateQuerying  = "querying"
	QueryStateRendering = "rendering"
	QueryStateDone      = "done"
	QueryStateFailed    = "failed"
)

// QueryRecord is the persisted status of one submitted query.
type QueryRecord struct {
	Generation  uint64     `json:"generation"`
	Query       string     `json:"query"`
	State       string     `json:"state"`
	Matches     int        `json:"matches"`
	Rendered    int        `json:"rendered"`
	Failed      int        `json:"failed"`
	Stale       int        `json:"stale"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
