package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNetwork       = errors.New("network error")
	ErrValidation    = errors.New("validation failed")
	// ErrRejected is a request the remote store refused as malformed. Unlike
	// ErrValidation it is only known after the request was sent.
	ErrRejected      = errors.New("rejected by store")
)

// OpError records which operation failed and, where relevant, for which note.
type OpError struct {
	Op  string
	ID  string
	Err error
}

func (e *OpError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Kind names the taxonomy bucket of err for display and logging.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrAlreadyExists):
		return "conflict"
	default:
		return "remote"
	}
}
