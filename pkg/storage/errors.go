// File: pkg/storage/errors.go
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the facade wraps exactly one of these.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConnection    = errors.New("connection error")
	ErrValidation    = errors.New("validation error")
	ErrStore         = errors.New("store error")
	ErrNotFound      = errors.New("not found")
)

var (
	// ErrNotConnected is the cause reported when an operation runs before a bucket is bound
	ErrNotConnected = errors.New("no bucket bound, call Connect first")

	// ErrUnsupported is the cause reported when the backend lacks an optional capability
	ErrUnsupported = errors.New("operation not supported by provider")
)

var kinds = []error{ErrConfiguration, ErrConnection, ErrValidation, ErrStore, ErrNotFound}

// OpError records a failed facade operation together with its kind and cause
type OpError struct {
	Op     string
	Bucket string
	Key    string
	Kind   error
	Err    error
}

func (e *OpError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Bucket != "" || e.Key != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Bucket)
		if e.Key != "" {
			sb.WriteString(Separator)
			sb.WriteString(e.Key)
		}
	}
	sb.WriteString(": ")
	sb.WriteString(e.Kind.Error())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the error kind carried by err, or nil if err carries none
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsNotFound reports whether err means a missing key or bucket. A facade OpError answers by
// its own kind, so a store fault caused by a vanished bucket is not reported as not-found.
func IsNotFound(err error) bool {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind == ErrNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// KeyError is a single key that a batch delete failed to remove
type KeyError struct {
	Key  string
	Code string
	Err  error
}

func (e KeyError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %v", e.Key, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e KeyError) Unwrap() error {
	return e.Err
}

// BatchDeleteError reports the keys a batch delete left behind
type BatchDeleteError struct {
	Failed []KeyError
}

func (e *BatchDeleteError) Error() string {
	switch len(e.Failed) {
	case 0:
		return "batch delete failed"
	case 1:
		return "failed to delete " + e.Failed[0].Error()
	}
	return fmt.Sprintf("failed to delete %d keys, first: %v", len(e.Failed), e.Failed[0])
}

// Keys returns the keys that were not deleted
func (e *BatchDeleteError) Keys() []string {
	keys := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		keys = append(keys, f.Key)
	}
	return keys
}
