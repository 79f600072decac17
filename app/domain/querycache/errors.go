package querycache

import (
	"errors"
	"fmt"

	"menlo.ai/query-cache/app/domain/query"
)

var (
	// ErrResolution is matched by every *ResolutionError.
	ErrResolution = errors.New("querycache: cannot resolve tables")
	// ErrStoreUnavailable is matched by every *StoreUnavailableError.
	ErrStoreUnavailable = errors.New("querycache: store unavailable")
	// ErrSerialization is matched by every *SerializationError.
	ErrSerialization = errors.New("querycache: serialization failed")
	// ErrSweepLockHeld means another sweep owns the lock; the caller skips its run.
	ErrSweepLockHeld = errors.New("querycache: sweep lock is held elsewhere")
)

// ResolutionError reports a descriptor whose tables cannot be determined.
// Callers skip caching and invalidation for the statement and execute it normally.
type ResolutionError struct {
	Operation query.Operation
	Reason    string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("querycache: cannot resolve tables for %q: %s", e.Operation, e.Reason)
}

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// StoreUnavailableError wraps a backend failure or timeout.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("querycache: store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

// Unavailable wraps err as a *StoreUnavailableError unless it already is one.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var sue *StoreUnavailableError
	if errors.As(err, &sue) {
		return err
	}
	return &StoreUnavailableError{Op: op, Err: err}
}

// SerializationError reports a result or binding that cannot be encoded or decoded.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("querycache: serialization failed: %v", e.Err)
	}
	return fmt.Sprintf("querycache: serialization failed for %s: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }
