package errs

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrStorage        = errors.New("storage failure")
	ErrStockViolation = errors.New("insufficient stock")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrLockTimeout    = errors.New("lock wait aborted")
)

// StockViolationError reports a stock change that would leave a title below zero.
type StockViolationError struct {
	Title     string
	Available int64
	Requested int64
}

func (e *StockViolationError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available=%d, requested=%d", e.Title, e.Available, e.Requested)
}

func (e *StockViolationError) Is(target error) bool {
	return target == ErrStockViolation
}

// StorageError wraps a driver error with the store operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Storage wraps err as a StorageError, returning nil for a nil err.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// LockError reports a critical section that could not be entered before
// the request context ended.
type LockError struct {
	Key string
	Err error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("lock %s: %v", e.Key, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

func (e *LockError) Is(target error) bool {
	return target == ErrLockTimeout
}

// Lock classifies a lock acquisition failure. Context expiry or
// cancellation becomes a LockError; anything else is a StorageError.
func Lock(key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &LockError{Key: key, Err: err}
	}
	return Storage("lock "+key, err)
}

// Validation returns an ErrValidation carrying msg.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
