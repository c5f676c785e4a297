package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSizeLimitExceeded = errors.New("size limit exceeded")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrPersistFailed     = errors.New("persist failed")
	ErrCancelled         = errors.New("cancelled")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Retryable reports whether a failed pipeline run is worth another
// attempt. Size, format, cancellation and input errors are permanent
// for a given file; everything else may be transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case IsKind(err, ErrSizeLimitExceeded),
		IsKind(err, ErrUnsupportedFormat),
		IsKind(err, ErrCancelled),
		IsKind(err, ErrInvalidInput):
		return false
	}
	return true
}
