package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionFailed means the vision model produced nothing usable.
	// It is the only error that fails a whole analysis request.
	ErrExtractionFailed = errors.New("extraction failed")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrTemporary    = errors.New("temporary failure")
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
