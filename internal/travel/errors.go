package travel

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is matched by every ValidationError.
var ErrInvalidQuery = errors.New("invalid search query")

// ValidationError reports a malformed or incomplete search query.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidQuery
}
