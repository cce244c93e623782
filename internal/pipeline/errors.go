package pipeline

import (
	"errors"
	"fmt"
)

// ValidationError rejects a single uploaded field with a message safe
// to show to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompositionError marks a failure while building the combined item
// collage. It maps to COMBINE_ERROR on the API surface.
type CompositionError struct {
	Err error
}

func (e *CompositionError) Error() string { return "combine items: " + e.Err.Error() }
func (e *CompositionError) Unwrap() error { return e.Err }

// ErrPlaceholder means the placeholder generator itself failed, which
// is terminal: there is no further fallback.
var ErrPlaceholder = errors.New("placeholder generation failed")
