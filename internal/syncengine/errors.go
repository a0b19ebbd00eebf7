package syncengine

import (
	"errors"
	"fmt"

	"github.com/dimitrije/linkshelf-api/internal/models"
)

var (
	ErrInvalidRequest = errors.New("invalid sync request")
	ErrTimeout        = errors.New("sync timed out")
	// ErrUnavailable marks failures that make further changes pointless,
	// such as the pool refusing new transactions.
	ErrUnavailable  = errors.New("store unavailable")
	ErrMissingField = errors.New("required field missing")
	// ErrNotPermitted is a change to a row the user can see but not write.
	ErrNotPermitted = errors.New("not permitted")
)

// ValidationError points at the change that made the request invalid.
type ValidationError struct {
	Type   models.EntityType
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s[%d].%s: %s", e.Type, e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// FieldError reports a field a create cannot do without.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string { return "missing field " + e.Field }

func (e *FieldError) Is(target error) bool { return target == ErrMissingField }
