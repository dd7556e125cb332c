// Package errors provides a category-based error type (Error) used at the
// CLI boundary to pick exit codes and user-facing messages.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Category classifies an Error.
type Category string

const (
	CategoryUsage             Category = "usage"
	CategoryConfig            Category = "config"
	CategoryMigration         Category = "migration"
	CategoryStateTooNew       Category = "state_too_new"
	CategoryMigrationRequired Category = "migration_required"
	CategoryLocked            Category = "locked"
	CategoryNetwork           Category = "network"
	CategoryCorrupt           Category = "corrupt"
	CategoryFileSystem        Category = "filesystem"
	CategoryInternal          Category = "internal"
)

// Error is a structured error with a category and optional context.
type Error struct {
	Category Category       `json:"category"`
	Message  string         `json:"message"`
	Cause    error          `json:"-"`
	Hint     string         `json:"hint,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithHint attaches a suggestion shown to the user.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// New creates an Error without a cause.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return New(category, fmt.Sprintf(format, args...))
}

// Wrap creates an Error that wraps err.
func Wrap(err error, category Category, message string) *Error {
	return &Error{Category: category, Message: message, Cause: err}
}

// Usage creates a usage error (bad arguments or flags).
func Usage(format string, args ...any) *Error {
	return Newf(CategoryUsage, format, args...)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCategory reports whether err carries category.
func IsCategory(err error, category Category) bool {
	return GetCategory(err) == category
}

// GetCategory extracts the category of err after classification.
func GetCategory(err error) Category {
	if err == nil {
		return ""
	}
	if e, ok := As(Classify(err)); ok {
		return e.Category
	}
	return CategoryInternal
}
