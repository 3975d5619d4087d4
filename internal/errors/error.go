package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryPack       Category = "pack"
	CategorySource     Category = "source"
	CategoryInstall    Category = "install"
	CategoryRegistry   Category = "registry"
	CategoryValidation Category = "validation"
	CategoryHook       Category = "hook"
	CategoryConfig     Category = "config"
	CategoryNetwork    Category = "network"
	CategoryCLI        Category = "cli"
)

// ZccError is a structured error with a machine code and an actionable suggestion.
type ZccError struct {
	// Code is a unique error identifier (e.g., "PACK_NOT_FOUND").
	Code string

	// Category is the error type (pack, source, install, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows a command that fixes or avoids the error.
	Example string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ZccError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ZccError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target carries the same code.
func (e *ZccError) Is(target error) bool {
	t, ok := target.(*ZccError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ZccError) WithSuggestion(s string) *ZccError {
	e.Suggestion = s
	return e
}

// WithExample adds a command example to the error.
func (e *ZccError) WithExample(ex string) *ZccError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *ZccError) WithDetail(d string) *ZccError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detail to the error.
func (e *ZccError) WithDetailf(format string, args ...any) *ZccError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *ZccError) Wrap(err error) *ZccError {
	e.Wrapped = err
	if e.Detail == "" && err != nil {
		e.Detail = err.Error()
	}
	return e
}

// New creates a ZccError from a registered error code.
func New(code string) *ZccError {
	template, ok := registry[code]
	if !ok {
		return &ZccError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ZccError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new ZccError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ZccError {
	return &ZccError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a ZccError.
func FromError(err error, code string) *ZccError {
	if err == nil {
		return nil
	}
	var ze *ZccError
	if stderrors.As(err, &ze) {
		return ze
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err (or anything it wraps) is a ZccError with code.
func HasCode(err error, code string) bool {
	var ze *ZccError
	for err != nil {
		if !stderrors.As(err, &ze) {
			return false
		}
		if ze.Code == code {
			return true
		}
		err = ze.Wrapped
	}
	return false
}

// Code returns the code of the outermost ZccError in err's chain, or "".
func Code(err error) string {
	var ze *ZccError
	if stderrors.As(err, &ze) {
		return ze.Code
	}
	return ""
}
