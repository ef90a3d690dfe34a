// Package errors is the error facade of the infrastructure and delivery layers.
// Stack traces come from pkg/errors, matching from the standard library.
package errors

import (
	stderrors "errors"

	pkgerrors "github.com/pkg/errors"
)

// New returns an error with a stack trace.
func New(text string) error {
	return pkgerrors.New(text)
}

// Errorf formats an error with a stack trace.
func Errorf(format string, args ...any) error {
	return pkgerrors.Errorf(format, args...)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// AsType finds the first error in err's tree that is a T.
// T may be an interface such as domainerrors.AppError.
func AsType[T any](err error) (T, bool) {
	var target T
	if err == nil {
		return target, false
	}
	ok := stderrors.As(err, &target)

	return target, ok
}

// Wrap annotates err with a message and a stack trace. It returns nil when err is nil.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// WithStack records a stack trace on err. It returns nil when err is nil.
func WithStack(err error) error {
	return pkgerrors.WithStack(err)
}
