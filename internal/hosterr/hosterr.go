// Package hosterr defines the error kinds surfaced by the host helper.
package hosterr

import (
	"errors"
	"strings"

	"github.com/joomcode/errorx"
)

var (
	Namespace         = errorx.NewNamespace("host")
	NotFound          = Namespace.NewType("not_found", errorx.NotFound())
	InvalidInput      = Namespace.NewType("invalid_input")
	OSOperationFailed = Namespace.NewType("os_operation_failed")
	Unresolvable      = Namespace.NewType("unresolvable")

	pathProperty   = errorx.RegisterPrintableProperty("path")
	outputProperty = errorx.RegisterPrintableProperty("output")
)

// Kind names as printed by the console report.
const (
	KindNotFound          = "NotFound"
	KindInvalidInput      = "InvalidInput"
	KindOSOperationFailed = "OSOperationFailed"
	KindUnresolvable      = "Unresolvable"
	KindUnknown           = "Unknown"
)

// NewNotFound reports that a required file or directory does not exist.
func NewNotFound(what, path string) *errorx.Error {
	return NotFound.New("%s not found: %s", what, path).
		WithProperty(pathProperty, path)
}

func NewInvalidInput(format string, args ...any) *errorx.Error {
	return InvalidInput.New(format, args...)
}

// NewInvalidPath is InvalidInput carrying the offending path.
func NewInvalidPath(path, reason string) *errorx.Error {
	return InvalidInput.New("%s: %s", reason, path).
		WithProperty(pathProperty, path)
}

// NewOSOperationFailed wraps a failed OS call. output is the raw text the
// OS produced (stderr of a tool, or the error string) and is kept verbatim
// in the message.
func NewOSOperationFailed(cause error, op, output string) *errorx.Error {
	output = strings.TrimSpace(output)
	var e *errorx.Error
	switch {
	case output != "" && cause != nil:
		e = OSOperationFailed.Wrap(cause, "%s: %s", op, output)
	case output != "":
		e = OSOperationFailed.New("%s: %s", op, output)
	case cause != nil:
		e = OSOperationFailed.Wrap(cause, "%s", op)
	default:
		e = OSOperationFailed.New("%s", op)
	}
	if output != "" {
		e = e.WithProperty(outputProperty, output)
	}
	return e
}

func NewUnresolvable(what, path string) *errorx.Error {
	return Unresolvable.New("cannot determine %s from %s", what, path).
		WithProperty(pathProperty, path)
}

// KindOf maps err to one of the Kind* names. Errors wrapped with %w are
// unwrapped first.
func KindOf(err error) string {
	var xerr *errorx.Error
	if !errors.As(err, &xerr) {
		return KindUnknown
	}
	switch {
	case xerr.IsOfType(NotFound):
		return KindNotFound
	case xerr.IsOfType(InvalidInput):
		return KindInvalidInput
	case xerr.IsOfType(OSOperationFailed):
		return KindOSOperationFailed
	case xerr.IsOfType(Unresolvable):
		return KindUnresolvable
	default:
		return KindUnknown
	}
}

// Is reports whether err (or anything it wraps) is of type t.
func Is(err error, t *errorx.Type) bool {
	var xerr *errorx.Error
	if !errors.As(err, &xerr) {
		return false
	}
	return xerr.IsOfType(t)
}

// Path returns the path property attached to err, if any.
func Path(err error) (string, bool) {
	var xerr *errorx.Error
	if !errors.As(err, &xerr) {
		return "", false
	}
	v, ok := xerr.Property(pathProperty)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
