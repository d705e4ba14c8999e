// Package neko holds the cross-cutting error taxonomy shared by every
// component (spec.md §7). It deliberately has no dependencies beyond fmt: kinds are
// a closed, small domain that doesn't warrant a third-party error library.
package neko

import "fmt"

// Kind classifies an Error so boundary layers (HTTP, CLI) can map it to a
// status code or exit behaviour without inspecting message text.
type Kind string

const (
	KindConfig  Kind = "config"
	KindModel   Kind = "model"
	KindTool    Kind = "tool"
	KindMemory  Kind = "memory"
	KindSession Kind = "session"
	KindAgent   Kind = "agent"
	KindChannel Kind = "channel"
	KindIO      Kind = "io"
	KindHTTP    Kind = "http"
	KindJSON    Kind = "json"
	KindTOML    Kind = "toml"
	KindCron    Kind = "cron"
)

// Error is the single sum-type error spanning all components.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no underlying cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *neko.Error, returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
