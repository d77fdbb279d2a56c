package apperrors

import (
	"errors"
	"strings"
)

// appError is the only implementation of Error.
type appError struct {
	msg         string  // primary error message
	parent      error   // kind this error was derived from
	causes      []error // attached causes, in order
	exitCode    int     // CLI exit code, zero means unset
	expandError bool    // ErrorAll includes causes when set
	prefix      string  // optional message prefix
}

// New creates a root error kind.
func New(msg string) Error {
	return &appError{
		msg:         msg,
		expandError: true,
	}
}

// Error returns the message with its prefix, if any.
func (e *appError) Error() string {
	if e.prefix != "" {
		return e.prefix + ": " + e.msg
	}
	return e.msg
}

// ErrorAll returns the message followed by every attached cause, separated by "; ".
// Causes that are themselves Errors are expanded recursively.
func (e *appError) ErrorAll() string {
	if !e.expandError || len(e.causes) == 0 {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.causes {
		b.WriteString("; ")
		var ae Error
		if errors.As(err, &ae) {
			b.WriteString(ae.ErrorAll())
		} else {
			b.WriteString(err.Error())
		}
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.parent
}

func (e *appError) UnwrapAll() []error {
	return e.causes
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:         msg,
		parent:      e,
		exitCode:    e.exitCode,
		expandError: e.expandError,
	}
}

// Msg keeps the receiver's kind: the result matches everything the receiver matches.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:         msg,
		parent:      e,
		causes:      append([]error(nil), e.causes...),
		exitCode:    e.exitCode,
		expandError: e.expandError,
	}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:         msg,
		parent:      e,
		causes:      appendCauses(e.causes, errs),
		exitCode:    e.exitCode,
		expandError: e.expandError,
	}
}

func (e *appError) Err(errs ...error) Error {
	return &appError{
		msg:         e.msg,
		parent:      e,
		causes:      appendCauses(e.causes, errs),
		exitCode:    e.exitCode,
		expandError: e.expandError,
		prefix:      e.prefix,
	}
}

func (e *appError) Prefix(p string) Error {
	cp := *e
	cp.prefix = p
	return &cp
}

func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expandError = flag
	return &cp
}

func (e *appError) SetExitCode(code int) Error {
	cp := *e
	cp.exitCode = code
	return &cp
}

func (e *appError) ExitCode() int {
	return e.exitCode
}

// Is matches the parent chain and every attached cause.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*appError); ok && t == e {
		return true
	}
	if errors.Is(e.parent, target) {
		return true
	}
	for _, err := range e.causes {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func appendCauses(existing, errs []error) []error {
	out := make([]error, 0, len(existing)+len(errs))
	out = append(out, existing...)
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

// ExitCode returns the exit code carried by err, or fallback when err carries none.
func ExitCode(err error, fallback int) int {
	var ae Error
	if errors.As(err, &ae) && ae.ExitCode() != 0 {
		return ae.ExitCode()
	}
	return fallback
}
