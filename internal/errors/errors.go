// Package errors provides the error kinds surfaced by servermark.
//
// Every failure that crosses a package boundary is an *Error carrying a
// Kind. Callers branch on the kind with errors.Is against the sentinels:
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    // unknown site
//	}
//
// Script failures keep the captured stderr of the privileged run so the
// operator sees exactly which reload or validation step broke:
//
//	var e *errors.Error
//	if errors.As(err, &e) && e.Kind == errors.KindScriptFailure {
//	    fmt.Println(e.Stderr)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes errors for programmatic handling.
type Kind string

// Error kinds.
const (
	KindValidation      Kind = "VALIDATION"       // Bad input, duplicate site, unknown backend
	KindNotFound        Kind = "NOT_FOUND"        // Unknown site id
	KindElevationDenied Kind = "ELEVATION_DENIED" // Prompt cancelled or helper missing
	KindScriptFailure   Kind = "SCRIPT_FAILURE"   // Script ran, a step failed
	KindPersistence     Kind = "PERSISTENCE"      // Registry unreadable or unwritable
	KindUnsupported     Kind = "UNSUPPORTED"      // Valid model, no generator for it
)

// Error is a structured error with a kind and optional context.
type Error struct {
	Kind    Kind   // Error category
	Message string // Human-readable message
	Subject string // Site name, domain or id (if applicable)
	Stderr  string // Captured stderr of a failed script
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Subject != "" {
		fmt.Fprintf(&b, "site %s: ", e.Subject)
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		if e.Message != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		b.WriteString("\n")
		b.WriteString(stderr)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target has the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation      = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "site not found"}
	ErrElevationDenied = &Error{Kind: KindElevationDenied, Message: "privilege elevation denied"}
	ErrScriptFailure   = &Error{Kind: KindScriptFailure, Message: "privileged script failed"}
	ErrPersistence     = &Error{Kind: KindPersistence, Message: "registry persistence failed"}
	ErrUnsupported     = &Error{Kind: KindUnsupported, Message: "unsupported"}
)

// Validation creates a validation error with a custom message.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates an error for an unknown site.
func NotFound(subject string) error {
	return &Error{Kind: KindNotFound, Message: "site not found", Subject: subject}
}

// ElevationDenied reports that the privileged helper never ran the script.
func ElevationDenied(msg string, err error) error {
	return &Error{Kind: KindElevationDenied, Message: msg, Err: err}
}

// ScriptFailure reports a script that started but exited non-zero.
func ScriptFailure(stderr string, err error) error {
	return &Error{Kind: KindScriptFailure, Message: "privileged script failed", Stderr: stderr, Err: err}
}

// Persistence wraps a registry read or write failure.
func Persistence(msg string, err error) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// Unsupported reports a combination the generators cannot render.
func Unsupported(msg string) error {
	return &Error{Kind: KindUnsupported, Message: msg}
}

// WithSubject returns a copy of err annotated with a subject when err is an *Error.
func WithSubject(err error, subject string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	c := *e
	c.Subject = subject
	return &c
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether any error in err's chain matches target.
// This is a re-export of errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// This is a re-export of errors.As for convenience.
var As = errors.As

// New is a re-export of errors.New for convenience.
var New = errors.New
