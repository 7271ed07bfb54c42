// Package judgeerr implements the error taxonomy of the judge engine:
// a small set of named kinds, each carrying the HTTP status it should
// surface as and a user-facing message.
package judgeerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the six error categories the engine can raise.
type Kind string

const (
	// CompileError: user code failed to compile. Payload is the
	// diagnostics text the compiler produced.
	CompileError Kind = "CompileError"
	// CompilerRuntimeError: the sandbox itself failed during
	// compilation (not a user bug).
	CompilerRuntimeError Kind = "CompilerRuntimeError"
	// SPJCompileError: the special-judge checker failed to compile.
	SPJCompileError Kind = "SPJCompileError"
	// JudgeClientError: bundle missing, manifest malformed, SPJ binary
	// missing, workspace setup failed, inconsistent arguments.
	JudgeClientError Kind = "JudgeClientError"
	// TokenVerificationFailed: wrong or missing X-Judge-Server-Token.
	TokenVerificationFailed Kind = "TokenVerificationFailed"
	// JudgeServiceError: reserved for the heartbeat collaborator,
	// which is out of this module's scope; the HTTP layer also uses it
	// for any failure that does not carry a Kind of its own.
	JudgeServiceError Kind = "JudgeServiceError"
)

// httpStatus maps each kind to the HTTP status it surfaces as.
var httpStatus = map[Kind]int{
	CompileError:            400,
	CompilerRuntimeError:    500,
	SPJCompileError:         500,
	JudgeClientError:        500,
	TokenVerificationFailed: 401,
	JudgeServiceError:       500,
}

// Error is the engine's error type: a Kind plus a message, optionally
// wrapping an underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status this error should surface as.
func (e *Error) Status() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return 500
}

// New creates an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err as an Error of the given kind, keeping err as the
// cause for errors.Is/errors.As.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	if message == "" {
		message = err.Error()
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// Wrapf wraps err as an Error of the given kind with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// As extracts *Error from any error, returning (nil, false) if err is
// not (or does not wrap) one.
func As(err error) (*Error, bool) {
	var e *Error
	if err == nil {
		return nil, false
	}
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetKind returns the Kind of err, or JudgeClientError if err is not
// one of ours — every unclassified failure the engine raises is, by
// construction, a client-visible judge error rather than a silent 500.
func GetKind(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return JudgeClientError
}
