package judgeerr

import (
	"errors"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		CompileError:            400,
		CompilerRuntimeError:    500,
		TokenVerificationFailed: 401,
	}
	for kind, want := range cases {
		got := New(kind, "").Status()
		if got != want {
			t.Errorf("Kind %s: got status %d, want %d", kind, got, want)
		}
	}
}

func TestWrapPreservesCauseForErrorsIs(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(cause, JudgeClientError, "")
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(nil, JudgeClientError, "x") != nil {
		t.Fatal("expected Wrap(nil, ...) to return nil")
	}
}

func TestGetKindDefaultsUnclassifiedErrors(t *testing.T) {
	if got := GetKind(errors.New("plain")); got != JudgeClientError {
		t.Fatalf("got kind %s, want JudgeClientError", got)
	}
}

func TestGetKindExtractsOurs(t *testing.T) {
	err := New(CompileError, "bad syntax")
	if got := GetKind(err); got != CompileError {
		t.Fatalf("got kind %s, want CompileError", got)
	}
}
