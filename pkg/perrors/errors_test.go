package perrors

import (
	"errors"
	"testing"

	v1 "github.com/pluggit/pluggit/api/v1"
)

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	t.Parallel()

	if err := Wrap(nil, v1.IO, "load"); err != nil {
		t.Fatalf("Wrap(nil, ...) = %v, want nil", err)
	}
}

func TestWrap_PreservesCauseAndUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	pe := Wrap(cause, v1.IO, "load")

	if pe.Code != v1.IO {
		t.Fatalf("Code = %v, want %v", pe.Code, v1.IO)
	}
	if !errors.Is(pe, cause) {
		t.Fatalf("expected errors.Is(pe, cause) to hold")
	}
}

func TestCode_DefaultsToUnspecifiedForPlainError(t *testing.T) {
	t.Parallel()

	if got := Code(errors.New("boom")); got != v1.Unspecified {
		t.Fatalf("Code() = %v, want %v", got, v1.Unspecified)
	}
}

func TestCode_OKForNilError(t *testing.T) {
	t.Parallel()

	if got := Code(nil); got != v1.OK {
		t.Fatalf("Code(nil) = %v, want %v", got, v1.OK)
	}
}

func TestIsCode(t *testing.T) {
	t.Parallel()

	err := New(v1.Conflict, "install").WithPlugin("com.example.auth")
	if !IsCode(err, v1.Conflict) {
		t.Fatalf("expected IsCode(err, Conflict) to be true")
	}
	if IsCode(err, v1.Dependency) {
		t.Fatalf("did not expect IsCode(err, Dependency) to be true")
	}
}

func TestWithPlugin_AppearsInErrorString(t *testing.T) {
	t.Parallel()

	err := Newf(v1.Malformed, "install", "missing identifier").WithPlugin("com.example.auth")
	if got := err.Error(); got == "" {
		t.Fatalf("Error() returned empty string")
	}
	if err.PluginID != "com.example.auth" {
		t.Fatalf("PluginID = %q, want %q", err.PluginID, "com.example.auth")
	}
}

func TestAs_ExtractsPluginError(t *testing.T) {
	t.Parallel()

	var err error = New(v1.Runtime, "start")
	pe := As(err)
	if pe == nil {
		t.Fatalf("As() = nil, want non-nil")
	}
	if pe.Code != v1.Runtime {
		t.Fatalf("Code = %v, want %v", pe.Code, v1.Runtime)
	}

	if As(errors.New("plain")) != nil {
		t.Fatalf("As() on a plain error should return nil")
	}
}
