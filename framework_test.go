package pluggit

import "testing"

type fakeContext struct {
	destroyed bool
}

func (f *fakeContext) Destroy() { f.destroyed = true }

func TestInit_IsIdempotentAndRefcounted(t *testing.T) {
	global = singleton{}

	Init()
	if global.loggers == nil {
		t.Fatalf("expected Loggers to be allocated after first Init")
	}
	Init()
	if global.refcount != 2 {
		t.Fatalf("refcount = %d, want 2", global.refcount)
	}

	Destroy()
	if global.loggers == nil {
		t.Fatalf("loggers should still be live after one Destroy of two Inits")
	}
	Destroy()
	if global.loggers != nil {
		t.Fatalf("loggers should be torn down after matching Destroy calls")
	}
}

func TestDestroy_TearsDownRegisteredContexts(t *testing.T) {
	global = singleton{}
	Init()

	fc := &fakeContext{}
	registerContext(fc)

	Destroy()

	if !fc.destroyed {
		t.Fatalf("expected registered context to be destroyed on framework teardown")
	}
}

func TestUnregisterContext_SkipsAlreadyRemovedContext(t *testing.T) {
	global = singleton{}
	Init()

	fc := &fakeContext{}
	registerContext(fc)
	unregisterContext(fc)

	Destroy()

	if fc.destroyed {
		t.Fatalf("unregistered context should not be destroyed by framework teardown")
	}
}

func TestGetImplementationInfo_ReportsHostTriplet(t *testing.T) {
	t.Parallel()

	info := GetImplementationInfo()
	if info.ThreadModel != "goroutines" {
		t.Fatalf("ThreadModel = %q, want %q", info.ThreadModel, "goroutines")
	}
	if info.HostTriplet == "" {
		t.Fatalf("expected a non-empty host triplet")
	}
}
