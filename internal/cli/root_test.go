package cli

import (
	"testing"
	"time"

	v1 "github.com/pluggit/pluggit/api/v1"
)

func TestParseScanFlags(t *testing.T) {
	t.Parallel()

	got := parseScanFlags([]string{"upgrade", "restart-active", "bogus"})
	want := v1.Upgrade | v1.RestartActive
	if got != want {
		t.Fatalf("parseScanFlags() = %v, want %v", got, want)
	}
}

func TestParseScanFlags_Empty(t *testing.T) {
	t.Parallel()

	if got := parseScanFlags(nil); got != 0 {
		t.Fatalf("parseScanFlags(nil) = %v, want 0", got)
	}
}

func TestParsePollInterval_ValidDuration(t *testing.T) {
	t.Parallel()

	got := parsePollInterval("30s")
	if got != 30*time.Second {
		t.Fatalf("parsePollInterval(\"30s\") = %v, want 30s", got)
	}
}

func TestParsePollInterval_EmptyAndMalformedFallBackToDefault(t *testing.T) {
	t.Parallel()

	if got := parsePollInterval(""); got != 5*time.Second {
		t.Fatalf("parsePollInterval(\"\") = %v, want 5s default", got)
	}
	if got := parsePollInterval("not-a-duration"); got != 5*time.Second {
		t.Fatalf("parsePollInterval(garbage) = %v, want 5s default", got)
	}
}
