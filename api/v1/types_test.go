package v1

import "testing"

func TestParseVersion_ValidComponents(t *testing.T) {
	t.Parallel()

	v, err := ParseVersion("1.2.3")
	if err != nil {
		t.Fatalf("ParseVersion() error = %v", err)
	}
	want := Version{1, 2, 3, 0}
	if v != want {
		t.Fatalf("ParseVersion() = %v, want %v", v, want)
	}
}

func TestParseVersion_Empty(t *testing.T) {
	t.Parallel()

	v, err := ParseVersion("")
	if err != nil {
		t.Fatalf("ParseVersion() error = %v", err)
	}
	if v != (Version{}) {
		t.Fatalf("ParseVersion(\"\") = %v, want zero value", v)
	}
}

func TestParseVersion_RejectsNonNumeric(t *testing.T) {
	t.Parallel()

	if _, err := ParseVersion("1.x.0"); err == nil {
		t.Fatalf("expected error for non-numeric component, got nil")
	}
}

func TestParseVersion_RejectsTooManyComponents(t *testing.T) {
	t.Parallel()

	if _, err := ParseVersion("1.2.3.4.5"); err == nil {
		t.Fatalf("expected error for 5 components, got nil")
	}
}

func TestVersion_String(t *testing.T) {
	t.Parallel()

	v := Version{1, 2, 0, 0}
	if got, want := v.String(), "1.2.0.0"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestMatchRule_Satisfies(t *testing.T) {
	t.Parallel()

	available := Version{2, 1, 0, 0}

	cases := []struct {
		name     string
		rule     MatchRule
		required Version
		want     bool
	}{
		{"none always satisfies", MatchNone, Version{9, 9, 9, 9}, true},
		{"perfect requires exact match", MatchPerfect, Version{2, 1, 0, 0}, true},
		{"perfect rejects mismatch", MatchPerfect, Version{2, 0, 0, 0}, false},
		{"equivalent accepts same major.minor", MatchEquivalent, Version{2, 1, 0, 0}, true},
		{"equivalent rejects minor drift", MatchEquivalent, Version{2, 0, 0, 0}, false},
		{"compatible allows minor drift", MatchCompatible, Version{2, 0, 0, 0}, true},
		{"compatible rejects major drift", MatchCompatible, Version{1, 9, 0, 0}, false},
		{"greater-or-equal accepts older major match", MatchGreaterOrEqual, Version{1, 0, 0, 0}, true},
		{"greater-or-equal rejects newer requirement", MatchGreaterOrEqual, Version{3, 0, 0, 0}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.rule.Satisfies(available, tc.required); got != tc.want {
				t.Fatalf("%s.Satisfies(%v, %v) = %v, want %v", tc.rule, available, tc.required, got, tc.want)
			}
		})
	}
}

func TestScanFlags_Has(t *testing.T) {
	t.Parallel()

	flags := Upgrade | RestartActive
	if !flags.Has(Upgrade) {
		t.Fatalf("expected Upgrade to be set")
	}
	if flags.Has(StopAllOnUpgrade) {
		t.Fatalf("did not expect StopAllOnUpgrade to be set")
	}
}

func TestEvent_String(t *testing.T) {
	t.Parallel()

	ev := Event{PluginID: "com.example.auth", OldState: Installed, NewState: Resolved}
	want := "com.example.auth: installed -> resolved"
	if got := ev.String(); got != want {
		t.Fatalf("Event.String() = %q, want %q", got, want)
	}
}
