package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pluggit.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPluginDirs_AddListRemove(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if err := s.AddPluginDir("/opt/pluggit/plugins"); err != nil {
		t.Fatalf("AddPluginDir() error = %v", err)
	}
	if err := s.AddPluginDir("/opt/pluggit/plugins-extra"); err != nil {
		t.Fatalf("AddPluginDir() error = %v", err)
	}

	dirs, err := s.ListPluginDirs()
	if err != nil {
		t.Fatalf("ListPluginDirs() error = %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("ListPluginDirs() = %v, want 2 entries", dirs)
	}

	if err := s.RemovePluginDir("/opt/pluggit/plugins"); err != nil {
		t.Fatalf("RemovePluginDir() error = %v", err)
	}
	dirs, err = s.ListPluginDirs()
	if err != nil {
		t.Fatalf("ListPluginDirs() error = %v", err)
	}
	if len(dirs) != 1 || dirs[0] != "/opt/pluggit/plugins-extra" {
		t.Fatalf("ListPluginDirs() = %v, want [/opt/pluggit/plugins-extra]", dirs)
	}
}

func TestRemovePluginDir_AbsentPathIsNotAnError(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if err := s.RemovePluginDir("/never/added"); err != nil {
		t.Fatalf("RemovePluginDir() on an absent path error = %v, want nil", err)
	}
}

func TestAppendEvent_ListEventsPreservesOrder(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	want := []Event{
		{PluginID: "core", OldState: 1, NewState: 2},
		{PluginID: "ui", OldState: 1, NewState: 2},
		{PluginID: "core", OldState: 2, NewState: 3},
	}
	for _, ev := range want {
		if err := s.AppendEvent(ev); err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
	}

	got, err := s.ListEvents("")
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("ListEvents() returned %d events, want %d", len(got), len(want))
	}
	for i, ev := range got {
		if ev.PluginID != want[i].PluginID || ev.OldState != want[i].OldState || ev.NewState != want[i].NewState {
			t.Fatalf("event[%d] = %+v, want %+v", i, ev, want[i])
		}
		if ev.Timestamp.IsZero() {
			t.Fatalf("event[%d] Timestamp was not stamped", i)
		}
	}
}

func TestListEvents_FiltersByPluginID(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	for _, ev := range []Event{
		{PluginID: "core", OldState: 1, NewState: 2},
		{PluginID: "ui", OldState: 1, NewState: 2},
		{PluginID: "core", OldState: 2, NewState: 3},
	} {
		if err := s.AppendEvent(ev); err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
	}

	got, err := s.ListEvents("core")
	if err != nil {
		t.Fatalf("ListEvents(core) error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListEvents(core) returned %d events, want 2", len(got))
	}
	for _, ev := range got {
		if ev.PluginID != "core" {
			t.Fatalf("ListEvents(core) returned event for %q", ev.PluginID)
		}
	}
}
