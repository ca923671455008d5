package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingFileStartsLoggedOut(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if m.Snapshot().LoggedIn {
		t.Fatal("fresh session must start logged out")
	}
}

func TestSaveLoginPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	m, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := m.SaveLogin("a@ex.com", true); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	state := reopened.Snapshot()
	if !state.LoggedIn || state.Email != "a@ex.com" || !state.IsAdmin {
		t.Fatalf("unexpected restored state: %+v", state)
	}
}

func TestClearPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := m.SaveLogin("a@ex.com", false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Snapshot().LoggedIn {
		t.Fatal("cleared session must stay cleared after reopen")
	}
}

func TestCorruptFileTreatedAsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	m, err := Open(path)
	if err != nil {
		t.Fatalf("corrupt file must not block startup: %v", err)
	}
	if m.Snapshot().LoggedIn {
		t.Fatal("corrupt session must read as logged out")
	}
}

func TestObserveReceivesChanges(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	ch := m.Observe()
	if err := m.SaveLogin("a@ex.com", false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	first := <-ch
	if !first.LoggedIn || first.Email != "a@ex.com" {
		t.Fatalf("unexpected first observation: %+v", first)
	}
	second := <-ch
	if second.LoggedIn {
		t.Fatalf("unexpected second observation: %+v", second)
	}
}
