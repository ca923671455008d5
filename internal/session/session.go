// Package session persists the device login state across process restarts.
// The manager is constructed once at startup and injected into everything
// that needs it; observers get change notifications over channels instead of
// reading ambient globals.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// State is the single durable session record. LoggedIn implies a non-blank
// Email that must still resolve to a directory record; the auth engine
// force-clears the session when it does not.
type State struct {
	LoggedIn bool   `json:"loggedIn"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

type Manager struct {
	mu        sync.Mutex
	path      string
	state     State
	observers []chan State
}

// Open loads the persisted session, starting logged-out when no file exists.
func Open(path string) (*Manager, error) {
	m := &Manager{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &m.state); err != nil {
		// A corrupt session file is treated as logged out rather than
		// blocking startup.
		m.state = State{}
	}
	return m, nil
}

func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) SaveLogin(email string, isAdmin bool) error {
	return m.update(State{LoggedIn: true, Email: email, IsAdmin: isAdmin})
}

func (m *Manager) Clear() error {
	return m.update(State{})
}

// Observe returns a channel receiving every subsequent state change. Slow
// observers drop updates instead of blocking writers.
func (m *Manager) Observe() <-chan State {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan State, 8)
	m.observers = append(m.observers, ch)
	return ch
}

func (m *Manager) update(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persist(next); err != nil {
		return err
	}
	m.state = next
	for _, ch := range m.observers {
		select {
		case ch <- next:
		default:
		}
	}
	return nil
}

func (m *Manager) persist(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
