package identity

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoSession is returned by SessionStore.Load when nothing is stored.
var ErrNoSession = errors.New("no session")

// SessionStore keeps the current session token.
type SessionStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileSessions stores the session token in a file with mode 0600.
type FileSessions struct {
	Path string
}

type sessionFile struct {
	Token string `json:"token"`
}

// Load implements SessionStore.
func (f FileSessions) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	var s sessionFile
	if err := json.Unmarshal(data, &s); err != nil || s.Token == "" {
		return "", ErrNoSession
	}
	return s.Token, nil
}

// Save implements SessionStore.
func (f FileSessions) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sessionFile{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0600)
}

// Clear implements SessionStore. Clearing a missing file is not an error.
func (f FileSessions) Clear() error {
	err := os.Remove(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemorySessions keeps the session token in memory.
type MemorySessions struct {
	mu    sync.Mutex
	token string
}

// Load implements SessionStore.
func (m *MemorySessions) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoSession
	}
	return m.token, nil
}

// Save implements SessionStore.
func (m *MemorySessions) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear implements SessionStore.
func (m *MemorySessions) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// NopSessions stores nothing. The HTTP surface uses it: clients keep their
// bearer token themselves.
type NopSessions struct{}

// Load implements SessionStore.
func (NopSessions) Load() (string, error) { return "", ErrNoSession }

// Save implements SessionStore.
func (NopSessions) Save(string) error { return nil }

// Clear implements SessionStore.
func (NopSessions) Clear() error { return nil }
