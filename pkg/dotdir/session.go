package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	sessionFile = "session.json"
)

// Session is the persisted CLI selection: the year commands default to and
// the author attributed on posts.
type Session struct {
	Year   int    `json:"year"`
	Author string `json:"author,omitempty"`
}

// LoadSession loads the session from a target .yearbook/session.json.
// Returns nil, nil if no session has been saved.
func (m *Manager) LoadSession(overrideDir string) (*Session, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	s := &Session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}

	return s, nil
}

// SaveSession persists the session to a target .yearbook/session.json.
func (m *Manager) SaveSession(s *Session, overrideDir string) error {
	if s == nil {
		return errors.New("cannot save nil session")
	}

	if s.Year <= 0 {
		return fmt.Errorf("session year must be positive, got %d", s.Year)
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	return nil
}

// ClearSession removes the session file. Returns nil if it doesn't exist.
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session: %w", err)
	}

	return nil
}
