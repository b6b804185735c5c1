// cmd/libraryctl/session.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"librent/internal/membership"
)

type sessionFile struct {
	Backend string              `json:"backend"`
	User    *membership.Session `json:"user"`
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".librent-session.json"
	}
	return filepath.Join(dir, "librent", "session.json")
}

// loadSession returns the user remembered for backend, nil when there is none.
func loadSession(path, backend string) (*membership.Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var f sessionFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, nil
	}
	if f.Backend != backend {
		return nil, nil
	}
	return f.User, nil
}

// saveSession remembers u, or forgets the session when u is nil.
func saveSession(path, backend string, u *membership.Session) error {
	if u == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		return nil
	}
	raw, err := json.MarshalIndent(sessionFile{Backend: backend, User: u}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
