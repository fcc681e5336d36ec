// Package session persists the one piece of state that survives a
// restart: whether the user was logged in. Roster and histories are
// always rebuilt from scratch on session start.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type flagFile struct {
	LoggedIn bool `json:"loggedIn"`
}

// FileFlag stores the logged-in flag in a small JSON file.
type FileFlag struct {
	path string
}

func NewFileFlag(path string) *FileFlag {
	return &FileFlag{path: path}
}

// Set writes the flag, creating parent directories as needed.
func (f *FileFlag) Set(loggedIn bool) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(flagFile{LoggedIn: loggedIn})
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, b, 0o600)
}

// Get reads the flag. A missing or unreadable file reads as logged out.
func (f *FileFlag) Get() bool {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return false
	}
	var v flagFile
	if err := json.Unmarshal(b, &v); err != nil {
		return false
	}
	return v.LoggedIn
}
