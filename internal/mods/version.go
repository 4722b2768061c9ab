// Package mods installs the MelonLoader runtime and the Custom Avatar Loader
// mod into a game directory.
package mods

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

// Action names what an Install call did.
type Action string

const (
	ActionInstalled Action = "installed"
	ActionUpdated   Action = "updated"
	ActionUpToDate  Action = "up-to-date"
	ActionSkipped   Action = "skipped"
)

// Result is the outcome of installing one mod component.
type Result struct {
	Action  Action
	Version string
}

// ReadVersion returns the trimmed content of a version marker, or "" when
// the file does not exist.
func ReadVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteVersion stores version in a marker file.
func WriteVersion(path, version string) error {
	return os.WriteFile(path, []byte(version), 0o644)
}
