package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"imged/internal/snapshot"
)

// DefaultSlotKey names the local autosave slot.
const DefaultSlotKey = "session-v1"

// Slot is a single local autosave document, the desktop counterpart of the
// browser's local storage entry.
type Slot struct {
	path string
}

// NewSlot returns a slot stored as <dir>/<key>.json.
func NewSlot(dir, key string) *Slot {
	if key == "" {
		key = DefaultSlotKey
	}
	return &Slot{path: filepath.Join(dir, key+".json")}
}

// Load reports false when nothing has been saved yet.
func (s *Slot) Load(_ context.Context) (snapshot.Session, bool, error) {
	sess, err := readSession(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot.Session{}, false, nil
	}
	if err != nil {
		return snapshot.Session{}, false, err
	}
	return sess, true, nil
}

func (s *Slot) Save(_ context.Context, sess snapshot.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create slot directory: %w", err)
	}
	return writeJSON(s.path, sess)
}

func (s *Slot) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear slot: %w", err)
	}
	return nil
}
