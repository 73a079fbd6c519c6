package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"imged/internal/snapshot"
)

// DirStore keeps one JSON document per session in a directory.
type DirStore struct {
	dir string
	now func() time.Time
}

// NewDirStore creates dir if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &DirStore{dir: dir, now: time.Now}, nil
}

func (d *DirStore) path(id string) string {
	return filepath.Join(d.dir, id+".json")
}

func (d *DirStore) Create(ctx context.Context, sess snapshot.Session) (snapshot.Session, error) {
	sess, err := prepare(sess, d.now())
	if err != nil {
		return snapshot.Session{}, err
	}
	if err := writeJSON(d.path(sess.ID), sess); err != nil {
		return snapshot.Session{}, err
	}
	log.Ctx(ctx).Debug().Str("id", sess.ID).Msg("session stored")
	return sess, nil
}

func (d *DirStore) Get(_ context.Context, id string) (snapshot.Session, error) {
	if err := ValidateID(id); err != nil {
		return snapshot.Session{}, err
	}
	sess, err := readSession(d.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot.Session{}, ErrNotFound
	}
	return sess, err
}

func (d *DirStore) List(ctx context.Context, q Query) ([]snapshot.Session, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory %s: %w", d.dir, err)
	}

	var all []snapshot.Session
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if ValidateID(strings.TrimSuffix(name, ".json")) != nil {
			continue
		}
		sess, err := readSession(filepath.Join(d.dir, name))
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("filename", name).Msg("cannot read session")
			continue
		}
		all = append(all, sess)
	}
	return selectSessions(all, q), nil
}

func readSession(path string) (snapshot.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot.Session{}, err
	}
	var sess snapshot.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return snapshot.Session{}, fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	return sess, nil
}

// writeJSON writes through a temp file so readers never see a partial document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move session file into place: %w", err)
	}
	return nil
}
