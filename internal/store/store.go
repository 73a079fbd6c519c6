// Package store persists editor sessions for share links and the gallery.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"imged/internal/snapshot"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrInvalidID = errors.New("invalid session id")
)

// Kind filters List results.
type Kind string

const (
	KindAll      Kind = ""
	KindTemplate Kind = "template"
	KindPublic   Kind = "public"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Query selects sessions for List. Results are newest first.
type Query struct {
	Kind  Kind
	Limit int
}

// NormalizedLimit applies the default and bounds the limit to [1, MaxLimit].
func (q Query) NormalizedLimit() int {
	if q.Limit == 0 {
		return DefaultLimit
	}
	return min(max(q.Limit, 1), MaxLimit)
}

func (q Query) match(s snapshot.Session) bool {
	switch q.Kind {
	case KindTemplate:
		return s.IsTemplate
	case KindPublic:
		return s.IsPublic
	}
	return true
}

// Store is the persistence collaborator for shared sessions.
type Store interface {
	Create(ctx context.Context, sess snapshot.Session) (snapshot.Session, error)
	Get(ctx context.Context, id string) (snapshot.Session, error)
	List(ctx context.Context, q Query) ([]snapshot.Session, error)
}

// ValidateID rejects IDs that could not have been issued by Create.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// prepare validates sess and stamps a new ID and timestamps.
func prepare(sess snapshot.Session, now time.Time) (snapshot.Session, error) {
	if err := sess.Validate(); err != nil {
		return snapshot.Session{}, err
	}
	s := sess.Snapshot.Normalize()
	sess.Snapshot = &s
	sess.ID = uuid.NewString()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	return sess, nil
}

// selectSessions filters, orders newest first and truncates.
func selectSessions(all []snapshot.Session, q Query) []snapshot.Session {
	out := make([]snapshot.Session, 0, len(all))
	for _, s := range all {
		if q.match(s) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := q.NormalizedLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out
}
