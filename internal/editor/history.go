package editor

import "imged/internal/snapshot"

// DefaultHistoryCapacity is how many undo steps are kept.
const DefaultHistoryCapacity = 50

// History is a bounded undo stack backed by a ring buffer. When full, a push
// drops the oldest snapshot.
type History struct {
	buf   []snapshot.Snapshot
	start int
	n     int
}

// NewHistory returns an empty history holding at most capacity snapshots.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]snapshot.Snapshot, capacity)}
}

func (h *History) Len() int { return h.n }
func (h *History) Cap() int { return len(h.buf) }

// Push appends s, evicting the oldest entry when the ring is full.
func (h *History) Push(s snapshot.Snapshot) {
	s = s.Clone()
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = s
		h.n++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

// Pop removes and returns the newest snapshot.
func (h *History) Pop() (snapshot.Snapshot, bool) {
	if h.n == 0 {
		return snapshot.Snapshot{}, false
	}
	i := (h.start + h.n - 1) % len(h.buf)
	s := h.buf[i]
	h.buf[i] = snapshot.Snapshot{}
	h.n--
	return s, true
}

// Peek returns the newest snapshot without removing it.
func (h *History) Peek() (snapshot.Snapshot, bool) {
	if h.n == 0 {
		return snapshot.Snapshot{}, false
	}
	return h.buf[(h.start+h.n-1)%len(h.buf)], true
}

// Clear drops every entry.
func (h *History) Clear() {
	clear(h.buf)
	h.start, h.n = 0, 0
}
