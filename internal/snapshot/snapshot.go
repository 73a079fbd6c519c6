// Package snapshot defines the editable state of one image and its JSON codec.
//
// A Snapshot is the unit of undo history and persistence. Values are treated
// as immutable once handed out: every edit produces a new Snapshot via Clone.
package snapshot

import (
	"encoding/json"
	"fmt"

	"imged/internal/geometry"
)

type Snapshot struct {
	Title string `json:"title"`
	Style
	Position geometry.Point `json:"titlePosition"`
	// Crop is nil when the full image is exported.
	Crop           *geometry.Rect `json:"cropRect"`
	DownloadName   string         `json:"downloadName"`
	DownloadFormat Format         `json:"downloadFormat"`
}

// Default returns the state of a freshly opened editor.
func Default() Snapshot {
	return Snapshot{
		Style:          DefaultStyle(),
		Position:       geometry.DefaultTitlePosition(),
		DownloadFormat: FormatPNG,
	}
}

// Clone returns a deep copy; the crop is not shared.
func (s Snapshot) Clone() Snapshot {
	if s.Crop != nil {
		c := *s.Crop
		s.Crop = &c
	}
	return s
}

// Validate reports unknown enum values.
func (s Snapshot) Validate() error {
	if err := s.Style.Validate(); err != nil {
		return err
	}
	if !s.DownloadFormat.Valid() {
		return fmt.Errorf("invalid download format %q", s.DownloadFormat)
	}
	return nil
}

// Normalize re-applies the geometry invariants and replaces unknown enum
// values with defaults. Snapshots from storage always go through it.
func (s Snapshot) Normalize() Snapshot {
	s = s.Clone()
	s.Style = s.Style.normalize()
	if !s.DownloadFormat.Valid() {
		s.DownloadFormat = FormatPNG
	}
	s.Position = geometry.ClampTitle(s.Position)
	if s.Crop != nil {
		c := s.Crop.Normalize()
		s.Crop = &c
	}
	return s
}

// Equal compares two snapshots by value, following the crop pointer.
func Equal(a, b Snapshot) bool {
	if (a.Crop == nil) != (b.Crop == nil) {
		return false
	}
	if a.Crop != nil && *a.Crop != *b.Crop {
		return false
	}
	a.Crop, b.Crop = nil, nil
	return a == b
}

// Marshal encodes s as the camelCase JSON document the browser stores.
func Marshal(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a snapshot. Missing fields take their defaults and the
// result is normalized.
func Unmarshal(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return s, nil
}

// UnmarshalJSON applies defaults and normalization when a snapshot is nested
// inside another document.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	p := plain(Default())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Snapshot(p).Normalize()
	return nil
}
