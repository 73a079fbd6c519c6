package snapshot

import (
	"encoding/json"
	"fmt"
)

// TitlePreset bundles the caption box background, padding and font scale.
type TitlePreset string

const (
	PresetMedium  TitlePreset = "medium"
	PresetCenter  TitlePreset = "center"
	PresetOverlay TitlePreset = "overlay"
)

func (p TitlePreset) Valid() bool {
	switch p {
	case PresetMedium, PresetCenter, PresetOverlay:
		return true
	}
	return false
}

// SizeLevel is the small/medium/large title size picker.
type SizeLevel int

const (
	SizeSmall SizeLevel = iota
	SizeMedium
	SizeLarge
)

func (l SizeLevel) Valid() bool {
	return l >= SizeSmall && l <= SizeLarge
}

func (l SizeLevel) String() string {
	switch l {
	case SizeSmall:
		return "small"
	case SizeMedium:
		return "medium"
	case SizeLarge:
		return "large"
	}
	return fmt.Sprintf("SizeLevel(%d)", int(l))
}

// UnmarshalJSON accepts the numeric form the browser stores.
func (l *SizeLevel) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to unmarshal title size level: %w", err)
	}
	*l = SizeLevel(n)
	return nil
}

type Weight string

const (
	WeightRegular Weight = "regular"
	WeightBold    Weight = "bold"
)

func (w Weight) Valid() bool {
	return w == WeightRegular || w == WeightBold
}

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

func (a Align) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

type Color string

const (
	ColorWhite  Color = "white"
	ColorBlack  Color = "black"
	ColorAccent Color = "accent"
)

func (c Color) Valid() bool {
	switch c {
	case ColorWhite, ColorBlack, ColorAccent:
		return true
	}
	return false
}

// Format is the export encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

func (f Format) Valid() bool {
	return f == FormatPNG || f == FormatJPEG
}

// Extension is the file extension used for downloads, without the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// MIME returns the content type of the encoded export.
func (f Format) MIME() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseFormat accepts "png", "jpeg" and the "jpg" alias.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Style is the caption styling. Its fields are flattened into the snapshot JSON.
type Style struct {
	Preset    TitlePreset `json:"titlePreset"`
	SizeLevel SizeLevel   `json:"titleSizeLevel"`
	Weight    Weight      `json:"titleWeight"`
	Color     Color       `json:"titleColor"`
	Align     Align       `json:"titleAlign"`
}

// DefaultStyle matches a freshly opened editor.
func DefaultStyle() Style {
	return Style{
		Preset:    PresetMedium,
		SizeLevel: SizeMedium,
		Weight:    WeightBold,
		Color:     ColorWhite,
		Align:     AlignCenter,
	}
}

// Validate reports the first field holding an unknown value.
func (s Style) Validate() error {
	switch {
	case !s.Preset.Valid():
		return fmt.Errorf("invalid title preset %q", s.Preset)
	case !s.SizeLevel.Valid():
		return fmt.Errorf("invalid title size level %d", s.SizeLevel)
	case !s.Weight.Valid():
		return fmt.Errorf("invalid title weight %q", s.Weight)
	case !s.Color.Valid():
		return fmt.Errorf("invalid title color %q", s.Color)
	case !s.Align.Valid():
		return fmt.Errorf("invalid title align %q", s.Align)
	}
	return nil
}

// normalize replaces unknown values with defaults.
func (s Style) normalize() Style {
	d := DefaultStyle()
	if !s.Preset.Valid() {
		s.Preset = d.Preset
	}
	if !s.SizeLevel.Valid() {
		s.SizeLevel = d.SizeLevel
	}
	if !s.Weight.Valid() {
		s.Weight = d.Weight
	}
	if !s.Color.Valid() {
		s.Color = d.Color
	}
	if !s.Align.Valid() {
		s.Align = d.Align
	}
	return s
}
