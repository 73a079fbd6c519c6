// Package cropratio resolves crop presets: it reshapes an existing crop to a
// target aspect ratio around its current center.
package cropratio

import (
	"fmt"

	"imged/internal/geometry"
)

// AspectRatio is a named crop preset.
type AspectRatio struct {
	Width  int
	Height int
	Name   string
}

// Ratio returns width over height.
func (a AspectRatio) Ratio() float64 {
	return float64(a.Width) / float64(a.Height)
}

func (a AspectRatio) String() string {
	return fmt.Sprintf("%d:%d", a.Width, a.Height)
}

// Supported presets
var (
	Square     = AspectRatio{1, 1, "square"}
	Portrait   = AspectRatio{4, 5, "portrait"}
	Widescreen = AspectRatio{16, 9, "widescreen"}
)

// Presets returns the presets offered by the editor, in display order.
func Presets() []AspectRatio {
	return []AspectRatio{Square, Portrait, Widescreen}
}

// Parse maps a tag like "4:5" to its preset.
func Parse(tag string) (AspectRatio, error) {
	for _, a := range Presets() {
		if a.String() == tag {
			return a, nil
		}
	}
	return AspectRatio{}, fmt.Errorf("unknown crop preset %q", tag)
}

// minSide bounds each side after fitting; it is looser than the drag minimum.
const minSide = 0.2

// Resolve reshapes crop to the target aspect ratio.
//
// With no crop the default centered rect is returned and the ratio is
// ignored; picking a preset a second time applies it. Otherwise the side
// that is too long is shortened, both sides are clamped to [0.2, 1] and the
// rect is recentered on its old center, sliding back into the frame if needed.
func Resolve(target AspectRatio, crop *geometry.Rect) geometry.Rect {
	if crop == nil {
		return geometry.DefaultCrop()
	}

	center := crop.Center()
	width, height := crop.Width, crop.Height
	ratio := target.Ratio()

	if crop.Aspect() > ratio {
		width = height * ratio
	} else {
		height = width / ratio
	}

	width = geometry.Clamp(width, minSide, 1)
	height = geometry.Clamp(height, minSide, 1)

	return geometry.Rect{
		X:      center.X - width/2,
		Y:      center.Y - height/2,
		Width:  width,
		Height: height,
	}.ClampInside()
}

// ResolveTag is Resolve for a textual preset tag.
func ResolveTag(tag string, crop *geometry.Rect) (geometry.Rect, error) {
	target, err := Parse(tag)
	if err != nil {
		return geometry.Rect{}, err
	}
	return Resolve(target, crop), nil
}
