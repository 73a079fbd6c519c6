// Package geometry holds the normalized coordinate model shared by the
// editor, the drag controller and the compositor. All values are fractions
// of the source image width or height.
package geometry

import "fmt"

const (
	// TitleMin and TitleMax bound both axes of the title anchor.
	TitleMin = 0.05
	TitleMax = 0.95

	// MinCropSize is the smallest width or height a crop can be dragged to.
	MinCropSize = 0.15
)

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Point is a normalized position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("point(x=%.3f,y=%.3f)", p.X, p.Y)
}

// ClampTitle keeps the title anchor inside [TitleMin, TitleMax] on both axes.
// The rendered caption box may still overflow the frame; only the anchor is held.
func ClampTitle(p Point) Point {
	return Point{
		X: Clamp(p.X, TitleMin, TitleMax),
		Y: Clamp(p.Y, TitleMin, TitleMax),
	}
}

// DefaultTitlePosition is where the title lands after a new image is loaded.
func DefaultTitlePosition() Point {
	return Point{X: 0.5, Y: 0.82}
}

// Rect is a normalized crop region.
type Rect struct {
	// X is the left edge, relative to the image width.
	X float64 `json:"x"`
	// Y is the top edge, relative to the image height.
	Y float64 `json:"y"`
	// Width is relative to the image width.
	Width float64 `json:"width"`
	// Height is relative to the image height.
	Height float64 `json:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("crop(x=%.3f,y=%.3f,w=%.3f,h=%.3f)", r.X, r.Y, r.Width, r.Height)
}

// DefaultCrop is the centered rect created the first time a crop preset is picked.
func DefaultCrop() Rect {
	return Rect{X: 0.08, Y: 0.08, Width: 0.84, Height: 0.84}
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the midpoint of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Aspect is width over height in normalized units. Zero height yields 0.
func (r Rect) Aspect() float64 {
	if r.Height == 0 {
		return 0
	}
	return r.Width / r.Height
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// ClampInside moves r so that x ∈ [0, 1-width] and y ∈ [0, 1-height].
// Width and height are left alone. Applying it twice equals applying it once.
func (r Rect) ClampInside() Rect {
	r.X = Clamp(r.X, 0, max(0, 1-r.Width))
	r.Y = Clamp(r.Y, 0, max(0, 1-r.Height))
	return r
}

// ClampSize limits width and height to [minSize, 1].
func (r Rect) ClampSize(minSize float64) Rect {
	r.Width = Clamp(r.Width, minSize, 1)
	r.Height = Clamp(r.Height, minSize, 1)
	return r
}

// Normalize clamps size to [MinCropSize, 1] and then position into the frame.
func (r Rect) Normalize() Rect {
	return r.ClampSize(MinCropSize).ClampInside()
}

// Valid reports whether r satisfies the crop invariants: inside the unit
// frame and at least MinCropSize on both axes. eps absorbs float error.
func (r Rect) Valid(eps float64) bool {
	return r.X >= -eps && r.Y >= -eps &&
		r.Right() <= 1+eps && r.Bottom() <= 1+eps &&
		r.Width >= MinCropSize-eps && r.Height >= MinCropSize-eps
}
