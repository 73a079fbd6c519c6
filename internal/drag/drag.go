// Package drag turns pointer interactions on the preview into geometry updates.
//
// It is split in two layers. Delta normalizes raw container coordinates into
// resolution-independent deltas, and the pure functions MoveTitle, MoveCrop
// and ResizeCrop compute new geometry from a drag-start value and a delta.
// Controller ties them together as a small state machine for one pointer.
package drag

import (
	"fmt"

	"imged/internal/geometry"
)

// Mode is the kind of interaction in progress.
type Mode int

const (
	ModeNone Mode = iota
	ModeTitle
	ModeCropMove
	ModeCropResize
)

func (m Mode) String() string {
	switch m {
	case ModeTitle:
		return "dragging-title"
	case ModeCropMove:
		return "dragging-crop-move"
	case ModeCropResize:
		return "dragging-crop-resize"
	default:
		return "idle"
	}
}

// Handle is one of the four crop corner handles.
type Handle string

const (
	HandleNW Handle = "nw"
	HandleNE Handle = "ne"
	HandleSW Handle = "sw"
	HandleSE Handle = "se"
)

// HandleMove is the pseudo-handle for a pointer-down on the crop body.
const HandleMove Handle = "move"

// ParseHandle validates a handle name coming from the input layer.
func ParseHandle(s string) (Handle, error) {
	switch h := Handle(s); h {
	case HandleNW, HandleNE, HandleSW, HandleSE, HandleMove:
		return h, nil
	}
	return "", fmt.Errorf("unknown crop handle %q", s)
}

// Pointer is a pointer position in container pixels.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is the rendered size of the preview container in pixels.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Delta returns the pointer displacement since start as a fraction of the
// container size. ok is false when the container has no area, in which case
// the move must be ignored.
func Delta(start, current Pointer, b Bounds) (dx, dy float64, ok bool) {
	if b.Width <= 0 || b.Height <= 0 {
		return 0, 0, false
	}
	return (current.X - start.X) / b.Width, (current.Y - start.Y) / b.Height, true
}

// MoveTitle offsets the drag-start title position, clamped per axis.
func MoveTitle(start geometry.Point, dx, dy float64) geometry.Point {
	return geometry.ClampTitle(geometry.Point{X: start.X + dx, Y: start.Y + dy})
}

// MoveCrop translates the crop, keeping its size and keeping it in frame.
func MoveCrop(start geometry.Rect, dx, dy float64) geometry.Rect {
	return geometry.Rect{
		X:      geometry.Clamp(start.X+dx, 0, max(0, 1-start.Width)),
		Y:      geometry.Clamp(start.Y+dy, 0, max(0, 1-start.Height)),
		Width:  start.Width,
		Height: start.Height,
	}
}

// ResizeCrop moves the two edges adjacent to handle while the opposite corner
// stays put. The result is re-clamped to [MinCropSize, 1] and into the frame
// so float error cannot accumulate across moves.
func ResizeCrop(start geometry.Rect, h Handle, dx, dy float64) geometry.Rect {
	const minSize = geometry.MinCropSize
	x, y, width, height := start.X, start.Y, start.Width, start.Height

	switch h {
	case HandleNW:
		nextX := geometry.Clamp(x+dx, 0, x+width-minSize)
		nextY := geometry.Clamp(y+dy, 0, y+height-minSize)
		width += x - nextX
		height += y - nextY
		x, y = nextX, nextY
	case HandleNE:
		nextWidth := geometry.Clamp(width+dx, minSize, 1-x)
		nextY := geometry.Clamp(y+dy, 0, y+height-minSize)
		height += y - nextY
		y = nextY
		width = nextWidth
	case HandleSW:
		nextX := geometry.Clamp(x+dx, 0, x+width-minSize)
		nextHeight := geometry.Clamp(height+dy, minSize, 1-y)
		width += x - nextX
		x = nextX
		height = nextHeight
	case HandleSE:
		width = geometry.Clamp(width+dx, minSize, 1-x)
		height = geometry.Clamp(height+dy, minSize, 1-y)
	}

	return geometry.Rect{X: x, Y: y, Width: width, Height: height}.Normalize()
}
