package compositor

import (
	"image"
	"math"

	"imged/internal/geometry"
)

// ResolveSource converts the crop into a pixel rectangle of a width×height
// image. Without a crop the whole image is used. Each dimension is at least
// one pixel.
func ResolveSource(crop *geometry.Rect, width, height int) image.Rectangle {
	if crop == nil {
		return image.Rect(0, 0, width, height)
	}

	x := geometry.Clamp(crop.X, 0, 1)
	y := geometry.Clamp(crop.Y, 0, 1)
	w := geometry.Clamp(crop.Width, 0, 1-x)
	h := geometry.Clamp(crop.Height, 0, 1-y)

	sx := int(math.Round(x * float64(width)))
	sy := int(math.Round(y * float64(height)))
	sw := max(1, int(math.Round(w*float64(width))))
	sh := max(1, int(math.Round(h*float64(height))))
	return image.Rect(sx, sy, sx+sw, sy+sh)
}

// Reproject maps the title anchor into crop-local normalized coordinates.
// Without a crop the point is returned unchanged. ok is false when the anchor
// falls outside the crop; such a title is left out of the export.
func Reproject(pos geometry.Point, crop *geometry.Rect) (geometry.Point, bool) {
	if crop == nil {
		return pos, true
	}

	cx := geometry.Clamp(crop.X, 0, 1)
	cy := geometry.Clamp(crop.Y, 0, 1)
	cw := geometry.Clamp(crop.Width, 0.01, 1)
	ch := geometry.Clamp(crop.Height, 0.01, 1)

	local := geometry.Point{X: (pos.X - cx) / cw, Y: (pos.Y - cy) / ch}
	if local.X < 0 || local.X > 1 || local.Y < 0 || local.Y > 1 {
		return geometry.Point{}, false
	}
	return local, true
}
