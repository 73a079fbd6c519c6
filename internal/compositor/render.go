// Package compositor rasterizes an edited image: it applies the crop, draws
// the caption box and text, and encodes the result for download.
package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"imged/internal/geometry"
	"imged/internal/snapshot"
)

var (
	overlayBox = color.NRGBA{R: 24, G: 24, B: 27, A: 255}
	defaultBox = color.NRGBA{R: 0, G: 0, B: 0, A: 255}

	textWhite  = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	textBlack  = color.NRGBA{R: 0x02, G: 0x06, B: 0x17, A: 0xff}
	textAccent = color.NRGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
)

// boxFill returns the caption background and its opacity for a preset.
func boxFill(p snapshot.TitlePreset) (color.NRGBA, float64) {
	if p == snapshot.PresetOverlay {
		return overlayBox, 0.9
	}
	return defaultBox, 0.75
}

func textColor(c snapshot.Color) color.NRGBA {
	switch c {
	case snapshot.ColorBlack:
		return textBlack
	case snapshot.ColorAccent:
		return textAccent
	}
	return textWhite
}

// Renderer draws snapshots onto source images. It keeps no per-render state
// and is safe for concurrent use.
type Renderer struct {
	fonts *FontManager
}

// NewRenderer loads the caption fonts.
func NewRenderer(cfg FontConfig) (*Renderer, error) {
	fm, err := NewFontManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Renderer{fonts: fm}, nil
}

// Render returns the cropped image with the caption drawn on it. The output
// has exactly the pixel size of the resolved crop. A title whose anchor lies
// outside the crop is not drawn.
func (r *Renderer) Render(src image.Image, s snapshot.Snapshot) (*image.NRGBA, error) {
	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("empty source image")
	}

	rect := ResolveSource(s.Crop, bounds.Dx(), bounds.Dy()).Add(bounds.Min)
	dst := imaging.New(rect.Dx(), rect.Dy(), color.NRGBA{})
	dst = imaging.Paste(dst, imaging.Crop(src, rect), image.Point{})

	lines := SplitLines(s.Title)
	if len(lines) == 0 {
		return dst, nil
	}

	local, ok := Reproject(geometry.ClampTitle(s.Position), s.Crop)
	if !ok {
		return dst, nil
	}
	local = geometry.ClampTitle(local)

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	size := FontSize(w, h, s.Preset, s.SizeLevel)
	face, err := r.fonts.Face(size, s.Weight)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	layout := Measure(lines, size, face)
	center := geometry.Point{X: local.X * float64(w), Y: local.Y * float64(h)}
	return drawCaption(dst, face, layout, center, s.Style), nil
}

// Layout measures the caption for an output of the given size without drawing.
func (r *Renderer) Layout(s snapshot.Snapshot, width, height int) (Layout, error) {
	size := FontSize(width, height, s.Preset, s.SizeLevel)
	face, err := r.fonts.Face(size, s.Weight)
	if err != nil {
		return Layout{}, err
	}
	defer face.Close()
	return Measure(SplitLines(s.Title), size, face), nil
}

// BoxRect is the caption background in output pixels for a box centered on c.
func BoxRect(l Layout, c geometry.Point) image.Rectangle {
	x0 := c.X - l.BoxWidth/2
	y0 := c.Y - l.BoxHeight/2
	return image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x0+l.BoxWidth)), int(math.Round(y0+l.BoxHeight)),
	)
}

func drawCaption(dst *image.NRGBA, face font.Face, l Layout, c geometry.Point, style snapshot.Style) *image.NRGBA {
	box := BoxRect(l, c)
	fill, opacity := boxFill(style.Preset)
	if box.Dx() > 0 && box.Dy() > 0 {
		dst = imaging.Overlay(dst, imaging.New(box.Dx(), box.Dy(), fill), box.Min, opacity)
	}

	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor(style.Color)),
		Face: face,
	}

	// Lines are vertically centered on their slot, like a "middle" baseline.
	m := face.Metrics()
	middle := fixedToFloat(m.Ascent-m.Descent) / 2
	left := c.X - l.BoxWidth/2 + l.HorizontalPadding
	right := c.X + l.BoxWidth/2 - l.HorizontalPadding
	firstLine := c.Y - l.TextHeight()/2 + l.LineHeight/2

	for i, line := range l.Lines {
		var x float64
		switch style.Align {
		case snapshot.AlignLeft:
			x = left
		case snapshot.AlignRight:
			x = right - l.LineWidths[i]
		default:
			x = c.X - l.LineWidths[i]/2
		}
		y := firstLine + float64(i)*l.LineHeight + middle
		drawer.Dot = fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)}
		drawer.DrawString(line)
	}
	return dst
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
