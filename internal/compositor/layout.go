package compositor

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/text/unicode/norm"

	"imged/internal/snapshot"
)

const minFontSize = 14

// FontSize derives the caption size from the shorter side of the output.
func FontSize(width, height int, preset snapshot.TitlePreset, level snapshot.SizeLevel) float64 {
	base := float64(min(width, height))
	size := math.Max(minFontSize, math.Round(base*0.018))
	return math.Round(size * presetScale(preset) * sizeScale(level))
}

func presetScale(p snapshot.TitlePreset) float64 {
	switch p {
	case snapshot.PresetCenter:
		return 1.1
	case snapshot.PresetOverlay:
		return 1.05
	}
	return 1
}

func sizeScale(l snapshot.SizeLevel) float64 {
	switch l {
	case snapshot.SizeSmall:
		return 0.9
	case snapshot.SizeLarge:
		return 1.15
	}
	return 1
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// SplitLines trims the title and splits it on line breaks. An empty title
// yields no lines. Text is NFC-composed so accented letters map to single
// glyphs.
func SplitLines(title string) []string {
	trimmed := strings.TrimSpace(norm.NFC.String(title))
	if trimmed == "" {
		return nil
	}
	return lineBreak.Split(trimmed, -1)
}

// Layout is the measured caption box. Sizes are in output pixels.
type Layout struct {
	FontSize          float64
	LineHeight        float64
	HorizontalPadding float64
	VerticalPadding   float64
	Lines             []string
	LineWidths        []float64
	BoxWidth          float64
	BoxHeight         float64
}

// TextHeight is the height taken by the lines without padding.
func (l Layout) TextHeight() float64 {
	return l.LineHeight * float64(len(l.Lines))
}

// Measure lays out lines with face, whose size must be fontSize.
func Measure(lines []string, fontSize float64, face font.Face) Layout {
	l := Layout{
		FontSize:          fontSize,
		LineHeight:        math.Round(fontSize * 1.3),
		HorizontalPadding: math.Max(16, math.Round(fontSize*1.8)),
		VerticalPadding:   math.Max(8, math.Round(fontSize*0.7)),
		Lines:             lines,
		LineWidths:        make([]float64, len(lines)),
	}

	var maxWidth float64
	for i, line := range lines {
		w := fixedToFloat(font.MeasureString(face, line))
		l.LineWidths[i] = w
		maxWidth = math.Max(maxWidth, w)
	}

	l.BoxWidth = maxWidth + 2*l.HorizontalPadding
	l.BoxHeight = l.TextHeight() + 2*l.VerticalPadding
	return l
}
