package compositor

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"imged/internal/snapshot"
)

// FontConfig points at optional TTF/OTF files. Empty paths use the embedded
// Go fonts.
type FontConfig struct {
	RegularPath string
	BoldPath    string
}

// FontManager holds the parsed regular and bold fonts.
type FontManager struct {
	regular *opentype.Font
	bold    *opentype.Font
}

// NewFontManager parses both weights. A custom font that cannot be read
// falls back to the embedded one with a warning; an embedded font that does
// not parse is an error.
func NewFontManager(cfg FontConfig) (*FontManager, error) {
	regular, err := loadFont(cfg.RegularPath, goregular.TTF)
	if err != nil {
		return nil, err
	}
	bold, err := loadFont(cfg.BoldPath, gobold.TTF)
	if err != nil {
		return nil, err
	}
	return &FontManager{regular: regular, bold: bold}, nil
}

func loadFont(path string, fallback []byte) (*opentype.Font, error) {
	data := fallback
	if path != "" {
		custom, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not load custom font, using default")
		} else {
			data = custom
		}
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return parsed, nil
}

// Face returns a face of the given pixel size for the weight. The caller
// closes it.
func (fm *FontManager) Face(size float64, weight snapshot.Weight) (font.Face, error) {
	f := fm.regular
	if weight == snapshot.WeightBold {
		f = fm.bold
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}
