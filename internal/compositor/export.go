package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"

	"imged/internal/snapshot"
)

// DefaultJPEGQuality matches the browser's default canvas JPEG quality.
const DefaultJPEGQuality = 92

// FallbackBaseName is used when neither an export name nor an original
// file name is known.
const FallbackBaseName = "edited-image"

// Export is an encoded image ready to hand to a download sink.
type Export struct {
	Filename string
	Format   snapshot.Format
	Width    int
	Height   int
	Data     []byte
}

// ContentType is the MIME type of Data.
func (e *Export) ContentType() string {
	return e.Format.MIME()
}

// BaseName strips the last extension from a file name. Names without a dot,
// or whose only dot is the first character, are returned unchanged.
func BaseName(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name
	}
	return name[:i]
}

// Filename picks the download name: the trimmed export name if set, else the
// original file's base name, else FallbackBaseName.
func Filename(exportName, originalFileName string, format snapshot.Format) string {
	base := strings.TrimSpace(exportName)
	if base == "" {
		base = FallbackBaseName
		if originalFileName != "" {
			base = BaseName(originalFileName)
		}
	}
	return base + "." + format.Extension()
}

// Encode writes img as PNG or JPEG. quality applies to JPEG only.
func Encode(w io.Writer, img image.Image, format snapshot.Format, quality int) error {
	var err error
	switch format {
	case snapshot.FormatJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case snapshot.FormatPNG:
		err = imaging.Encode(w, img, imaging.PNG)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// Decode reads an image and applies its EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// DecodeContext decodes data on its own goroutine and waits for the result
// or for ctx to end. A decode abandoned by ctx still runs to completion.
func DecodeContext(ctx context.Context, data []byte) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := Decode(bytes.NewReader(data))
		done <- result{img, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.img, res.err
	}
}

// Exporter turns a source image and a snapshot into an encoded download.
type Exporter struct {
	Renderer    *Renderer
	JPEGQuality int
}

// NewExporter returns an exporter using r. A non-positive quality selects
// DefaultJPEGQuality.
func NewExporter(r *Renderer, jpegQuality int) *Exporter {
	if jpegQuality <= 0 {
		jpegQuality = DefaultJPEGQuality
	}
	return &Exporter{Renderer: r, JPEGQuality: jpegQuality}
}

// Export decodes source, renders s onto it and encodes the result. When the
// source cannot be decoded, has no area, or the output cannot be produced,
// ok is false and nothing is returned; the reason is only logged.
func (e *Exporter) Export(ctx context.Context, source []byte, s snapshot.Snapshot, originalFileName string) (*Export, bool) {
	logger := log.Ctx(ctx).With().Str("original", originalFileName).Logger()

	src, err := DecodeContext(ctx, source)
	if err != nil {
		logger.Debug().Err(err).Msg("export skipped: source did not decode")
		return nil, false
	}
	return e.ExportImage(ctx, src, s, originalFileName)
}

// ExportImage is Export for an already decoded source.
func (e *Exporter) ExportImage(ctx context.Context, src image.Image, s snapshot.Snapshot, originalFileName string) (*Export, bool) {
	logger := log.Ctx(ctx).With().Str("original", originalFileName).Logger()

	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		logger.Debug().Msg("export skipped: source has no dimensions")
		return nil, false
	}

	out, err := e.Renderer.Render(src, s)
	if err != nil {
		logger.Warn().Err(err).Msg("export skipped: render failed")
		return nil, false
	}

	format := s.DownloadFormat
	if !format.Valid() {
		format = snapshot.FormatPNG
	}

	var buf bytes.Buffer
	if err := Encode(&buf, out, format, e.JPEGQuality); err != nil {
		logger.Warn().Err(err).Msg("export skipped: encode failed")
		return nil, false
	}

	exp := &Export{
		Filename: Filename(s.DownloadName, originalFileName, format),
		Format:   format,
		Width:    out.Bounds().Dx(),
		Height:   out.Bounds().Dy(),
		Data:     buf.Bytes(),
	}
	logger.Debug().
		Str("filename", exp.Filename).
		Int("width", exp.Width).
		Int("height", exp.Height).
		Msg("exported")
	return exp, true
}

// ExportSession exports a stored session, whose image is a data URL.
func (e *Exporter) ExportSession(ctx context.Context, sess snapshot.Session) (*Export, bool) {
	if sess.Snapshot == nil {
		return nil, false
	}
	_, data, err := snapshot.DecodeDataURL(sess.ImageDataURL)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("session", sess.ID).Msg("export skipped: bad image data URL")
		return nil, false
	}
	return e.Export(ctx, data, *sess.Snapshot, sess.OriginalFileName)
}
