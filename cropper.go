package main

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"imged/internal/compositor"
	"imged/internal/cropratio"
	"imged/internal/geometry"
	"imged/internal/snapshot"
)

// CropOperation crops an image file without a caption. Aspect, when set,
// fits the crop to one of the presets; Crop is the starting rectangle.
type CropOperation struct {
	Image  string         `json:"image"`
	Aspect string         `json:"aspect,omitempty"`
	Crop   *geometry.Rect `json:"crop,omitempty"`
	Format string         `json:"format,omitempty"`
	Output string         `json:"output,omitempty"`
}

// Snapshot builds the caption-free snapshot the crop is rendered with.
func (op CropOperation) Snapshot() (snapshot.Snapshot, error) {
	s := snapshot.Default()

	if op.Format != "" {
		f, err := snapshot.ParseFormat(op.Format)
		if err != nil {
			return s, err
		}
		s.DownloadFormat = f
	}

	switch {
	case op.Aspect != "":
		crop, err := cropratio.ResolveTag(op.Aspect, op.Crop)
		if err != nil {
			return s, err
		}
		s.Crop = &crop
	case op.Crop != nil:
		crop := op.Crop.Normalize()
		s.Crop = &crop
	}
	return s, nil
}

// ID identifies the crop geometry so several crops of one image do not
// overwrite each other.
func (op CropOperation) ID() string {
	key := "full"
	if op.Aspect != "" {
		key = "aspect(" + op.Aspect + ")"
	}
	if op.Crop != nil {
		key += op.Crop.String()
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(key)))[:8]
}

func (r OperationExecutor) executeCrop(ctx context.Context, op CropOperation) error {
	log.Ctx(ctx).Info().Str("image", op.Image).Str("aspect", op.Aspect).Msg("cropping")
	s, err := op.Snapshot()
	if err != nil {
		return fmt.Errorf("invalid crop operation for %s: %w", op.Image, err)
	}

	source, err := os.ReadFile(r.resolve(op.Image))
	if err != nil {
		return fmt.Errorf("failed to read image %s: %w", op.Image, err)
	}

	output := op.Output
	if output == "" {
		base := compositor.BaseName(filepath.Base(op.Image))
		output = fmt.Sprintf("%s-%s.%s", base, op.ID(), s.DownloadFormat.Extension())
	}
	return r.render(ctx, source, s, filepath.Base(op.Image), output)
}
