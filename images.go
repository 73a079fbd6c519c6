package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

var sourceExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SourceImage is an image under the library root that can be opened in the editor.
type SourceImage struct {
	Name       string    `json:"name"`
	MIME       string    `json:"mime"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	URL        string    `json:"url"`
	Image      ImageInfo `json:"image"`
}

type Library struct {
	Name   string        `json:"name"`
	Images []SourceImage `json:"images"`
}

func isSourceImage(path string) bool {
	return slices.Contains(sourceExtensions, strings.ToLower(filepath.Ext(path)))
}

func walkImages(ctx context.Context, rootPath string) (Library, error) {
	var images []SourceImage

	if err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isSourceImage(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info: %w", err)
		}
		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		images = append(images, SourceImage{
			Name:       filepath.ToSlash(relPath),
			MIME:       mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	}); err != nil {
		return Library{}, err
	}

	for i := range images {
		w, h, err := readImageDimensions(filepath.Join(rootPath, filepath.FromSlash(images[i].Name)))
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("filename", images[i].Name).Msg("cannot read image dimensions")
			continue
		}
		images[i].Image = ImageInfo{
			Width:  w,
			Height: h,
		}
	}

	return Library{
		Name:   filepath.Base(rootPath),
		Images: images,
	}, nil
}

// readImageDimensions reads only the image header.
func readImageDimensions(filePath string) (width, height int, err error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// readSourceImage loads a library image for export, returning its bytes and
// content type.
func readSourceImage(rootPath, name string) ([]byte, string, error) {
	if !isSourceImage(name) {
		return nil, "", fmt.Errorf("not an image: %s", name)
	}
	data, err := fs.ReadFile(os.DirFS(rootPath), name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, mime.TypeByExtension(strings.ToLower(filepath.Ext(name))), nil
}
