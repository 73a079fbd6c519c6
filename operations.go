package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"imged/internal/compositor"
	"imged/internal/snapshot"
)

type Operations = []Operation

// Operation is one line of a batch file. Exactly one field is set.
type Operation struct {
	Export  *ExportOperation
	Caption *CaptionOperation
	Crop    *CropOperation
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var op struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &op); err != nil {
		return fmt.Errorf("failed to unmarshal operation: %w", err)
	}

	switch op.Type {
	case "export":
		var export ExportOperation
		if err := json.Unmarshal(data, &export); err != nil {
			return fmt.Errorf("failed to unmarshal export operation: %w", err)
		}
		o.Export = &export
	case "caption":
		var caption CaptionOperation
		if err := json.Unmarshal(data, &caption); err != nil {
			return fmt.Errorf("failed to unmarshal caption operation: %w", err)
		}
		o.Caption = &caption
	case "crop":
		var crop CropOperation
		if err := json.Unmarshal(data, &crop); err != nil {
			return fmt.Errorf("failed to unmarshal crop operation: %w", err)
		}
		o.Crop = &crop
	default:
		return fmt.Errorf("unknown operation %q", op.Type)
	}
	return nil
}

func (o Operation) MarshalJSON() ([]byte, error) {
	switch {
	case o.Export != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*ExportOperation
		}{"export", o.Export})
	case o.Caption != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*CaptionOperation
		}{"caption", o.Caption})
	case o.Crop != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*CropOperation
		}{"crop", o.Crop})
	}
	return nil, errors.New("empty operation")
}

// ExportOperation renders a stored session file. Image overrides the image
// embedded in the session.
type ExportOperation struct {
	Session string `json:"session"`
	Image   string `json:"image,omitempty"`
	Output  string `json:"output,omitempty"`
}

// CaptionOperation renders an image file with an inline snapshot. A missing
// snapshot means the default settings.
type CaptionOperation struct {
	Image    string             `json:"image"`
	Snapshot *snapshot.Snapshot `json:"snapshot,omitempty"`
	Output   string             `json:"output,omitempty"`
}

// Exporter renders a snapshot onto encoded source bytes.
type Exporter interface {
	Export(ctx context.Context, source []byte, s snapshot.Snapshot, originalFileName string) (*compositor.Export, bool)
}

type OperationExecutor struct {
	BaseDir     string
	OutputDir   string
	Exporter    Exporter
	Concurrency int
}

// ReadOperations parses a JSONL batch.
func ReadOperations(r io.Reader) (Operations, error) {
	dec := json.NewDecoder(r)
	var ops Operations
	for {
		var op Operation
		if err := dec.Decode(&op); err != nil {
			if errors.Is(err, io.EOF) {
				return ops, nil
			}
			return nil, fmt.Errorf("failed to read operation %d: %w", len(ops)+1, err)
		}
		ops = append(ops, op)
	}
}

func (r OperationExecutor) Exec(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		log.Ctx(ctx).Warn().Msg("no operations to execute")
		return nil
	}

	workers := r.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pooler := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(workers)

	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}
	for _, op := range ops {
		pooler.Go(func(ctx context.Context) error {
			if err := r.executeOperation(ctx, op); err != nil {
				log.Ctx(ctx).Error().Err(err).
					Interface("op", op).
					Msg("failed to execute operation")
				return err
			}
			return nil
		})
	}

	if err := pooler.Wait(); err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Msg("finished with errors")
		return err
	}

	return nil
}

func (r OperationExecutor) executeOperation(ctx context.Context, op Operation) error {
	switch {
	case op.Export != nil:
		return r.executeExport(ctx, *op.Export)
	case op.Caption != nil:
		return r.executeCaption(ctx, *op.Caption)
	case op.Crop != nil:
		return r.executeCrop(ctx, *op.Crop)
	}
	return nil
}

func (r OperationExecutor) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.BaseDir, name)
}

func (r OperationExecutor) executeExport(ctx context.Context, op ExportOperation) error {
	log.Ctx(ctx).Info().Str("session", op.Session).Msg("exporting")
	sess, err := readSessionFile(r.resolve(op.Session))
	if err != nil {
		return err
	}
	if sess.Snapshot == nil {
		return fmt.Errorf("session %s: %w", op.Session, snapshot.ErrMissingSnapshot)
	}

	var source []byte
	if op.Image != "" {
		if source, err = os.ReadFile(r.resolve(op.Image)); err != nil {
			return fmt.Errorf("failed to read image %s: %w", op.Image, err)
		}
		if sess.OriginalFileName == "" {
			sess.OriginalFileName = filepath.Base(op.Image)
		}
	} else {
		if _, source, err = snapshot.DecodeDataURL(sess.ImageDataURL); err != nil {
			return fmt.Errorf("session %s has no usable image: %w", op.Session, err)
		}
	}

	return r.render(ctx, source, *sess.Snapshot, sess.OriginalFileName, op.Output)
}

func (r OperationExecutor) executeCaption(ctx context.Context, op CaptionOperation) error {
	log.Ctx(ctx).Info().Str("image", op.Image).Msg("captioning")
	source, err := os.ReadFile(r.resolve(op.Image))
	if err != nil {
		return fmt.Errorf("failed to read image %s: %w", op.Image, err)
	}
	s := snapshot.Default()
	if op.Snapshot != nil {
		s = *op.Snapshot
	}
	return r.render(ctx, source, s, filepath.Base(op.Image), op.Output)
}

// render exports and writes the result under OutputDir. The export's own
// filename is used unless output names one.
func (r OperationExecutor) render(ctx context.Context, source []byte, s snapshot.Snapshot, originalFileName, output string) error {
	exp, ok := r.Exporter.Export(ctx, source, s.Normalize(), originalFileName)
	if !ok {
		return fmt.Errorf("nothing exported for %s", originalFileName)
	}
	name := exp.Filename
	if output != "" {
		name = output
	}
	return writeOutput(filepath.Join(r.OutputDir, name), exp.Data)
}

func readSessionFile(path string) (snapshot.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot.Session{}, fmt.Errorf("failed to read session %s: %w", path, err)
	}
	var sess snapshot.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return snapshot.Session{}, fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	return sess, nil
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
