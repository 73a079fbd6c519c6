// Package editor owns the editable state of one image: the current snapshot,
// the undo history, the save status and the pointer drag in progress.
//
// All methods are meant to be called from a single goroutine, the one that
// receives input events. Nothing here locks.
package editor

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"imged/internal/compositor"
	"imged/internal/cropratio"
	"imged/internal/drag"
	"imged/internal/geometry"
	"imged/internal/snapshot"
)

// Banner messages shown to the user.
const (
	MsgNotImage        = "Please upload an image file."
	MsgSaveNoImage     = "Upload an image before saving."
	MsgSaved           = "All changes saved."
	MsgUnsavedDownload = "You have unsaved changes. Save before downloading."
	MsgShareNoImage    = "Upload an image before sharing."
	MsgShareFailed     = "Unable to create share link. Please try again."
	MsgShareReady      = "Share link ready."
	MsgPersistFailed   = "Unable to store the session locally."
)

// ErrNotImage is returned by Load for uploads that are not images.
var ErrNotImage = errors.New("not an image")

// Tool is the side panel currently open.
type Tool string

const (
	ToolNone  Tool = ""
	ToolCrop  Tool = "crop"
	ToolTitle Tool = "title"
)

// Upload is a file picked or dropped by the user.
type Upload struct {
	Name string
	MIME string
	Data []byte
}

// Persistence is the local session slot the editor hydrates from and writes
// back to.
type Persistence interface {
	Load(ctx context.Context) (snapshot.Session, bool, error)
	Save(ctx context.Context, sess snapshot.Session) error
	Clear(ctx context.Context) error
}

// Sharer creates a shareable copy of a session and returns its ID.
type Sharer interface {
	Create(ctx context.Context, sess snapshot.Session) (snapshot.Session, error)
}

type Editor struct {
	current          snapshot.Snapshot
	imageDataURL     string
	originalFileName string

	history   *History
	lastSaved *snapshot.Snapshot
	unsaved   bool
	banner    string
	tool      Tool

	drag *drag.Controller
}

// New returns an editor with no image and default settings.
func New() *Editor {
	e := &Editor{
		current: snapshot.Default(),
		history: NewHistory(DefaultHistoryCapacity),
	}
	e.drag = drag.NewController(e.onDragBegin)
	return e
}

// Snapshot returns a copy of the current state.
func (e *Editor) Snapshot() snapshot.Snapshot { return e.current.Clone() }

func (e *Editor) HasImage() bool { return e.imageDataURL != "" }
func (e *Editor) ImageDataURL() string { return e.imageDataURL }
func (e *Editor) OriginalFileName() string { return e.originalFileName }
func (e *Editor) Banner() string { return e.banner }
func (e *Editor) HasUnsavedChanges() bool { return e.unsaved }
func (e *Editor) HistoryLen() int { return e.history.Len() }
func (e *Editor) ActiveTool() Tool { return e.tool }
func (e *Editor) DragState() drag.Mode { return e.drag.State() }
func (e *Editor) SetActiveTool(t Tool) { e.tool = t }
func (e *Editor) DismissBanner() { e.banner = "" }
func (e *Editor) DownloadPlaceholder() string {
	if e.originalFileName == "" {
		return compositor.FallbackBaseName
	}
	return compositor.BaseName(e.originalFileName)
}

// CanReset reports whether there is anything to reset.
func (e *Editor) CanReset() bool {
	return e.HasImage() || e.current.Title != "" || e.current.Crop != nil ||
		e.current.DownloadName != "" || e.history.Len() > 0
}

func (e *Editor) pushHistory() {
	e.history.Push(e.current)
	e.unsaved = true
	e.banner = ""
}

// Load replaces the image. Non-image uploads leave the state untouched and
// set a banner. A nil upload clears the image and export name.
func (e *Editor) Load(u *Upload) error {
	if u == nil {
		e.imageDataURL = ""
		e.originalFileName = ""
		e.current.DownloadName = ""
		e.resetHistory()
		return nil
	}
	if !snapshot.IsImageMIME(u.MIME) {
		e.banner = MsgNotImage
		return ErrNotImage
	}

	mime := u.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	e.resetHistory()
	e.imageDataURL = snapshot.EncodeDataURL(mime, u.Data)
	e.originalFileName = u.Name
	e.current.DownloadName = compositor.BaseName(u.Name)
	e.current.Crop = nil
	e.current.Position = geometry.DefaultTitlePosition()
	return nil
}

func (e *Editor) resetHistory() {
	e.history.Clear()
	e.lastSaved = nil
	e.unsaved = false
	e.banner = ""
}

// Reset returns to a blank canvas with default settings.
func (e *Editor) Reset() {
	e.drag.End()
	_ = e.Load(nil)
	e.current = snapshot.Default()
	e.tool = ToolNone
}

// edit records the pre-edit snapshot and applies fn to a fresh copy.
func (e *Editor) edit(fn func(s *snapshot.Snapshot)) {
	e.pushHistory()
	next := e.current.Clone()
	fn(&next)
	e.current = next
}

// SetTitle records every keystroke as its own undo step.
func (e *Editor) SetTitle(title string) {
	e.edit(func(s *snapshot.Snapshot) { s.Title = title })
}

func (e *Editor) SetDownloadName(name string) {
	e.edit(func(s *snapshot.Snapshot) { s.DownloadName = name })
}

func (e *Editor) SetDownloadFormat(f snapshot.Format) bool {
	if f == e.current.DownloadFormat || !f.Valid() {
		return false
	}
	e.edit(func(s *snapshot.Snapshot) { s.DownloadFormat = f })
	return true
}

func (e *Editor) SetPreset(p snapshot.TitlePreset) bool {
	if p == e.current.Preset || !p.Valid() {
		return false
	}
	e.edit(func(s *snapshot.Snapshot) { s.Preset = p })
	return true
}

func (e *Editor) SetSizeLevel(l snapshot.SizeLevel) bool {
	if l == e.current.SizeLevel || !l.Valid() {
		return false
	}
	e.edit(func(s *snapshot.Snapshot) { s.SizeLevel = l })
	return true
}

func (e *Editor) SetWeight(w snapshot.Weight) bool {
	if w == e.current.Weight || !w.Valid() {
		return false
	}
	e.edit(func(s *snapshot.Snapshot) { s.Weight = w })
	return true
}

func (e *Editor) SetColor(c snapshot.Color) bool {
	if c == e.current.Color || !c.Valid() {
		return false
	}
	e.edit(func(s *snapshot.Snapshot) { s.Color = c })
	return true
}

func (e *Editor) SetAlign(a snapshot.Align) bool {
	if a == e.current.Align || !a.Valid() {
		return false
	}
	e.edit(func(s *snapshot.Snapshot) { s.Align = a })
	return true
}

// ApplyCropPreset creates or reshapes the crop for a preset tag.
func (e *Editor) ApplyCropPreset(tag string) error {
	target, err := cropratio.Parse(tag)
	if err != nil {
		return err
	}
	e.edit(func(s *snapshot.Snapshot) {
		c := cropratio.Resolve(target, s.Crop)
		s.Crop = &c
	})
	return nil
}

// ClearCrop removes the crop so the full image is exported.
func (e *Editor) ClearCrop() bool {
	if e.current.Crop == nil {
		return false
	}
	e.edit(func(s *snapshot.Snapshot) { s.Crop = nil })
	return true
}

func (e *Editor) onDragBegin(m drag.Mode) {
	e.pushHistory()
	if m == drag.ModeTitle {
		e.tool = ToolTitle
	} else {
		e.tool = ToolCrop
	}
}

// PointerDownTitle starts dragging the title.
func (e *Editor) PointerDownTitle(p drag.Pointer) bool {
	return e.drag.BeginTitle(p, e.current.Position)
}

// PointerDownCrop starts moving the crop (drag.HandleMove) or resizing it
// from a corner. It does nothing without a crop.
func (e *Editor) PointerDownCrop(p drag.Pointer, h drag.Handle) bool {
	return e.drag.BeginCrop(p, h, e.current.Crop)
}

// PointerMove applies the active drag. It reports whether geometry changed.
func (e *Editor) PointerMove(p drag.Pointer, b drag.Bounds) bool {
	u, ok := e.drag.Move(p, b)
	if !ok {
		return false
	}
	next := e.current.Clone()
	switch u.Mode {
	case drag.ModeTitle:
		next.Position = u.Title
	case drag.ModeCropMove, drag.ModeCropResize:
		c := u.Crop
		next.Crop = &c
	}
	e.current = next
	return true
}

// PointerUp ends the drag. It also serves pointer-leave and lost capture.
func (e *Editor) PointerUp() {
	e.drag.End()
}

// Undo restores the newest history entry.
func (e *Editor) Undo() bool {
	prev, ok := e.history.Pop()
	if !ok {
		return false
	}
	e.current = prev
	e.unsaved = e.lastSaved == nil || !snapshot.Equal(prev, *e.lastSaved)
	e.banner = ""
	return true
}

// Save marks the current state as saved.
func (e *Editor) Save() bool {
	if !e.HasImage() {
		e.banner = MsgSaveNoImage
		return false
	}
	s := e.current.Clone()
	e.lastSaved = &s
	e.unsaved = false
	e.banner = MsgSaved
	return true
}

// Download exports the current state. Unsaved changes block the download
// with a banner; a source that fails to decode yields nothing silently.
func (e *Editor) Download(ctx context.Context, exp *compositor.Exporter) (*compositor.Export, bool) {
	if !e.HasImage() {
		return nil, false
	}
	if e.unsaved {
		e.banner = MsgUnsavedDownload
		return nil, false
	}
	return exp.ExportSession(ctx, e.Session())
}

// Session packages the state for persistence. Without an image the snapshot
// is left out.
func (e *Editor) Session() snapshot.Session {
	sess := snapshot.Session{
		ImageDataURL:     e.imageDataURL,
		OriginalFileName: e.originalFileName,
	}
	if e.HasImage() {
		s := e.current.Clone()
		sess.Snapshot = &s
	}
	return sess
}

// Restore replaces the state with a stored session. The restored snapshot
// counts as saved and history starts empty.
func (e *Editor) Restore(sess snapshot.Session) {
	e.drag.End()
	if sess.ImageDataURL != "" {
		e.imageDataURL = sess.ImageDataURL
	}
	if sess.OriginalFileName != "" {
		e.originalFileName = sess.OriginalFileName
	}
	if sess.Snapshot != nil {
		s := sess.Snapshot.Normalize()
		e.current = s
		saved := s.Clone()
		e.lastSaved = &saved
	}
	e.history.Clear()
	e.unsaved = false
	e.banner = ""
}

// Hydrate restores the locally persisted session, if any. Read failures
// leave the editor as it is.
func (e *Editor) Hydrate(ctx context.Context, p Persistence) bool {
	sess, ok, err := p.Load(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to load persisted session")
		return false
	}
	if !ok {
		return false
	}
	e.Restore(sess)
	return true
}

// Persist writes the session to the local slot. A failure is reported on
// the banner and does not touch the editable state.
func (e *Editor) Persist(ctx context.Context, p Persistence) error {
	if err := p.Save(ctx, e.Session()); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to persist session")
		e.banner = MsgPersistFailed
		return err
	}
	return nil
}

// ConfirmReset resets the editor and clears the local slot.
func (e *Editor) ConfirmReset(ctx context.Context, p Persistence) {
	e.Reset()
	if p == nil {
		return
	}
	if err := p.Clear(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to clear persisted session")
	}
}

// Share stores a public copy of the session and returns its ID.
func (e *Editor) Share(ctx context.Context, s Sharer) (string, bool) {
	if !e.HasImage() {
		e.banner = MsgShareNoImage
		return "", false
	}
	sess := e.Session()
	sess.IsPublic = true
	created, err := s.Create(ctx, sess)
	if err != nil || created.ID == "" {
		log.Ctx(ctx).Error().Err(err).Msg("failed to create share link")
		e.banner = MsgShareFailed
		return "", false
	}
	e.banner = MsgShareReady
	return created.ID, true
}
