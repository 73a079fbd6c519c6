package drag

import "imged/internal/geometry"

// Session is the transient record of one pointer interaction. It holds copies
// of the geometry at pointer-down; the persisted geometry belongs to the caller.
type Session struct {
	Mode       Mode
	Handle     Handle
	Origin     Pointer
	StartTitle geometry.Point
	StartCrop  geometry.Rect
}

// Update is the geometry produced by one pointer move. Only the field that
// matches Mode is meaningful.
type Update struct {
	Mode  Mode
	Title geometry.Point
	Crop  geometry.Rect
}

// Controller tracks at most one active drag. It is not safe for concurrent
// use; it is driven by the single goroutine that owns the editor.
type Controller struct {
	session *Session

	// OnBegin runs once on every transition out of idle, before any move.
	// The editor uses it to push the pre-drag snapshot onto history.
	OnBegin func(Mode)
}

// NewController returns an idle controller.
func NewController(onBegin func(Mode)) *Controller {
	return &Controller{OnBegin: onBegin}
}

// State reports the current mode, ModeNone when idle.
func (c *Controller) State() Mode {
	if c.session == nil {
		return ModeNone
	}
	return c.session.Mode
}

// Active reports whether a drag is in progress.
func (c *Controller) Active() bool {
	return c.session != nil
}

// Session returns a copy of the active session.
func (c *Controller) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// BeginTitle starts moving the title from its current position.
func (c *Controller) BeginTitle(origin Pointer, title geometry.Point) bool {
	return c.begin(Session{Mode: ModeTitle, Origin: origin, StartTitle: title})
}

// BeginCrop starts moving (HandleMove) or resizing the crop. It is refused
// when there is no crop to drag.
func (c *Controller) BeginCrop(origin Pointer, h Handle, crop *geometry.Rect) bool {
	if crop == nil {
		return false
	}
	s := Session{Mode: ModeCropMove, Origin: origin, StartCrop: *crop}
	if h != HandleMove {
		if _, err := ParseHandle(string(h)); err != nil {
			return false
		}
		s.Mode = ModeCropResize
		s.Handle = h
	}
	return c.begin(s)
}

func (c *Controller) begin(s Session) bool {
	if c.session != nil {
		return false
	}
	if c.OnBegin != nil {
		c.OnBegin(s.Mode)
	}
	c.session = &s
	return true
}

// Move computes geometry for the pointer at p. ok is false when idle or when
// the container has no area.
func (c *Controller) Move(p Pointer, b Bounds) (Update, bool) {
	if c.session == nil {
		return Update{}, false
	}
	dx, dy, ok := Delta(c.session.Origin, p, b)
	if !ok {
		return Update{}, false
	}

	s := c.session
	switch s.Mode {
	case ModeTitle:
		return Update{Mode: s.Mode, Title: MoveTitle(s.StartTitle, dx, dy)}, true
	case ModeCropMove:
		return Update{Mode: s.Mode, Crop: MoveCrop(s.StartCrop, dx, dy)}, true
	case ModeCropResize:
		return Update{Mode: s.Mode, Crop: ResizeCrop(s.StartCrop, s.Handle, dx, dy)}, true
	}
	return Update{}, false
}

// End returns the controller to idle. It is called on pointer-up,
// pointer-leave and loss of pointer capture, and is a no-op when idle.
func (c *Controller) End() {
	c.session = nil
}
