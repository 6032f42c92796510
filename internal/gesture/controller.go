// Package gesture turns multi-point touch streams into drag, zoom and rotate
// transforms.
package gesture

import (
	"cutout/internal/touch"
	"cutout/pkg/geometry"
)

// Mode is the gesture currently being tracked.
type Mode int

const (
	ModeNone Mode = iota
	ModeDrag
	ModeZoom
)

func (m Mode) String() string {
	switch m {
	case ModeDrag:
		return "drag"
	case ModeZoom:
		return "zoom"
	default:
		return "none"
	}
}

// Delta is the change relative to the pose pinned when the gesture began.
type Delta struct {
	Translate geometry.Point2D
	Scale     float64
	Rotation  float64 // degrees, zero unless rotation is allowed
	Pivot     geometry.Point2D
}

// Update is produced for every accepted touch event.
type Update struct {
	Mode      Mode
	Delta     Delta
	Transform geometry.AffineTransform
}

// Option configures a Controller.
type Option func(*Controller)

// WithSingleFingerDrag controls whether one contact is enough to pan. When
// disabled, panning only happens through the midpoint of a two-finger pinch.
func WithSingleFingerDrag(allow bool) Option {
	return func(c *Controller) {
		c.allowSingleFingerDrag = allow
	}
}

// WithRotation controls whether pinch rotation is applied to the transform.
func WithRotation(allow bool) Option {
	return func(c *Controller) {
		c.allowRotation = allow
	}
}

// Controller tracks one drag or pinch at a time. Every update is computed
// from the start pose snapshot taken when the current mode began, never from
// the previous frame, so rounding errors do not accumulate.
type Controller struct {
	allowSingleFingerDrag bool
	allowRotation         bool

	mode    Mode
	current geometry.AffineTransform

	// Start pose
	startMatrix   geometry.AffineTransform
	startPoint    geometry.Point2D
	startMid      geometry.Point2D
	startDistance float64
	startVector   geometry.Point2D
}

// New creates a controller holding the identity transform.
func New(opts ...Option) *Controller {
	c := &Controller{
		allowSingleFingerDrag: true,
		current:               geometry.Identity(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the active gesture mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Transform returns the most recently produced transform.
func (c *Controller) Transform() geometry.AffineTransform {
	return c.current
}

// Reset replaces the current transform and abandons any gesture in progress.
func (c *Controller) Reset(t geometry.AffineTransform) {
	c.current = t
	c.mode = ModeNone
}

// Begin starts a single-contact drag at p.
func (c *Controller) Begin(p geometry.Point2D) {
	c.startMatrix = c.current
	c.startPoint = p
	if c.allowSingleFingerDrag {
		c.mode = ModeDrag
	} else {
		c.mode = ModeNone
	}
}

// BeginPinch starts a two-contact zoom. Coincident contacts are ignored since
// no scale can be derived from them.
func (c *Controller) BeginPinch(a, b geometry.Point2D) {
	d := geometry.Distance(a, b)
	if d == 0 {
		return
	}
	c.startMatrix = c.current
	c.startDistance = d
	c.startMid = geometry.MidPoint(a, b)
	c.startVector = b.Sub(a)
	c.mode = ModeZoom
}

// Update computes a fresh transform for the current contact positions.
// It returns false when the points do not fit the active mode.
func (c *Controller) Update(points []geometry.Point2D) (Update, bool) {
	switch c.mode {
	case ModeDrag:
		if len(points) < 1 {
			return Update{}, false
		}
		d := points[0].Sub(c.startPoint)
		c.current = c.startMatrix.PostTranslate(d.X, d.Y)
		return Update{
			Mode:      ModeDrag,
			Delta:     Delta{Translate: d, Scale: 1, Pivot: points[0]},
			Transform: c.current,
		}, true

	case ModeZoom:
		if len(points) < 2 {
			return Update{}, false
		}
		a, b := points[0], points[1]
		mid := geometry.MidPoint(a, b)
		delta := Delta{
			Translate: mid.Sub(c.startMid),
			Scale:     geometry.Distance(a, b) / c.startDistance,
			Pivot:     mid,
		}
		rotation := geometry.Angle(c.startVector, b.Sub(a))

		t := c.startMatrix.
			PostTranslate(delta.Translate.X, delta.Translate.Y).
			PostScale(delta.Scale, mid)
		if c.allowRotation {
			delta.Rotation = rotation
			t = t.PostRotate(rotation, mid)
		}
		c.current = t
		return Update{Mode: ModeZoom, Delta: delta, Transform: t}, true
	}
	return Update{}, false
}

// Release handles one finger of a pinch lifting. The remaining contact
// becomes the new anchor so the following drag continues without a jump.
func (c *Controller) Release(remaining geometry.Point2D) {
	if c.mode != ModeZoom {
		return
	}
	c.Begin(remaining)
}

// End finishes the gesture. The last transform is kept.
func (c *Controller) End() {
	c.mode = ModeNone
}

// Handle feeds one touch event through the state machine. It reports
// whether the event was consumed; malformed events are dropped.
func (c *Controller) Handle(ev touch.Event) (Update, bool) {
	switch ev.Action {
	case touch.ActionDown:
		if len(ev.Points) < 1 {
			return Update{}, false
		}
		c.Begin(ev.Points[0])
	case touch.ActionPointerDown:
		if len(ev.Points) < 2 {
			return Update{}, false
		}
		c.BeginPinch(ev.Points[0], ev.Points[1])
	case touch.ActionMove:
		return c.Update(ev.Points)
	case touch.ActionPointerUp:
		remaining := ev.Remaining()
		if len(remaining) < 1 {
			return Update{}, false
		}
		c.Release(remaining[0])
	case touch.ActionUp, touch.ActionCancel:
		c.End()
	default:
		return Update{}, false
	}
	return c.idle(), true
}

func (c *Controller) idle() Update {
	return Update{Mode: c.mode, Delta: Delta{Scale: 1}, Transform: c.current}
}
