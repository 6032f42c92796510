package canvas

import (
	"cutout/internal/touch"
	"cutout/pkg/geometry"
)

// tracker turns pointer drags into the single-contact touch stream the
// workspace understands.
type tracker struct {
	active bool
	last   geometry.Point2D
}

// drag reports the pointer at pos after moving by delta. The first drag of
// a gesture also yields the down event at the starting point.
func (t *tracker) drag(pos, delta geometry.Point2D) []touch.Event {
	t.last = pos
	if t.active {
		return []touch.Event{touch.NewEvent(touch.ActionMove, pos)}
	}
	t.active = true
	return []touch.Event{
		touch.NewEvent(touch.ActionDown, pos.Sub(delta)),
		touch.NewEvent(touch.ActionMove, pos),
	}
}

func (t *tracker) end() []touch.Event {
	if !t.active {
		return nil
	}
	t.active = false
	return []touch.Event{touch.NewEvent(touch.ActionUp, t.last)}
}

func (t *tracker) tap(pos geometry.Point2D) []touch.Event {
	t.active = false
	t.last = pos
	return []touch.Event{
		touch.NewEvent(touch.ActionDown, pos),
		touch.NewEvent(touch.ActionUp, pos),
	}
}
