// Package touch defines the touch event stream consumed by the workspace.
package touch

import (
	"fmt"
	"strings"
	"time"

	"cutout/pkg/geometry"
)

// Action identifies what a touch event reports.
type Action int

const (
	ActionDown        Action = iota // first contact
	ActionMove                      // one or more contacts moved
	ActionUp                        // last contact lifted
	ActionPointerDown               // an additional contact landed
	ActionPointerUp                 // a non-last contact lifted
	ActionCancel                    // the host aborted the gesture
)

func (a Action) String() string {
	switch a {
	case ActionDown:
		return "down"
	case ActionMove:
		return "move"
	case ActionUp:
		return "up"
	case ActionPointerDown:
		return "pointer_down"
	case ActionPointerUp:
		return "pointer_up"
	case ActionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ParseAction converts a name produced by String back into an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down":
		return ActionDown, nil
	case "move":
		return ActionMove, nil
	case "up":
		return ActionUp, nil
	case "pointer_down", "pointerdown":
		return ActionPointerDown, nil
	case "pointer_up", "pointerup":
		return ActionPointerUp, nil
	case "cancel":
		return ActionCancel, nil
	}
	return 0, fmt.Errorf("unknown touch action %q", s)
}

// Event is a single record of the touch stream. Points holds every contact
// that is down when the event fires, in screen coordinates. For
// ActionPointerUp, ActionIndex names the contact being lifted.
type Event struct {
	Action      Action
	Points      []geometry.Point2D
	ActionIndex int
	Timestamp   time.Time
}

// NewEvent builds an event stamped with the current time.
func NewEvent(action Action, points ...geometry.Point2D) Event {
	return Event{Action: action, Points: points, Timestamp: time.Now()}
}

// Remaining returns the contacts still down after a pointer-up event.
func (e Event) Remaining() []geometry.Point2D {
	if e.Action != ActionPointerUp || len(e.Points) < 2 {
		return e.Points
	}
	if e.ActionIndex < 0 || e.ActionIndex >= len(e.Points) {
		return e.Points[:len(e.Points)-1]
	}
	out := make([]geometry.Point2D, 0, len(e.Points)-1)
	out = append(out, e.Points[:e.ActionIndex]...)
	return append(out, e.Points[e.ActionIndex+1:]...)
}
