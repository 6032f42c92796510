package workspace

import (
	"fmt"
	"strings"
)

// EditMode selects how touch events are interpreted.
type EditMode int

const (
	ModeForeground EditMode = iota
	ModeEraser
	ModeZoom
	ModeShape
	ModeStep
	ModeBorder
	ModeSpread
	ModeColor
)

var modeNames = [...]string{
	ModeForeground: "foreground",
	ModeEraser:     "eraser",
	ModeZoom:       "zoom",
	ModeShape:      "shape",
	ModeStep:       "step",
	ModeBorder:     "border",
	ModeSpread:     "spread",
	ModeColor:      "color",
}

func (m EditMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Paints reports whether the mode routes to the stroke engine.
func (m EditMode) Paints() bool {
	return m == ModeForeground || m == ModeEraser
}

// Transforms reports whether the mode routes to the gesture controller.
func (m EditMode) Transforms() bool {
	return m == ModeZoom || m == ModeShape
}

// ParseEditMode converts a mode name, case insensitively.
func ParseEditMode(s string) (EditMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if name == s {
			return EditMode(i), nil
		}
	}
	switch s {
	case "fg":
		return ModeForeground, nil
	case "zoomer":
		return ModeZoom, nil
	}
	return 0, fmt.Errorf("unknown edit mode %q", s)
}
