// Package script records and replays touch sessions as YAML.
package script

import (
	"errors"
	"fmt"
	"io"
	"os"

	"cutout/internal/touch"
	"cutout/internal/workspace"
	"cutout/pkg/geometry"

	"gopkg.in/yaml.v3"
)

// Step is either a mode switch or a touch event.
type Step struct {
	Mode   string       `yaml:"mode,omitempty"`
	Event  string       `yaml:"event,omitempty"`
	Points [][2]float64 `yaml:"points,omitempty,flow"`
	Index  int          `yaml:"index,omitempty"`
}

// Script is an ordered list of steps.
type Script struct {
	Steps []Step
}

// Target receives replayed steps. *workspace.Workspace satisfies it.
type Target interface {
	SetMode(workspace.EditMode)
	HandleEvent(touch.Event) (bool, error)
}

// Stats summarizes a replay.
type Stats struct {
	Steps   int
	Events  int
	Handled int
}

// Parse decodes a script.
func Parse(r io.Reader) (*Script, error) {
	var steps []Step
	if err := yaml.NewDecoder(r).Decode(&steps); err != nil {
		if errors.Is(err, io.EOF) {
			return &Script{}, nil
		}
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	s := &Script{Steps: steps}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Validate checks that every step is well formed.
func (s *Script) Validate() error {
	for i, st := range s.Steps {
		switch {
		case st.Mode != "" && st.Event != "":
			return fmt.Errorf("step %d: mode and event are exclusive", i)
		case st.Mode != "":
			if _, err := workspace.ParseEditMode(st.Mode); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		case st.Event != "":
			if _, err := touch.ParseAction(st.Event); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		default:
			return fmt.Errorf("step %d: empty step", i)
		}
	}
	return nil
}

// Run replays every step against t. It stops at the first error.
func (s *Script) Run(t Target) (Stats, error) {
	var stats Stats
	for i, st := range s.Steps {
		stats.Steps++
		if st.Mode != "" {
			m, err := workspace.ParseEditMode(st.Mode)
			if err != nil {
				return stats, fmt.Errorf("step %d: %w", i, err)
			}
			t.SetMode(m)
			continue
		}
		ev, err := st.event()
		if err != nil {
			return stats, fmt.Errorf("step %d: %w", i, err)
		}
		stats.Events++
		handled, err := t.HandleEvent(ev)
		if err != nil {
			return stats, fmt.Errorf("step %d (%s): %w", i, ev.Action, err)
		}
		if handled {
			stats.Handled++
		}
	}
	return stats, nil
}

func (st Step) event() (touch.Event, error) {
	action, err := touch.ParseAction(st.Event)
	if err != nil {
		return touch.Event{}, err
	}
	pts := make([]geometry.Point2D, len(st.Points))
	for i, p := range st.Points {
		pts[i] = geometry.NewPoint2D(p[0], p[1])
	}
	ev := touch.NewEvent(action, pts...)
	ev.ActionIndex = st.Index
	return ev, nil
}

// Recorder accumulates steps as they happen.
type Recorder struct {
	script Script
}

// Mode records a mode switch.
func (r *Recorder) Mode(m workspace.EditMode) {
	r.script.Steps = append(r.script.Steps, Step{Mode: m.String()})
}

// Event records a touch event.
func (r *Recorder) Event(ev touch.Event) {
	st := Step{Event: ev.Action.String(), Index: ev.ActionIndex}
	for _, p := range ev.Points {
		st.Points = append(st.Points, [2]float64{p.X, p.Y})
	}
	r.script.Steps = append(r.script.Steps, st)
}

// Len returns the number of recorded steps.
func (r *Recorder) Len() int {
	return len(r.script.Steps)
}

// Script returns what has been recorded so far.
func (r *Recorder) Script() *Script {
	return &Script{Steps: append([]Step(nil), r.script.Steps...)}
}

// Save writes the recorded steps as YAML.
func (r *Recorder) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.script.Steps); err != nil {
		return fmt.Errorf("failed to encode script: %w", err)
	}
	return enc.Close()
}
