// Package app holds the application state shared by the GUI and the CLI.
package app

import (
	"bytes"
	"errors"
	"fmt"
	goimage "image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cutout/internal/config"
	"cutout/internal/cv"
	"cutout/internal/image"
	"cutout/internal/script"
	"cutout/internal/touch"
	"cutout/internal/watershed"
	"cutout/internal/workspace"
	"cutout/pkg/colorutil"

	log "github.com/sirupsen/logrus"
)

var ErrNotRecording = errors.New("app: not recording")

// State represents the current application state.
type State struct {
	mu sync.RWMutex

	cfg *config.Config

	// Source image
	imagePath string
	original  goimage.Image // as decoded, before fitting to the display

	ws *workspace.Workspace

	recorder *script.Recorder

	log *log.Entry

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventModeChanged
	EventTransformChanged
	EventSegmented
	EventExported
	EventConfigChanged
	EventError
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewSegmenter builds the watershed segmenter selected by cfg.
func NewSegmenter(cfg config.SegmentationConfig) (*watershed.Segmenter, error) {
	highlight, err := colorutil.ParseHex(cfg.Highlight)
	if err != nil {
		return nil, err
	}
	opts := []watershed.Option{
		watershed.WithHighlight(highlight),
		watershed.WithLogger(log.WithField("component", "watershed")),
	}
	switch strings.ToLower(cfg.Engine) {
	case "", "native":
	case "opencv":
		if !cv.Available {
			return nil, fmt.Errorf("segmentation engine %q is not compiled in", cfg.Engine)
		}
		opts = append(opts, watershed.WithFlooder(cv.Flooder{}), watershed.WithContourFinder(cv.ContourFinder{}))
	default:
		return nil, fmt.Errorf("unknown segmentation engine %q", cfg.Engine)
	}
	return watershed.NewSegmenter(opts...), nil
}

// NewState creates a new application state. A nil cfg means defaults.
func NewState(cfg *config.Config) (*State, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &State{
		cfg:       cfg,
		log:       log.WithField("component", "app"),
		listeners: make(map[EventType][]EventListener),
	}
	ws, err := s.newWorkspace(cfg)
	if err != nil {
		return nil, err
	}
	s.ws = ws
	return s, nil
}

// Config returns the active configuration.
func (s *State) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Workspace returns the active workspace. ApplyConfig replaces it, so
// callers should not hold on to it across a configuration change.
func (s *State) Workspace() *workspace.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws
}

// ImagePath returns the path of the loaded image, or "" when the image did
// not come from a file.
func (s *State) ImagePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.imagePath
}

// Original returns the loaded image as decoded.
func (s *State) Original() goimage.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original
}

func (s *State) newWorkspace(cfg *config.Config) (*workspace.Workspace, error) {
	seg, err := NewSegmenter(cfg.Segmentation)
	if err != nil {
		return nil, err
	}
	ws := workspace.New(
		workspace.WithConfig(cfg.Workspace),
		workspace.WithSegmenter(seg),
		workspace.WithLogger(log.WithField("component", "workspace")),
	)
	ws.OnSegmented(func(res workspace.Result) {
		s.Emit(EventSegmented, res)
	})
	return ws, nil
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// LoadImage loads the image file at path into the workspace.
func (s *State) LoadImage(path string) error {
	img, err := image.Load(path)
	if err != nil {
		return err
	}
	if err := s.SetImage(img); err != nil {
		return err
	}
	s.mu.Lock()
	s.imagePath = path
	s.mu.Unlock()
	return nil
}

// SetImage fits img to the configured display size and hands it to the
// workspace. A zero display size keeps the image as is.
func (s *State) SetImage(img goimage.Image) error {
	d := s.Config().Display
	fitted := img
	if d.Width > 0 && d.Height > 0 {
		interp, err := image.Interpolator(d.Interpolation)
		if err != nil {
			return err
		}
		fitted = image.Fit(img, d.Width, d.Height, interp)
	}
	if err := s.Workspace().SetImage(fitted); err != nil {
		return err
	}

	s.mu.Lock()
	s.imagePath = ""
	s.original = img
	if s.recorder != nil {
		s.recorder = &script.Recorder{}
	}
	s.mu.Unlock()

	s.log.WithFields(log.Fields{
		"original": img.Bounds().Size(),
		"fitted":   fitted.Bounds().Size(),
	}).Info("image loaded")
	s.Emit(EventImageLoaded, fitted)
	return nil
}

// SetMode switches the workspace edit mode.
func (s *State) SetMode(m workspace.EditMode) {
	s.Workspace().SetMode(m)
	s.mu.Lock()
	if s.recorder != nil {
		s.recorder.Mode(m)
	}
	s.mu.Unlock()
	s.Emit(EventModeChanged, m)
}

// HandleEvent forwards ev to the workspace, recording it first when a
// recording is active.
func (s *State) HandleEvent(ev touch.Event) (bool, error) {
	s.mu.Lock()
	if s.recorder != nil {
		s.recorder.Event(ev)
	}
	s.mu.Unlock()

	ws := s.Workspace()
	handled, err := ws.HandleEvent(ev)
	if err != nil {
		s.Emit(EventError, err)
		return handled, err
	}
	if handled && ws.Mode().Transforms() {
		s.Emit(EventTransformChanged, ws.Transform())
	}
	return handled, nil
}

// StartRecording begins capturing mode switches and touch events. The
// current mode is recorded first so a replay starts from the same state.
func (s *State) StartRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = &script.Recorder{}
	s.recorder.Mode(s.ws.Mode())
}

// Recording reports whether a recording is active.
func (s *State) Recording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recorder != nil
}

// StopRecording ends the recording and returns what was captured.
func (s *State) StopRecording() (*script.Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorder == nil {
		return nil, ErrNotRecording
	}
	sc := s.recorder.Script()
	s.recorder = nil
	return sc, nil
}

// SaveRecording writes the active recording to path as YAML. Recording
// continues.
func (s *State) SaveRecording(path string) error {
	s.mu.RLock()
	rec := s.recorder
	s.mu.RUnlock()
	if rec == nil {
		return ErrNotRecording
	}
	var buf bytes.Buffer
	if err := rec.Save(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	s.log.WithFields(log.Fields{"path": path, "steps": rec.Len()}).Info("recording saved")
	return nil
}

// Replay runs the script at path against the workspace.
func (s *State) Replay(path string) (script.Stats, error) {
	sc, err := script.Load(path)
	if err != nil {
		return script.Stats{}, err
	}
	stats, err := sc.Run(s)
	s.log.WithFields(log.Fields{
		"steps":   stats.Steps,
		"events":  stats.Events,
		"handled": stats.Handled,
	}).Info("script replayed")
	return stats, err
}

// ExportCutout writes the segmented region of the source image to path as
// PNG.
func (s *State) ExportCutout(path string) error {
	img, err := s.Workspace().Cutout()
	if err != nil {
		return err
	}
	return s.export(path, img)
}

// ExportPreview writes the full preview surface to path as PNG.
func (s *State) ExportPreview(path string) error {
	res := s.Workspace().Result()
	if res.Preview == nil {
		return workspace.ErrNoImage
	}
	return s.export(path, res.Preview)
}

func (s *State) export(path string, img goimage.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := image.Save(path, img); err != nil {
		return err
	}
	s.log.WithFields(log.Fields{"path": path, "size": img.Bounds().Size()}).Info("exported")
	s.Emit(EventExported, path)
	return nil
}

// ApplyConfig replaces the configuration. The workspace is rebuilt and the
// current image, if any, is loaded again; strokes and transform start over.
func (s *State) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ws, err := s.newWorkspace(cfg)
	if err != nil {
		return err
	}
	if err := cfg.Log.Apply(); err != nil {
		return err
	}

	s.mu.Lock()
	old := s.ws
	s.cfg = cfg
	s.ws = ws
	original := s.original
	path := s.imagePath
	s.mu.Unlock()

	ws.SetMode(old.Mode())
	old.Close()
	s.Emit(EventConfigChanged, cfg)

	if original == nil {
		return nil
	}
	if err := s.SetImage(original); err != nil {
		return err
	}
	s.mu.Lock()
	s.imagePath = path
	s.mu.Unlock()
	return nil
}
