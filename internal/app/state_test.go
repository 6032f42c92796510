package app

import (
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cutout/internal/config"
	"cutout/internal/cv"
	cutimage "cutout/internal/image"
	"cutout/internal/touch"
	"cutout/internal/workspace"
	"cutout/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y float64) geometry.Point2D {
	return geometry.NewPoint2D(x, y)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Display.Width = 100
	cfg.Display.Height = 100
	return cfg
}

func writeImage(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], []uint8{120, 130, 90, 255})
	}
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, cutimage.Save(path, img))
	return path
}

func stroke(t *testing.T, s *State, points ...geometry.Point2D) {
	t.Helper()
	_, err := s.HandleEvent(touch.NewEvent(touch.ActionDown, points[0]))
	require.NoError(t, err)
	for _, p := range points[1:] {
		_, err = s.HandleEvent(touch.NewEvent(touch.ActionMove, p))
		require.NoError(t, err)
	}
	_, err = s.HandleEvent(touch.NewEvent(touch.ActionUp, points[len(points)-1]))
	require.NoError(t, err)
}

func TestNewSegmenter(t *testing.T) {
	for _, tc := range []struct {
		name      string
		cfg       config.SegmentationConfig
		expectErr bool
	}{
		{name: "native", cfg: config.SegmentationConfig{Engine: "native", Highlight: "#ff000080"}},
		{name: "default engine", cfg: config.SegmentationConfig{Highlight: "#00ff00"}},
		{name: "opencv", cfg: config.SegmentationConfig{Engine: "OpenCV", Highlight: "#ff000080"}, expectErr: !cv.Available},
		{name: "unknown engine", cfg: config.SegmentationConfig{Engine: "magic", Highlight: "#ff000080"}, expectErr: true},
		{name: "bad highlight", cfg: config.SegmentationConfig{Engine: "native", Highlight: "red"}, expectErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			seg, err := NewSegmenter(tc.cfg)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, seg)
		})
	}
}

func TestLoadImageEmits(t *testing.T) {
	s, err := NewState(testConfig())
	require.NoError(t, err)

	var loaded []interface{}
	s.On(EventImageLoaded, func(data interface{}) { loaded = append(loaded, data) })

	path := writeImage(t, 50, 100)
	require.NoError(t, s.LoadImage(path))
	assert.Equal(t, path, s.ImagePath())
	require.Len(t, loaded, 1)

	fitted, ok := loaded[0].(image.Image)
	require.True(t, ok)
	assert.Equal(t, image.Pt(50, 100), fitted.Bounds().Size())
	assert.Equal(t, image.Pt(50, 100), s.Workspace().Source().Bounds().Size())

	assert.Error(t, s.LoadImage(filepath.Join(t.TempDir(), "missing.png")))
}

func TestLoadImageFitsDisplay(t *testing.T) {
	cfg := testConfig()
	cfg.Display.Width, cfg.Display.Height = 40, 40
	s, err := NewState(cfg)
	require.NoError(t, err)

	require.NoError(t, s.LoadImage(writeImage(t, 100, 50)))
	assert.Equal(t, image.Pt(40, 20), s.Workspace().Source().Bounds().Size())
	assert.Equal(t, image.Pt(100, 50), s.Original().Bounds().Size())
}

func TestStrokeSegmentsAndExports(t *testing.T) {
	s, err := NewState(testConfig())
	require.NoError(t, err)
	require.NoError(t, s.LoadImage(writeImage(t, 100, 100)))

	var segmented []workspace.Result
	s.On(EventSegmented, func(data interface{}) {
		segmented = append(segmented, data.(workspace.Result))
	})
	var exported []string
	s.On(EventExported, func(data interface{}) { exported = append(exported, data.(string)) })

	stroke(t, s, pt(20, 20), pt(80, 80))
	require.Len(t, segmented, 1)
	require.False(t, segmented[0].Empty)

	dir := t.TempDir()
	cutPath := filepath.Join(dir, "nested", "cutout.png")
	require.NoError(t, s.ExportCutout(cutPath))
	prevPath := filepath.Join(dir, "preview.png")
	require.NoError(t, s.ExportPreview(prevPath))
	assert.Equal(t, []string{cutPath, prevPath}, exported)

	cut, err := cutimage.Load(cutPath)
	require.NoError(t, err)
	assert.Equal(t, segmented[0].Bounds.Size(), cut.Bounds().Size())

	prev, err := cutimage.Load(prevPath)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(100, 100), prev.Bounds().Size())
}

func TestStrokeSegmentsWithOpenCVEngine(t *testing.T) {
	if !cv.Available {
		t.Skip("built without OpenCV")
	}
	cfg := testConfig()
	cfg.Segmentation.Engine = "opencv"
	s, err := NewState(cfg)
	require.NoError(t, err)
	require.NoError(t, s.LoadImage(writeImage(t, 100, 100)))

	stroke(t, s, pt(20, 20), pt(80, 80))
	res := s.Workspace().Result()
	require.False(t, res.Empty)
	assert.True(t, res.Bounds.In(image.Rect(0, 0, 100, 100)))
}

func TestExportWithoutResult(t *testing.T) {
	s, err := NewState(testConfig())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.png")
	assert.ErrorIs(t, s.ExportPreview(path), workspace.ErrNoImage)
	assert.ErrorIs(t, s.ExportCutout(path), workspace.ErrNoImage)

	require.NoError(t, s.LoadImage(writeImage(t, 20, 20)))
	assert.ErrorIs(t, s.ExportCutout(path), workspace.ErrEmptyResult)
}

func TestModeAndTransformEvents(t *testing.T) {
	s, err := NewState(testConfig())
	require.NoError(t, err)
	require.NoError(t, s.LoadImage(writeImage(t, 100, 100)))

	var modes []workspace.EditMode
	s.On(EventModeChanged, func(data interface{}) { modes = append(modes, data.(workspace.EditMode)) })
	var transforms []geometry.AffineTransform
	s.On(EventTransformChanged, func(data interface{}) {
		transforms = append(transforms, data.(geometry.AffineTransform))
	})

	s.SetMode(workspace.ModeZoom)
	assert.Equal(t, []workspace.EditMode{workspace.ModeZoom}, modes)

	_, err = s.HandleEvent(touch.NewEvent(touch.ActionDown, pt(10, 10)))
	require.NoError(t, err)
	_, err = s.HandleEvent(touch.NewEvent(touch.ActionMove, pt(25, 40)))
	require.NoError(t, err)

	require.Len(t, transforms, 2)
	assert.Equal(t, geometry.Translation(15, 30), transforms[1])
	assert.Equal(t, geometry.Translation(15, 30), s.Workspace().Transform())
}

func TestRecordingRoundTrip(t *testing.T) {
	s, err := NewState(testConfig())
	require.NoError(t, err)
	require.NoError(t, s.LoadImage(writeImage(t, 100, 100)))

	_, err = s.StopRecording()
	assert.ErrorIs(t, err, ErrNotRecording)
	assert.ErrorIs(t, s.SaveRecording(filepath.Join(t.TempDir(), "x.yaml")), ErrNotRecording)

	s.StartRecording()
	assert.True(t, s.Recording())
	s.SetMode(workspace.ModeForeground)
	stroke(t, s, pt(20, 20), pt(80, 80))
	first := s.Workspace().Result()
	require.False(t, first.Empty)

	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, s.SaveRecording(path))
	sc, err := s.StopRecording()
	require.NoError(t, err)
	assert.False(t, s.Recording())
	// initial mode, explicit mode, down, move, up
	assert.Len(t, sc.Steps, 5)

	replayed, err := NewState(testConfig())
	require.NoError(t, err)
	require.NoError(t, replayed.LoadImage(writeImage(t, 100, 100)))
	stats, err := replayed.Replay(path)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Steps)
	assert.Equal(t, 3, stats.Events)
	assert.Equal(t, first.Bounds, replayed.Workspace().Result().Bounds)
}

func TestApplyConfigReloadsImage(t *testing.T) {
	s, err := NewState(testConfig())
	require.NoError(t, err)
	path := writeImage(t, 100, 100)
	require.NoError(t, s.LoadImage(path))
	s.SetMode(workspace.ModeEraser)

	var changed int
	s.On(EventConfigChanged, func(interface{}) { changed++ })

	cfg := testConfig()
	cfg.Workspace.Thickness = 3
	require.NoError(t, s.ApplyConfig(cfg))

	assert.Equal(t, 1, changed)
	assert.Equal(t, 3, s.Workspace().Thickness())
	assert.Equal(t, workspace.ModeEraser, s.Workspace().Mode())
	assert.Equal(t, path, s.ImagePath())
	assert.NotNil(t, s.Workspace().Source())

	bad := testConfig()
	bad.Workspace.Thickness = 0
	assert.Error(t, s.ApplyConfig(bad))
	assert.Equal(t, 3, s.Workspace().Thickness())
}

func TestApplyConfigConcurrentWithInput(t *testing.T) {
	s, err := NewState(testConfig())
	require.NoError(t, err)
	require.NoError(t, s.LoadImage(writeImage(t, 100, 100)))
	s.SetMode(workspace.ModeZoom)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			cfg := testConfig()
			cfg.Workspace.Thickness = 2 + i%3
			assert.NoError(t, s.ApplyConfig(cfg))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := s.HandleEvent(touch.NewEvent(touch.ActionDown, pt(10, 10)))
			assert.NoError(t, err)
			_, err = s.HandleEvent(touch.NewEvent(touch.ActionUp, pt(12, 12)))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = s.Workspace().Transform()
			_ = s.Config().Workspace.Thickness
			_ = s.ImagePath()
		}
	}()
	wg.Wait()

	assert.Contains(t, []int{2, 3, 4}, s.Workspace().Thickness())
	assert.NotNil(t, s.Workspace().Source())
}

func TestConfigWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace:\n  thickness: 5\n"), 0o644))

	w := NewConfigWatcher(path, time.Hour)
	var got []*config.Config
	w.OnChange(func(cfg *config.Config, err error) {
		require.NoError(t, err)
		got = append(got, cfg)
	})
	assert.False(t, w.Check())

	require.NoError(t, os.WriteFile(path, []byte("workspace:\n  thickness: 6\n"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
	assert.True(t, w.Check())
	assert.False(t, w.Check())
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Workspace.Thickness)

	w.Start()
	w.Stop()
	w.Stop()
}

func TestConfigWatcherConcurrentChecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace:\n  thickness: 5\n"), 0o644))
	w := NewConfigWatcher(path, time.Hour)

	var (
		mu      sync.Mutex
		reloads int
	)
	w.OnChange(func(*config.Config, error) {
		mu.Lock()
		reloads++
		mu.Unlock()
	})

	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Check()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, reloads)
}

func TestWatchConfigAppliesChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("display:\n  width: 100\n  height: 100\n"), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	s, err := NewState(cfg)
	require.NoError(t, err)

	var errs []error
	s.On(EventError, func(data interface{}) { errs = append(errs, data.(error)) })

	w := s.WatchConfig(path, time.Hour)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("workspace:\n  thickness: 0\n"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
	require.True(t, w.Check())
	require.Len(t, errs, 1)
	assert.Equal(t, 8, s.Workspace().Thickness())

	require.NoError(t, os.WriteFile(path, []byte("workspace:\n  thickness: 12\n"), 0o644))
	later := future.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	require.True(t, w.Check())
	assert.Len(t, errs, 1)
	assert.Equal(t, 12, s.Workspace().Thickness())
}
