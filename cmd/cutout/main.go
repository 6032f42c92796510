// Command cutout runs the segmentation pipeline without a display: it
// replays a recorded touch session against an image and writes the result.
package main

import (
	"fmt"
	"os"
	"strings"

	"cutout/internal/app"
	"cutout/internal/config"
	"cutout/internal/image"
	"cutout/internal/version"

	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagImage    = "image"
	flagScript   = "script"
	flagEngine   = "engine"
	flagPreview  = "preview"
	flagCutout   = "cutout"
	flagProfile  = "profile"
	flagWidth    = "width"
	flagHeight   = "height"
	flagInterp   = "interpolation"
	flagOut      = "out"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.WithError(err).Fatal("cutout failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "cutout",
		Usage:   "interactive watershed segmentation, headless",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "config file (yaml, toml or json)",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "override log.level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "segment",
				Usage:     "replay a touch script against an image and export the result",
				UsageText: "cutout segment --image in.jpg --script session.yaml --cutout out.png",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagImage, Aliases: []string{"i"}, Required: true, Usage: "source image"},
					&cli.StringFlag{Name: flagScript, Aliases: []string{"s"}, Required: true, Usage: "touch script (yaml)"},
					&cli.StringFlag{Name: flagEngine, Usage: "segmentation engine: native or opencv"},
					&cli.StringFlag{Name: flagPreview, Usage: "write the preview layer to this PNG"},
					&cli.StringFlag{Name: flagCutout, Usage: "write the cut out region to this PNG"},
					&cli.StringFlag{Name: flagProfile, Usage: "write a cpu or mem profile to the current directory"},
				},
				Action: segmentAction,
			},
			{
				Name:  "fit",
				Usage: "scale an image to the display size the workspace would use",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagImage, Aliases: []string{"i"}, Required: true, Usage: "source image"},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Required: true, Usage: "output PNG"},
					&cli.IntFlag{Name: flagWidth, Usage: "override display.width"},
					&cli.IntFlag{Name: flagHeight, Usage: "override display.height"},
					&cli.StringFlag{Name: flagInterp, Usage: "override display.interpolation"},
				},
				Action: fitAction,
			},
			{
				Name:  "version",
				Usage: "print build information",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, version.String())
					return err
				},
			},
		},
	}
}

// loadConfig reads the config named by the global flags and applies the
// logging settings.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	if lvl := c.String(flagLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	if err := cfg.Log.Apply(); err != nil {
		return nil, fmt.Errorf("invalid log settings: %w", err)
	}
	return cfg, nil
}

func segmentAction(c *cli.Context) error {
	switch strings.ToLower(c.String(flagProfile)) {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		return fmt.Errorf("unknown profile %q", c.String(flagProfile))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if engine := c.String(flagEngine); engine != "" {
		cfg.Segmentation.Engine = engine
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	state, err := app.NewState(cfg)
	if err != nil {
		return err
	}
	if err := state.LoadImage(c.String(flagImage)); err != nil {
		return err
	}
	stats, err := state.Replay(c.String(flagScript))
	if err != nil {
		return err
	}

	res := state.Workspace().Result()
	fields := log.Fields{
		"steps":   stats.Steps,
		"handled": stats.Handled,
		"empty":   res.Empty,
		"bounds":  res.Bounds,
	}
	log.WithFields(fields).Info("segmentation done")

	if path := c.String(flagPreview); path != "" {
		if err := state.ExportPreview(path); err != nil {
			return err
		}
	}
	if path := c.String(flagCutout); path != "" {
		if err := state.ExportCutout(path); err != nil {
			return err
		}
	}
	return nil
}

func fitAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	d := cfg.Display
	if c.IsSet(flagWidth) {
		d.Width = c.Int(flagWidth)
	}
	if c.IsSet(flagHeight) {
		d.Height = c.Int(flagHeight)
	}
	if c.IsSet(flagInterp) {
		d.Interpolation = c.String(flagInterp)
	}
	if d.Width < 1 || d.Height < 1 {
		return fmt.Errorf("display size must be positive, got %dx%d", d.Width, d.Height)
	}
	interp, err := image.Interpolator(d.Interpolation)
	if err != nil {
		return err
	}

	src, err := image.Load(c.String(flagImage))
	if err != nil {
		return err
	}
	out := image.Fit(src, d.Width, d.Height, interp)
	log.WithFields(log.Fields{
		"from": src.Bounds().Size(),
		"to":   out.Bounds().Size(),
	}).Info("image fitted")
	return image.Save(c.String(flagOut), out)
}
