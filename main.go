// Package main provides the entry point for the Cutout application.
package main

import (
	"os"
	"time"

	"cutout/internal/app"
	"cutout/internal/config"
	"cutout/internal/version"
	"cutout/ui/mainwindow"
	"cutout/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	appID          = "io.github.cutout"
	reloadInterval = 2 * time.Second
)

func main() {
	cliApp := &cli.App{
		Name:      "cutout",
		Usage:     "cut objects out of photos by painting over them",
		Version:   version.String(),
		ArgsUsage: "[image]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file, reloaded when it changes",
			},
		},
		Action: run,
	}
	if err := cliApp.Run(os.Args); err != nil {
		log.WithError(err).Fatal("cutout failed")
	}
}

func run(c *cli.Context) error {
	cfgPath := c.String("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Log.Apply(); err != nil {
		return err
	}
	log.WithField("version", version.String()).Info("starting cutout")

	state, err := app.NewState(cfg)
	if err != nil {
		return err
	}

	if c.NArg() > 0 {
		path := c.Args().First()
		if err := state.LoadImage(path); err != nil {
			log.WithError(err).WithField("path", path).Warn("failed to load image")
		}
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.CutoutTheme{})

	win := mainwindow.New(fyneApp, state, prefs.Load())

	if cfgPath != "" {
		watcher := state.WatchConfig(cfgPath, reloadInterval)
		defer watcher.Stop()
	}

	win.ShowAndRun()
	return nil
}
