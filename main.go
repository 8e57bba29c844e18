package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"

	"megbot/internal/config"
	"megbot/internal/events"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	var log logger.Logger = logger.NewDefaultLogger()
	if cfg.LogFile != "" {
		log = logger.NewFileLogger(cfg.LogFile)
	}

	app, err := NewApp(cfg, log, events.Runtime)
	if err != nil {
		fmt.Println("Error starting MegBot:", err)
		os.Exit(1)
	}

	err = wails.Run(&options.App{
		Title:  "MegBot",
		Width:  1024,
		Height: 768,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyAlways,
			ProgramName:         "MegBot",
		},
		BackgroundColour:   &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		Logger:             log,
		LogLevel:           logLevel(cfg.LogLevel),
		LogLevelProduction: logger.ERROR,
		OnStartup:          app.startup,
		OnShutdown:         app.shutdown,
		Bind: []interface{}{
			app,
			app.controller,
			app.credentials,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "trace":
		return logger.TRACE
	case "debug":
		return logger.DEBUG
	case "warning":
		return logger.WARNING
	case "error":
		return logger.ERROR
	}
	return logger.INFO
}
