package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/pagewalk/internal/services"
	"github.com/desertthunder/pagewalk/internal/shared"
	"github.com/desertthunder/pagewalk/internal/tasks"
	"github.com/desertthunder/pagewalk/internal/ui"
)

// useFileLogger redirects logs to a file to avoid interfering with TUI rendering.
func (r *Runner) useFileLogger() error {
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = "./tmp/pagewalk-tui.log"
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	return nil
}

// streamTUI shows a chunk stream in the interactive viewer.
func (r *Runner) streamTUI(ctx context.Context, engine *tasks.Engine, listing services.Listing) error {
	items, err := ui.Run(ctx, engine, listing, listing.Name())
	if err != nil {
		return err
	}

	r.logger.Info("viewer closed", "listing", listing.Name(), "items", len(items))
	return nil
}
