package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/pagewalk/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.App().Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			runner.logger.Warn("not implemented")
			os.Exit(0)
		}
		if errors.Is(err, context.Canceled) {
			runner.logger.Warn("interrupted")
			os.Exit(130)
		}
		runner.logger.Fatalf("application error: %v", err)
	}
}
