// Package main is the entry point for the task-consolidator CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhle/task-consolidator/internal/app"
	"github.com/nhle/task-consolidator/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Execute(ctx, version)
	stop()

	if err != nil {
		app.NewReporter(os.Stderr).Error(err)
		os.Exit(1)
	}
}
