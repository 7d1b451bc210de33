package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ThreadHarvester/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.New("error").Error("application stopped", "error", err)
		stop()
		os.Exit(1)
	}
}
