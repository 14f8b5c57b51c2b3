package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gaarage/storefront/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(config.Load, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		reportError(root.ErrOrStderr(), err)
		cancel()
		os.Exit(1)
	}
}
