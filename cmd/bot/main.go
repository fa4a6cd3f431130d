// Package main contains the entrypoint for the Discord seeding bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgard/seedingbot/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, config.ErrConfiguration) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
