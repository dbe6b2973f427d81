// Package main is the entry point for the firetodo app.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"firetodo/internal/backend/firebase"
	"firetodo/internal/backend/memory"
	"firetodo/internal/cli"
	"firetodo/internal/commands"
	"firetodo/internal/config"
	"firetodo/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create backend factory
	factory := func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Backend, error) {
		switch cfg.Backend {
		case config.BackendMemory:
			return memory.New(logger).Services(), nil
		case config.BackendFirebase:
			client, err := firebase.New(ctx, cfg, logger)
			if err != nil {
				return service.Backend{}, err
			}
			return client.Services(), nil
		default:
			return service.Backend{}, fmt.Errorf("unknown backend: %s", cfg.Backend)
		}
	}

	// Create dispatcher
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
