// Package app provides the advisor server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/advisor-x/cmd/advisor/app/options"
	advisor "github.com/kart-io/advisor-x/internal/advisor"
	"github.com/kart-io/advisor-x/pkg/app"
)

const (
	// Name is the name of the application.
	Name = "advisor"

	commandDesc = `Advisor Decision Core

The decision core of the venture advisory platform.

This server provides:
  - Turn routing across specialist advisory agents
  - Retrieval-grounded answers with freshness-aware ranking
  - A proposal-driven knowledge graph per venture
  - Streaming advisory turns with typed events
  - Versioned work products with optimistic concurrency`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := advisor.NewServer(cfg)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(setupSignalContext())
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or
// SIGTERM. A second signal force-exits.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
