package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"scoreboard/pkg/logging"
)

// Serve runs the dashboard server until ctx is cancelled or the process
// receives SIGINT or SIGTERM, then shuts down gracefully.
func (a *Application) Serve(ctx context.Context) error {
	return a.ServeOn(ctx, a.services.Config.Server.Addr)
}

// ServeOn is Serve with an explicit listen address.
func (a *Application) ServeOn(ctx context.Context, addr string) error {
	srv, err := a.services.NewServer()
	if err != nil {
		logging.Error("Serve", err, "Failed to create server")
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !a.services.Flow.IsAuthenticated(ctx) {
		logging.Info("Serve", "Not signed in yet; open /login in a browser")
	}
	return srv.ListenAndServe(ctx, addr)
}
