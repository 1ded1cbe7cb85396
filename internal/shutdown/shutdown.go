// Package shutdown provides a context canceled on SIGINT/SIGTERM.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"knc/internal/logging"
)

// New returns a context that is canceled on the first interrupt signal.
// A second signal terminates the process immediately.
func New() (context.Context, func()) {
	ctx := logging.WithLogger(context.Background(), logging.DefaultLogger())
	ctx, cancel := context.WithCancel(ctx)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.FromContext(ctx).Info("shutdown: signal received, stopping")
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	return ctx, cancel
}
