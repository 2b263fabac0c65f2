package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that stop the gateway.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// After the first signal, default handling is restored, so a second signal
// terminates the process immediately. Call stop to release the handler.
func SignalContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(parent, ShutdownSignals...)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx, cancel
}
