// Package sigctx ties process lifetime to OS signals.
package sigctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var stopSignals = []syscall.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// NotifyContext is done on the first stop signal.
func NotifyContext() (context.Context, context.CancelFunc) {
	return NotifyContextFrom(context.Background())
}

func NotifyContextFrom(parent context.Context) (context.Context, context.CancelFunc) {
	sigs := make([]os.Signal, 0, len(stopSignals))
	for _, s := range stopSignals {
		sigs = append(sigs, s)
	}
	return signal.NotifyContext(parent, sigs...)
}

// ShutdownContext bounds graceful shutdown. It is detached from the
// signal context, which is already done when shutdown starts.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
