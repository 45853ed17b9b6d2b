// Package signals turns termination signals into context cancellation.
package signals

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// InterruptedError is the cancellation cause recorded when a signal arrives.
type InterruptedError struct {
	Signal os.Signal
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("interrupted by %s", e.Signal)
}

// Is makes errors.Is(err, context.Canceled) hold for an interruption.
func (e *InterruptedError) Is(target error) bool { return target == context.Canceled }

// SetupSignalContext returns a context canceled on SIGINT or SIGTERM.
// context.Cause reports an *InterruptedError naming the signal.
func SetupSignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return notifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func notifyContext(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			cancel(&InterruptedError{Signal: sig})
		case <-ctx.Done():
		}
	}()

	return ctx, func() { cancel(context.Canceled) }
}
