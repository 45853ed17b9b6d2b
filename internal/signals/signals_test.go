package signals

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupSignalContext_ParentCancel(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())

	ctx, cancel := SetupSignalContext(parent)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be done yet")
	default:
	}

	parentCancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should be done after parent cancel")
	}
}

func TestNotifyContext_Signal(t *testing.T) {
	ctx, cancel := notifyContext(context.Background(), syscall.SIGUSR1)
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context should be done after the signal")
	}

	var interrupted *InterruptedError
	cause := context.Cause(ctx)
	require.True(t, errors.As(cause, &interrupted))
	assert.Equal(t, syscall.SIGUSR1, interrupted.Signal)
	assert.ErrorIs(t, cause, context.Canceled)
	assert.Equal(t, "interrupted by user defined signal 1", cause.Error())
}
