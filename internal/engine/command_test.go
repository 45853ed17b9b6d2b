package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForCommand(t *testing.T) {
	tests := []struct {
		name       string
		stream     LogStream
		wantFailed bool
		wantLogs   []string
		wantErr    string
	}{
		{
			name:     "nil stream",
			stream:   nil,
			wantLogs: nil,
		},
		{
			name: "successful build",
			stream: StreamOf(
				LogEvent{Stream: "Step 1/2 : FROM fedora\n"},
				LogEvent{Stream: "Step 2/2 : RUN true\nSuccessfully built abc\n"},
			),
			wantLogs: []string{"Step 1/2 : FROM fedora", "Step 2/2 : RUN true", "Successfully built abc"},
		},
		{
			name: "error mid stream keeps later output",
			stream: StreamOf(
				LogEvent{Stream: "Step 1/2 : FROM fedora\n"},
				LogEvent{Error: "returned a non-zero code: 1"},
				LogEvent{Status: "cleanup"},
			),
			wantFailed: true,
			wantLogs:   []string{"Step 1/2 : FROM fedora", "returned a non-zero code: 1", "cleanup"},
			wantErr:    "returned a non-zero code: 1",
		},
		{
			name: "iteration error",
			stream: func(yield func(LogEvent, error) bool) {
				if !yield(LogEvent{Stream: "partial"}, nil) {
					return
				}
				yield(LogEvent{}, errors.New("connection reset"))
			},
			wantFailed: true,
			wantLogs:   []string{"partial", "connection reset"},
			wantErr:    "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WaitForCommand(tt.stream)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantFailed, result.Failed())
			assert.Equal(t, tt.wantLogs, result.Logs)
			assert.Equal(t, tt.wantErr, result.Error)
		})
	}
}

func TestCommandResult_Failed(t *testing.T) {
	var nilResult *CommandResult
	assert.True(t, nilResult.Failed())
	assert.False(t, (&CommandResult{}).Failed())
	assert.True(t, (&CommandResult{ExitCode: 2}).Failed())
	assert.True(t, FailedResult(errors.New("boom")).Failed())
}
