package engine

import (
	"strings"
)

// CommandResult is the outcome of a streamed engine operation.
type CommandResult struct {
	Logs     []string `json:"logs"`
	Error    string   `json:"error,omitempty"`
	ExitCode int      `json:"exit_code"`
}

// Failed reports whether the operation did not succeed.
func (r *CommandResult) Failed() bool {
	if r == nil {
		return true
	}
	return r.Error != "" || r.ExitCode != 0
}

// FailedResult returns a CommandResult describing err.
func FailedResult(err error) *CommandResult {
	return &CommandResult{
		Logs:     []string{err.Error()},
		Error:    err.Error(),
		ExitCode: 1,
	}
}

// WaitForCommand drains stream and collects its output. Success is only
// decided once the stream has ended: an error event or iteration error
// anywhere in the stream marks the command failed.
func WaitForCommand(stream LogStream) *CommandResult {
	result := &CommandResult{}
	if stream == nil {
		return result
	}

	for ev, err := range stream {
		if err != nil {
			result.Error = err.Error()
			result.Logs = append(result.Logs, err.Error())
			continue
		}
		for _, text := range []string{ev.Stream, ev.Status} {
			for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
				if line != "" {
					result.Logs = append(result.Logs, line)
				}
			}
		}
		if ev.Error != "" {
			result.Error = ev.Error
			result.Logs = append(result.Logs, ev.Error)
		}
	}

	if result.Error != "" {
		result.ExitCode = 1
	}
	return result
}

// StreamOf returns a LogStream replaying events.
func StreamOf(events ...LogEvent) LogStream {
	return func(yield func(LogEvent, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}
}
