package docker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
)

// maxParseErrors is how many consecutive undecodable lines a stream may
// contain before it is treated as corrupted.
const maxParseErrors = 10

// jsonMessage is one line of a build, pull or push stream.
type jsonMessage struct {
	Stream      string `json:"stream"`
	Status      string `json:"status"`
	ID          string `json:"id"`
	Progress    string `json:"progress"`
	Error       string `json:"error"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
}

func (m jsonMessage) errorText() string {
	if m.ErrorDetail.Message != "" {
		return m.ErrorDetail.Message
	}
	return m.Error
}

// decodeStream turns an engine JSON message stream into a LogStream. The
// body is closed when iteration ends. Progress bar updates and aux
// messages carry no log text and are dropped.
func decodeStream(body io.ReadCloser, log logger.Logger) engine.LogStream {
	return func(yield func(engine.LogEvent, error) bool) {
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		var parseErrors int

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var msg jsonMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				parseErrors++
				log.Debug().
					Err(err).
					Str("raw", string(line)).
					Msg("failed to parse engine output event")
				if parseErrors > maxParseErrors {
					yield(engine.LogEvent{}, fmt.Errorf("engine output stream appears corrupted: %d consecutive parse failures", parseErrors))
					return
				}
				continue
			}
			parseErrors = 0

			ev := engine.LogEvent{Error: msg.errorText()}
			if ev.Error == "" {
				if msg.Progress != "" {
					continue
				}
				ev.Stream = msg.Stream
				ev.Status = msg.Status
				if ev.Status != "" && msg.ID != "" {
					ev.Status = msg.ID + ": " + ev.Status
				}
			}
			if ev.Stream == "" && ev.Status == "" && ev.Error == "" {
				continue
			}
			if !yield(ev, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(engine.LogEvent{}, fmt.Errorf("reading engine output: %w", err))
		}
	}
}
