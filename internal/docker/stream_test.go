package docker

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
)

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func collect(t *testing.T, s engine.LogStream) ([]engine.LogEvent, error) {
	t.Helper()
	var events []engine.LogEvent
	for ev, err := range s {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func TestDecodeStream(t *testing.T) {
	input := strings.Join([]string{
		`{"stream":"Step 1/2 : FROM fedora\n"}`,
		``,
		`{"status":"Downloading","progress":"[==>  ]","id":"abc"}`,
		`{"aux":{"ID":"sha256:123"}}`,
		`{"status":"Pushed","id":"abc"}`,
		`{"errorDetail":{"message":"denied: requested access"},"error":"denied"}`,
	}, "\n")
	body := &closeRecorder{Reader: strings.NewReader(input)}

	events, err := collect(t, decodeStream(body, logger.Nop()))
	require.NoError(t, err)
	assert.Equal(t, []engine.LogEvent{
		{Stream: "Step 1/2 : FROM fedora\n"},
		{Status: "abc: Pushed"},
		{Error: "denied: requested access"},
	}, events)
	assert.True(t, body.closed)
}

func TestDecodeStream_Corrupted(t *testing.T) {
	input := strings.Repeat("not json\n", maxParseErrors+1)
	body := &closeRecorder{Reader: strings.NewReader(input)}

	_, err := collect(t, decodeStream(body, logger.Nop()))
	require.ErrorContains(t, err, "appears corrupted")
	assert.True(t, body.closed)
}

func TestDecodeStream_ToleratesOccasionalGarbage(t *testing.T) {
	input := "garbage\n" + `{"stream":"ok"}` + "\n"
	events, err := collect(t, decodeStream(io.NopCloser(strings.NewReader(input)), logger.Nop()))
	require.NoError(t, err)
	assert.Equal(t, []engine.LogEvent{{Stream: "ok"}}, events)
}

func TestDecodeStream_StopsEarly(t *testing.T) {
	input := `{"stream":"a"}` + "\n" + `{"stream":"b"}` + "\n"
	body := &closeRecorder{Reader: strings.NewReader(input)}
	for range decodeStream(body, logger.Nop()) {
		break
	}
	assert.True(t, body.closed)
}
