// Package iostreamstest provides IOStreams backed by buffers.
package iostreamstest

import (
	"bytes"

	"github.com/schmitthub/reactor/internal/iostreams"
)

// TestIOStreams exposes the buffers behind an IOStreams.
type TestIOStreams struct {
	*iostreams.IOStreams
	InBuf  *bytes.Buffer
	OutBuf *bytes.Buffer
	ErrBuf *bytes.Buffer
}

// New returns non-TTY streams with colors disabled.
func New() *TestIOStreams {
	in, out, errOut := &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}
	ios := &iostreams.IOStreams{In: in, Out: out, ErrOut: errOut}
	ios.SetColorEnabled(false)
	return &TestIOStreams{IOStreams: ios, InBuf: in, OutBuf: out, ErrBuf: errOut}
}
