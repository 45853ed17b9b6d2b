package plugins

import (
	"context"
	"fmt"
	"os"

	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/plugin"
)

// DockerfileContentKey records the Dockerfile the image was built from,
// including edits made by prebuild plugins.
const DockerfileContentKey = "dockerfile_content"

type dockerfileContent struct {
	wf *plugin.Context
}

func newDockerfileContent(_ engine.Engine, wf *plugin.Context, args plugin.Args) (plugin.Plugin, error) {
	if err := args.Decode(&struct{}{}); err != nil {
		return nil, err
	}
	return &dockerfileContent{wf: wf}, nil
}

func (p *dockerfileContent) Run(context.Context) (any, error) {
	if p.wf.Builder == nil {
		return nil, errNoBuilder
	}
	data, err := os.ReadFile(p.wf.Builder.DockerfilePath())
	if err != nil {
		return nil, fmt.Errorf("reading dockerfile: %w", err)
	}
	return string(data), nil
}
