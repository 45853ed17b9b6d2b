// Package containerbuild runs a build request with one of the build methods:
// in process, or inside a build container that runs "reactor inside-build".
//
// A containerised build talks to the outer process through a share
// directory bind mounted at config.ShareDir. The outer side writes the
// request as build.json and reads results.json back once the container
// exits.
package containerbuild

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/schmitthub/reactor/internal/config"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
	"github.com/schmitthub/reactor/internal/workflow"
)

// Method selects where the workflow runs.
type Method string

const (
	// Here runs the workflow in the current process.
	Here Method = "here"
	// HostDocker runs it in a build container using the host's engine socket.
	HostDocker Method = "hostdocker"
	// Privileged runs it in a privileged build container with its own engine.
	Privileged Method = "privileged"
)

// DockerSocket is the engine socket mounted into hostdocker build containers.
const DockerSocket = "/var/run/docker.sock"

// ErrUnknownMethod is returned by ParseMethod for unsupported names.
var ErrUnknownMethod = errors.New("unknown build method")

// ErrNoResults means a build container exited without writing results.json.
var ErrNoResults = errors.New("build container wrote no results")

// Methods returns the supported method names.
func Methods() []string {
	return []string{string(Here), string(HostDocker), string(Privileged)}
}

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	if !slices.Contains(Methods(), s) {
		return "", fmt.Errorf("%w %q (expected one of %s)", ErrUnknownMethod, s, strings.Join(Methods(), ", "))
	}
	return Method(s), nil
}

// Options carries what every method needs.
type Options struct {
	Engine   engine.Engine
	Registry *plugin.Registry
	Logger   logger.Logger

	// BuildImage is the image containerised methods run.
	BuildImage string
	// Verbose is passed on to the inside-build command.
	Verbose bool
	// TmpDir is the parent of git checkouts and share directories;
	// os.TempDir when empty.
	TmpDir string
}

func (o Options) log() logger.Logger {
	if o.Logger == nil {
		return logger.Nop()
	}
	return o.Logger
}

// Run executes req with method. A failed build is reported in the returned
// Results; the error is reserved for failures to run the build at all.
func Run(ctx context.Context, method Method, req *config.BuildRequest, opts Options) (*config.Results, error) {
	switch method {
	case Here:
		return RunHere(ctx, req, opts)
	case HostDocker, Privileged:
		return RunInContainer(ctx, method, req, opts)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMethod, method)
	}
}

// RunHere runs the workflow for req in the current process.
func RunHere(ctx context.Context, req *config.BuildRequest, opts Options) (*config.Results, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := opts.log()

	src := req.Source(opts.TmpDir, log)
	if c, ok := src.(interface{ Cleanup() error }); ok {
		defer func() {
			if err := c.Cleanup(); err != nil {
				log.Warn().Err(err).Msg("failed to remove source checkout")
			}
		}()
	}

	wf := workflow.New(req.WorkflowOptions(opts.Engine, opts.Registry, src, log))
	out, err := wf.Run(ctx)
	if out == nil {
		return nil, err
	}
	return config.NewResults(out), nil
}
