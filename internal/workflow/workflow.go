// Package workflow runs one complete build: prebuild plugins, the image
// build, pushes and postbuild plugins, and reports the Outcome.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/schmitthub/reactor/internal/builder"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
	"github.com/schmitthub/reactor/internal/source"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("workflow has already run")

// ErrBuildFailed is the error Run returns when the image build itself failed.
var ErrBuildFailed = errors.New("image build failed")

// State is the position of a workflow in its run.
type State int

const (
	Init State = iota
	PreBuild
	Building
	PostBuild
	Done
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case PreBuild:
		return "prebuild"
	case Building:
		return "building"
	case PostBuild:
		return "postbuild"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Options configures a workflow.
type Options struct {
	Engine   engine.Engine
	Source   source.Source
	Registry *plugin.Registry
	Logger   logger.Logger

	// Image is the name the built image is tagged with.
	Image string

	ParentRegistry         string
	ParentRegistryInsecure bool

	TargetRegistries         []string
	TargetRegistriesInsecure bool

	PrebuildPlugins  []plugin.Spec
	PostbuildPlugins []plugin.Spec

	// FailFast skips postbuild plugins when the build fails. By default they
	// run so diagnostic plugins can inspect the failure.
	FailFast bool

	NoCache bool
	Labels  map[string]string
}

// Workflow runs a single build. It is not reusable.
type Workflow struct {
	opts  Options
	log   logger.Logger
	state State

	builder *builder.Builder
	wf      *plugin.Context
}

// New returns a workflow in the Init state.
func New(opts Options) *Workflow {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if opts.Registry == nil {
		opts.Registry = plugin.NewRegistry()
	}
	return &Workflow{opts: opts, log: log}
}

// State returns the current state.
func (w *Workflow) State() State { return w.state }

// Builder returns the builder, or nil before Run has created it.
func (w *Workflow) Builder() *builder.Builder { return w.builder }

// Context returns the plugin context shared by the run, or nil before Run.
func (w *Workflow) Context() *plugin.Context { return w.wf }

func (w *Workflow) advance(to State) {
	w.log.Debug().Str("from", w.state.String()).Str("to", to.String()).Msg("workflow state")
	w.state = to
}

// Run executes the workflow. The returned Outcome is never nil; on failure
// it holds everything collected up to the failing stage and the error is
// also returned.
func (w *Workflow) Run(ctx context.Context) (*Outcome, error) {
	if w.state != Init {
		return nil, ErrAlreadyRun
	}

	out := &Outcome{}
	err := w.run(ctx, out)
	w.advance(Done)

	out.Err = err
	out.Success = err == nil
	if w.wf != nil {
		out.PrebuildResults = w.wf.PrebuildResults
		out.PostbuildResults = w.wf.PostbuildResults
	}
	if out.PrebuildResults == nil {
		out.PrebuildResults = plugin.NewResults()
	}
	if out.PostbuildResults == nil {
		out.PostbuildResults = plugin.NewResults()
	}

	if err != nil {
		w.log.Error().Err(err).Str("stage", out.FailedStage.String()).Msg("workflow failed")
	} else {
		w.log.Info().Str("image", out.Image).Str("id", out.ImageID).Msg("workflow finished")
	}
	return out, err
}

func (w *Workflow) run(ctx context.Context, out *Outcome) error {
	w.advance(PreBuild)
	fail := func(err error) error {
		out.FailedStage = w.state
		return err
	}

	b, err := builder.New(ctx, builder.Options{
		Engine:  w.opts.Engine,
		Source:  w.opts.Source,
		Image:   w.opts.Image,
		Logger:  w.log,
		NoCache: w.opts.NoCache,
		Labels:  w.opts.Labels,
	})
	if err != nil {
		return fail(err)
	}
	w.builder = b
	out.Image = b.Image().String()
	out.BaseImage = b.BaseImage().String()

	w.wf = plugin.NewContext(b, w.opts.Engine, w.log)
	w.wf.TargetRegistries = w.opts.TargetRegistries

	if w.opts.ParentRegistry != "" {
		if _, err := b.PullBaseImage(ctx, w.opts.ParentRegistry, w.opts.ParentRegistryInsecure); err != nil {
			return fail(err)
		}
	}

	if _, err := w.runner(plugin.PreBuild).Run(ctx, w.opts.PrebuildPlugins); err != nil {
		return fail(err)
	}

	w.advance(Building)
	out.BuildAttempted = true
	result, err := b.Build(ctx)
	if result != nil {
		w.wf.BuildResult = result
		out.BuildResult = result.Command
		out.ImageID = result.ImageID
		out.ImageSize = result.ImageSize
	}
	if err != nil {
		return fail(err)
	}

	var buildErr error
	if result.Failed() {
		buildErr = fmt.Errorf("%w: %s", ErrBuildFailed, result.Command.Error)
		out.FailedStage = Building
		if w.opts.FailFast {
			return buildErr
		}
		w.log.Info().Msg("build failed, running postbuild plugins anyway")
	} else {
		for _, registry := range w.opts.TargetRegistries {
			push, err := b.PushBuiltImage(ctx, registry, w.opts.TargetRegistriesInsecure)
			if push != nil {
				out.PushResults = append(out.PushResults, PushResult{Registry: registry, Result: push})
			}
			if err != nil {
				return fail(err)
			}
		}
	}

	w.advance(PostBuild)
	if _, err := w.runner(plugin.PostBuild).Run(ctx, w.opts.PostbuildPlugins); err != nil {
		if buildErr != nil {
			return errors.Join(buildErr, err)
		}
		return fail(err)
	}
	return buildErr
}

func (w *Workflow) runner(hook plugin.Hook) *plugin.Runner {
	return plugin.NewRunner(plugin.RunnerOptions{
		Registry: w.opts.Registry,
		Hook:     hook,
		Engine:   w.opts.Engine,
		Context:  w.wf,
		Logger:   w.log,
	})
}
