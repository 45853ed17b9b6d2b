package plugin

import (
	"context"
	"fmt"

	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
)

// RunnerOptions configures NewRunner.
type RunnerOptions struct {
	Registry *Registry
	Hook     Hook
	Engine   engine.Engine
	Context  *Context
	Logger   logger.Logger
}

// Runner executes the plugins of one hook in order.
type Runner struct {
	registry *Registry
	hook     Hook
	engine   engine.Engine
	wf       *Context
	log      logger.Logger
}

// NewRunner returns a Runner recording into the context's result set for
// opts.Hook.
func NewRunner(opts RunnerOptions) *Runner {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	wf := opts.Context
	if wf == nil {
		wf = NewContext(nil, opts.Engine, log)
	}
	return &Runner{
		registry: opts.Registry,
		hook:     opts.Hook,
		engine:   opts.Engine,
		wf:       wf,
		log:      log,
	}
}

// Run executes specs in order and returns the hook's result set. It stops
// at the first failing plugin that is not allowed to fail and returns a
// *PluginError; results recorded so far, including the failure, are kept.
func (r *Runner) Run(ctx context.Context, specs []Spec) (*Results, error) {
	results := r.wf.Results(r.hook)
	if results == nil {
		results = NewResults()
		if r.hook == PreBuild {
			r.wf.PrebuildResults = results
		} else {
			r.wf.PostbuildResults = results
		}
	}

	for _, spec := range specs {
		def, known := r.registry.Lookup(r.hook, spec.Name)
		allowed := spec.allowedToFail(def.AllowedToFail)

		var (
			value any
			err   error
		)
		if !known {
			err = fmt.Errorf("%w: %s", ErrUnknownPlugin, spec.Name)
		} else {
			r.log.Info().Str("hook", string(r.hook)).Str("plugin", spec.Name).Msg("running plugin")
			value, err = r.execute(ctx, def, spec)
		}

		if err == nil {
			results.Set(Result{Key: spec.Name, Value: value})
			continue
		}

		results.Set(Result{Key: spec.Name, Err: err})
		if !allowed {
			r.log.Error().Err(err).Str("plugin", spec.Name).Msg("plugin failed, aborting")
			return results, &PluginError{Key: spec.Name, Hook: r.hook, Err: err}
		}
		r.log.Warn().Err(err).Str("plugin", spec.Name).Msg("plugin failed, continuing")
	}
	return results, nil
}

func (r *Runner) execute(ctx context.Context, def Definition, spec Spec) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value, err = nil, fmt.Errorf("plugin panicked: %v", p)
		}
	}()

	args := spec.Args
	if args == nil {
		args = Args{}
	}
	p, err := def.New(r.engine, r.wf, args)
	if err != nil {
		return nil, fmt.Errorf("creating plugin: %w", err)
	}
	return p.Run(ctx)
}
