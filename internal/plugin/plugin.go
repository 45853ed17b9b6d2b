// Package plugin runs ordered lists of build steps before and after the
// image build.
//
// Plugins are registered explicitly in a Registry under a hook and a key.
// A Runner executes a list of Specs against a shared Context, recording one
// Result per key and applying each plugin's failure policy: a plugin that is
// not allowed to fail aborts the remaining list, one that is allowed to fail
// is recorded as failed and the list continues.
package plugin

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/schmitthub/reactor/internal/builder"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
)

// Hook is the pipeline a plugin belongs to.
type Hook string

const (
	PreBuild  Hook = "prebuild"
	PostBuild Hook = "postbuild"
)

// Valid reports whether h is a known hook.
func (h Hook) Valid() bool {
	return h == PreBuild || h == PostBuild
}

// Plugin is one executable build step.
type Plugin interface {
	Run(ctx context.Context) (any, error)
}

// RunFunc adapts a function to Plugin.
type RunFunc func(ctx context.Context) (any, error)

func (f RunFunc) Run(ctx context.Context) (any, error) { return f(ctx) }

// Constructor creates a plugin instance from its arguments.
type Constructor func(eng engine.Engine, wf *Context, args Args) (Plugin, error)

// Definition describes a plugin type.
type Definition struct {
	Key  string
	Hook Hook
	// AllowedToFail is the type-level failure policy. A Spec may override it.
	AllowedToFail bool
	New           Constructor
}

// Spec is one requested plugin invocation.
type Spec struct {
	Name          string `json:"name" mapstructure:"name" yaml:"name"`
	Args          Args   `json:"args,omitempty" mapstructure:"args" yaml:"args,omitempty"`
	AllowedToFail *bool  `json:"allowed_to_fail,omitempty" mapstructure:"allowed_to_fail" yaml:"allowed_to_fail,omitempty"`
}

// allowedToFail resolves the effective policy against the type default.
func (s Spec) allowedToFail(typeDefault bool) bool {
	if s.AllowedToFail != nil {
		return *s.AllowedToFail
	}
	return typeDefault
}

// Args holds plugin keyword arguments.
type Args map[string]any

// Decode decodes the arguments into out, a pointer to a struct with
// mapstructure tags. Scalars are converted weakly, so "true" and 1 both
// decode into a bool.
func (a Args) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(a)); err != nil {
		return fmt.Errorf("invalid plugin arguments: %w", err)
	}
	return nil
}

// Context is the state shared by all plugins of one workflow run.
// Plugins may mutate it; later plugins see the changes.
type Context struct {
	Builder *builder.Builder
	Engine  engine.Engine
	Logger  logger.Logger

	// Repos collects repository URLs injected into the build, by kind.
	Repos map[string][]string

	TargetRegistries []string

	PrebuildResults  *Results
	PostbuildResults *Results

	// BuildResult is nil until the build has run.
	BuildResult *builder.BuildResult
}

// NewContext returns a Context with empty result sets.
func NewContext(b *builder.Builder, eng engine.Engine, log logger.Logger) *Context {
	if log == nil {
		log = logger.Nop()
	}
	return &Context{
		Builder:          b,
		Engine:           eng,
		Logger:           log,
		Repos:            map[string][]string{},
		PrebuildResults:  NewResults(),
		PostbuildResults: NewResults(),
	}
}

// Results returns the result set for hook.
func (c *Context) Results(hook Hook) *Results {
	if hook == PreBuild {
		return c.PrebuildResults
	}
	return c.PostbuildResults
}
