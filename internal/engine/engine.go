// Package engine defines the container engine contract the build
// orchestrator is written against.
//
// The orchestrator only sequences calls and records their outcome; image
// layers, registry protocols and Dockerfile semantics all live behind this
// interface. internal/docker provides the real implementation and
// enginetest provides a recording fake.
package engine

import (
	"context"
	"iter"
	"time"
)

// Engine is the set of container engine operations used by the orchestrator
// and its plugins. Calls are made sequentially from a single goroutine.
type Engine interface {
	// PullImage pulls ref and returns the engine's final status line.
	PullImage(ctx context.Context, ref string, insecure bool) (string, error)
	// BuildImage starts a build. The returned stream must be drained to
	// learn whether the build succeeded.
	BuildImage(ctx context.Context, opts BuildOptions) (LogStream, error)
	TagImage(ctx context.Context, source, target string, force bool) error
	// PushImage pushes ref. A push rejected by the registry is reported in
	// the returned CommandResult, not as an error.
	PushImage(ctx context.Context, ref string, insecure bool) (*CommandResult, error)
	RemoveImage(ctx context.Context, ref string, force bool) error
	InspectImage(ctx context.Context, ref string) (*ImageInspect, error)
	// ListImages returns local images matching ref.
	ListImages(ctx context.Context, ref string) ([]ImageSummary, error)

	RunContainer(ctx context.Context, opts RunOptions) (string, error)
	WaitContainer(ctx context.Context, id string) (int64, error)
	// ContainerLogs returns the combined stdout and stderr of a container,
	// one entry per line.
	ContainerLogs(ctx context.Context, id string, follow bool) ([]string, error)
	RemoveContainer(ctx context.Context, id string, force bool) error
}

// BuildOptions configures an image build.
type BuildOptions struct {
	ContextDir string // directory sent as the build context
	Dockerfile string // Dockerfile path relative to ContextDir
	Tag        string
	NoCache    bool
	Pull       bool
	Labels     map[string]string
}

// RunOptions configures a throwaway container.
type RunOptions struct {
	Name       string
	Image      string
	Command    []string
	Entrypoint []string
	Env        []string
	Binds      []string
	Privileged bool
}

// ImageSummary is one entry of a local image listing.
type ImageSummary struct {
	ID       string
	RepoTags []string
	Size     int64
	Created  time.Time
}

// ImageInspect is the subset of image metadata plugins and callers need.
type ImageInspect struct {
	ID           string            `json:"id"`
	RepoTags     []string          `json:"repo_tags,omitempty"`
	Architecture string            `json:"architecture,omitempty"`
	Os           string            `json:"os,omitempty"`
	Size         int64             `json:"size"`
	Created      string            `json:"created,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	Env          []string          `json:"env,omitempty"`
	Entrypoint   []string          `json:"entrypoint,omitempty"`
	Cmd          []string          `json:"cmd,omitempty"`
}

// LogEvent is one decoded message from an engine progress stream.
type LogEvent struct {
	Stream string // human readable output, may span several lines
	Status string
	Error  string // non-empty when the engine reported a failure
}

// LogStream yields progress events until the operation finishes.
// A non-nil error ends the stream.
type LogStream = iter.Seq2[LogEvent, error]
