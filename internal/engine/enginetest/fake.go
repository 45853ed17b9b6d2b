// Package enginetest provides a recording fake of engine.Engine.
//
// Each method delegates to the matching Fn field and records the call.
// Calling a method whose Fn is nil panics, so a test states exactly which
// engine operations it expects.
package enginetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/schmitthub/reactor/internal/engine"
)

// Call is one recorded engine call.
type Call struct {
	Method string
	Args   []string
}

func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Method
	}
	return c.Method + "(" + strings.Join(c.Args, ", ") + ")"
}

// FakeEngine implements engine.Engine with function fields.
type FakeEngine struct {
	mu    sync.Mutex
	calls []Call

	PullImageFn       func(ctx context.Context, ref string, insecure bool) (string, error)
	BuildImageFn      func(ctx context.Context, opts engine.BuildOptions) (engine.LogStream, error)
	TagImageFn        func(ctx context.Context, source, target string, force bool) error
	PushImageFn       func(ctx context.Context, ref string, insecure bool) (*engine.CommandResult, error)
	RemoveImageFn     func(ctx context.Context, ref string, force bool) error
	InspectImageFn    func(ctx context.Context, ref string) (*engine.ImageInspect, error)
	ListImagesFn      func(ctx context.Context, ref string) ([]engine.ImageSummary, error)
	RunContainerFn    func(ctx context.Context, opts engine.RunOptions) (string, error)
	WaitContainerFn   func(ctx context.Context, id string) (int64, error)
	ContainerLogsFn   func(ctx context.Context, id string, follow bool) ([]string, error)
	RemoveContainerFn func(ctx context.Context, id string, force bool) error
}

var _ engine.Engine = (*FakeEngine)(nil)

// New returns a FakeEngine with no operations configured.
func New() *FakeEngine {
	return &FakeEngine{}
}

func (f *FakeEngine) record(method string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
}

func notImplemented(method string) {
	panic(fmt.Sprintf("not implemented: %s (set %sFn on FakeEngine)", method, method))
}

// Calls returns the recorded calls in order.
func (f *FakeEngine) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Methods returns the recorded method names in order.
func (f *FakeEngine) Methods() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

// Called reports whether method was called at least once.
func (f *FakeEngine) Called(method string) bool {
	for _, c := range f.Calls() {
		if c.Method == method {
			return true
		}
	}
	return false
}

// Reset clears recorded calls.
func (f *FakeEngine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FakeEngine) PullImage(ctx context.Context, ref string, insecure bool) (string, error) {
	f.record("PullImage", ref)
	if f.PullImageFn == nil {
		notImplemented("PullImage")
	}
	return f.PullImageFn(ctx, ref, insecure)
}

func (f *FakeEngine) BuildImage(ctx context.Context, opts engine.BuildOptions) (engine.LogStream, error) {
	f.record("BuildImage", opts.Tag)
	if f.BuildImageFn == nil {
		notImplemented("BuildImage")
	}
	return f.BuildImageFn(ctx, opts)
}

func (f *FakeEngine) TagImage(ctx context.Context, source, target string, force bool) error {
	f.record("TagImage", source, target)
	if f.TagImageFn == nil {
		notImplemented("TagImage")
	}
	return f.TagImageFn(ctx, source, target, force)
}

func (f *FakeEngine) PushImage(ctx context.Context, ref string, insecure bool) (*engine.CommandResult, error) {
	f.record("PushImage", ref)
	if f.PushImageFn == nil {
		notImplemented("PushImage")
	}
	return f.PushImageFn(ctx, ref, insecure)
}

func (f *FakeEngine) RemoveImage(ctx context.Context, ref string, force bool) error {
	f.record("RemoveImage", ref)
	if f.RemoveImageFn == nil {
		notImplemented("RemoveImage")
	}
	return f.RemoveImageFn(ctx, ref, force)
}

func (f *FakeEngine) InspectImage(ctx context.Context, ref string) (*engine.ImageInspect, error) {
	f.record("InspectImage", ref)
	if f.InspectImageFn == nil {
		notImplemented("InspectImage")
	}
	return f.InspectImageFn(ctx, ref)
}

func (f *FakeEngine) ListImages(ctx context.Context, ref string) ([]engine.ImageSummary, error) {
	f.record("ListImages", ref)
	if f.ListImagesFn == nil {
		notImplemented("ListImages")
	}
	return f.ListImagesFn(ctx, ref)
}

func (f *FakeEngine) RunContainer(ctx context.Context, opts engine.RunOptions) (string, error) {
	f.record("RunContainer", opts.Image)
	if f.RunContainerFn == nil {
		notImplemented("RunContainer")
	}
	return f.RunContainerFn(ctx, opts)
}

func (f *FakeEngine) WaitContainer(ctx context.Context, id string) (int64, error) {
	f.record("WaitContainer", id)
	if f.WaitContainerFn == nil {
		notImplemented("WaitContainer")
	}
	return f.WaitContainerFn(ctx, id)
}

func (f *FakeEngine) ContainerLogs(ctx context.Context, id string, follow bool) ([]string, error) {
	f.record("ContainerLogs", id)
	if f.ContainerLogsFn == nil {
		notImplemented("ContainerLogs")
	}
	return f.ContainerLogsFn(ctx, id, follow)
}

func (f *FakeEngine) RemoveContainer(ctx context.Context, id string, force bool) error {
	f.record("RemoveContainer", id)
	if f.RemoveContainerFn == nil {
		notImplemented("RemoveContainer")
	}
	return f.RemoveContainerFn(ctx, id, force)
}
