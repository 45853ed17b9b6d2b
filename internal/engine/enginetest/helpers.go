package enginetest

import (
	"context"
	"strings"

	"github.com/schmitthub/reactor/internal/engine"
)

// SetupPull makes every pull succeed.
func (f *FakeEngine) SetupPull() {
	f.PullImageFn = func(_ context.Context, ref string, _ bool) (string, error) {
		return "Status: Downloaded newer image for " + ref, nil
	}
}

// SetupTag makes every tag succeed.
func (f *FakeEngine) SetupTag() {
	f.TagImageFn = func(context.Context, string, string, bool) error { return nil }
}

// SetupRemoveImage makes every image removal succeed.
func (f *FakeEngine) SetupRemoveImage() {
	f.RemoveImageFn = func(context.Context, string, bool) error { return nil }
}

// SetupPush makes every push succeed.
func (f *FakeEngine) SetupPush() {
	f.PushImageFn = func(_ context.Context, ref string, _ bool) (*engine.CommandResult, error) {
		return &engine.CommandResult{Logs: []string{"pushed " + ref}}, nil
	}
}

// SetupBuild makes builds stream the given output lines and succeed.
func (f *FakeEngine) SetupBuild(lines ...string) {
	f.BuildImageFn = func(context.Context, engine.BuildOptions) (engine.LogStream, error) {
		events := make([]engine.LogEvent, 0, len(lines))
		for _, l := range lines {
			events = append(events, engine.LogEvent{Stream: l + "\n"})
		}
		return engine.StreamOf(events...), nil
	}
}

// SetupBuildFailure makes builds stream lines followed by an error event.
func (f *FakeEngine) SetupBuildFailure(message string, lines ...string) {
	f.BuildImageFn = func(context.Context, engine.BuildOptions) (engine.LogStream, error) {
		events := make([]engine.LogEvent, 0, len(lines)+1)
		for _, l := range lines {
			events = append(events, engine.LogEvent{Stream: l + "\n"})
		}
		events = append(events, engine.LogEvent{Error: message})
		return engine.StreamOf(events...), nil
	}
}

// SetupImages serves ListImages from a fixed table keyed by reference.
// References with no entry match nothing.
func (f *FakeEngine) SetupImages(images map[string][]engine.ImageSummary) {
	f.ListImagesFn = func(_ context.Context, ref string) ([]engine.ImageSummary, error) {
		return images[ref], nil
	}
}

// SetupImageID lists exactly one image with id for every reference.
func (f *FakeEngine) SetupImageID(id string) {
	f.ListImagesFn = func(_ context.Context, ref string) ([]engine.ImageSummary, error) {
		return []engine.ImageSummary{{ID: id, RepoTags: []string{ref}}}, nil
	}
}

// SetupContainer runs containers that exit with code and print logs.
func (f *FakeEngine) SetupContainer(id string, code int64, logs string) {
	f.RunContainerFn = func(context.Context, engine.RunOptions) (string, error) { return id, nil }
	f.WaitContainerFn = func(context.Context, string) (int64, error) { return code, nil }
	f.ContainerLogsFn = func(context.Context, string, bool) ([]string, error) {
		trimmed := strings.TrimRight(logs, "\n")
		if trimmed == "" {
			return nil, nil
		}
		return strings.Split(trimmed, "\n"), nil
	}
	f.RemoveContainerFn = func(context.Context, string, bool) error { return nil }
}
