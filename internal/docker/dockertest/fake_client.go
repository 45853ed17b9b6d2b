// Package dockertest provides a function-field fake of docker.APIClient.
//
// Usage:
//
//	fake := dockertest.NewFakeAPIClient()
//	fake.SetupImageList(summary)
//	c := docker.NewFromAPI(fake, nil)
//	images, err := c.ListImages(ctx, "app:latest")
//
//	fake.AssertCalled(t, "ImageList")
package dockertest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"

	"github.com/moby/moby/client"

	"github.com/schmitthub/reactor/internal/docker"
)

// FakeAPIClient delegates each method to its Fn field and records the call.
// Calling a method whose Fn is nil panics with "not implemented: Method".
type FakeAPIClient struct {
	mu sync.Mutex

	// Calls records the method names invoked, in order.
	Calls []string

	ImagePullFn    func(ctx context.Context, ref string, opts client.ImagePullOptions) (io.ReadCloser, error)
	ImagePushFn    func(ctx context.Context, ref string, opts client.ImagePushOptions) (io.ReadCloser, error)
	ImageBuildFn   func(ctx context.Context, buildContext io.Reader, opts client.ImageBuildOptions) (client.ImageBuildResult, error)
	ImageTagFn     func(ctx context.Context, opts client.ImageTagOptions) (client.ImageTagResult, error)
	ImageRemoveFn  func(ctx context.Context, image string, opts client.ImageRemoveOptions) (client.ImageRemoveResult, error)
	ImageInspectFn func(ctx context.Context, image string, opts ...client.ImageInspectOption) (client.ImageInspectResult, error)
	ImageListFn    func(ctx context.Context, opts client.ImageListOptions) (client.ImageListResult, error)

	ContainerCreateFn func(ctx context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	ContainerStartFn  func(ctx context.Context, container string, opts client.ContainerStartOptions) (client.ContainerStartResult, error)
	ContainerWaitFn   func(ctx context.Context, container string, opts client.ContainerWaitOptions) client.ContainerWaitResult
	ContainerLogsFn   func(ctx context.Context, container string, opts client.ContainerLogsOptions) (client.ContainerLogsResult, error)
	ContainerRemoveFn func(ctx context.Context, container string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)
}

var _ docker.APIClient = (*FakeAPIClient)(nil)

// NewFakeAPIClient returns a fake with no behavior configured.
func NewFakeAPIClient() *FakeAPIClient {
	return &FakeAPIClient{}
}

func notImplemented(method string) {
	panic(fmt.Sprintf("not implemented: %s", method))
}

func (f *FakeAPIClient) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, method)
}

func (f *FakeAPIClient) ImagePull(ctx context.Context, ref string, opts client.ImagePullOptions) (io.ReadCloser, error) {
	if f.ImagePullFn == nil {
		notImplemented("ImagePull")
	}
	f.record("ImagePull")
	return f.ImagePullFn(ctx, ref, opts)
}

func (f *FakeAPIClient) ImagePush(ctx context.Context, ref string, opts client.ImagePushOptions) (io.ReadCloser, error) {
	if f.ImagePushFn == nil {
		notImplemented("ImagePush")
	}
	f.record("ImagePush")
	return f.ImagePushFn(ctx, ref, opts)
}

func (f *FakeAPIClient) ImageBuild(ctx context.Context, buildContext io.Reader, opts client.ImageBuildOptions) (client.ImageBuildResult, error) {
	if f.ImageBuildFn == nil {
		notImplemented("ImageBuild")
	}
	f.record("ImageBuild")
	return f.ImageBuildFn(ctx, buildContext, opts)
}

func (f *FakeAPIClient) ImageTag(ctx context.Context, opts client.ImageTagOptions) (client.ImageTagResult, error) {
	if f.ImageTagFn == nil {
		notImplemented("ImageTag")
	}
	f.record("ImageTag")
	return f.ImageTagFn(ctx, opts)
}

func (f *FakeAPIClient) ImageRemove(ctx context.Context, image string, opts client.ImageRemoveOptions) (client.ImageRemoveResult, error) {
	if f.ImageRemoveFn == nil {
		notImplemented("ImageRemove")
	}
	f.record("ImageRemove")
	return f.ImageRemoveFn(ctx, image, opts)
}

func (f *FakeAPIClient) ImageInspect(ctx context.Context, image string, opts ...client.ImageInspectOption) (client.ImageInspectResult, error) {
	if f.ImageInspectFn == nil {
		notImplemented("ImageInspect")
	}
	f.record("ImageInspect")
	return f.ImageInspectFn(ctx, image, opts...)
}

func (f *FakeAPIClient) ImageList(ctx context.Context, opts client.ImageListOptions) (client.ImageListResult, error) {
	if f.ImageListFn == nil {
		notImplemented("ImageList")
	}
	f.record("ImageList")
	return f.ImageListFn(ctx, opts)
}

func (f *FakeAPIClient) ContainerCreate(ctx context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
	if f.ContainerCreateFn == nil {
		notImplemented("ContainerCreate")
	}
	f.record("ContainerCreate")
	return f.ContainerCreateFn(ctx, opts)
}

func (f *FakeAPIClient) ContainerStart(ctx context.Context, container string, opts client.ContainerStartOptions) (client.ContainerStartResult, error) {
	if f.ContainerStartFn == nil {
		notImplemented("ContainerStart")
	}
	f.record("ContainerStart")
	return f.ContainerStartFn(ctx, container, opts)
}

func (f *FakeAPIClient) ContainerWait(ctx context.Context, container string, opts client.ContainerWaitOptions) client.ContainerWaitResult {
	if f.ContainerWaitFn == nil {
		notImplemented("ContainerWait")
	}
	f.record("ContainerWait")
	return f.ContainerWaitFn(ctx, container, opts)
}

func (f *FakeAPIClient) ContainerLogs(ctx context.Context, container string, opts client.ContainerLogsOptions) (client.ContainerLogsResult, error) {
	if f.ContainerLogsFn == nil {
		notImplemented("ContainerLogs")
	}
	f.record("ContainerLogs")
	return f.ContainerLogsFn(ctx, container, opts)
}

func (f *FakeAPIClient) ContainerRemove(ctx context.Context, container string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
	if f.ContainerRemoveFn == nil {
		notImplemented("ContainerRemove")
	}
	f.record("ContainerRemove")
	return f.ContainerRemoveFn(ctx, container, opts)
}

func (f *FakeAPIClient) Close() error { return nil }

// AssertCalled fails the test if method was never called.
func (f *FakeAPIClient) AssertCalled(t *testing.T, method string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.Calls, method) {
		t.Errorf("expected %s to be called, calls: %v", method, f.Calls)
	}
}

// AssertNotCalled fails the test if method was called.
func (f *FakeAPIClient) AssertNotCalled(t *testing.T, method string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if slices.Contains(f.Calls, method) {
		t.Errorf("expected %s not to be called, calls: %v", method, f.Calls)
	}
}

// Reset clears the recorded calls.
func (f *FakeAPIClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
}
