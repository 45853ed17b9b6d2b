package docker

import (
	"context"
	"io"

	"github.com/moby/moby/client"
)

// APIClient is the part of the moby client reactor uses.
// dockertest.FakeAPIClient implements it for tests.
type APIClient interface {
	ImagePull(ctx context.Context, ref string, opts client.ImagePullOptions) (io.ReadCloser, error)
	ImagePush(ctx context.Context, ref string, opts client.ImagePushOptions) (io.ReadCloser, error)
	ImageBuild(ctx context.Context, buildContext io.Reader, opts client.ImageBuildOptions) (client.ImageBuildResult, error)
	ImageTag(ctx context.Context, opts client.ImageTagOptions) (client.ImageTagResult, error)
	ImageRemove(ctx context.Context, image string, opts client.ImageRemoveOptions) (client.ImageRemoveResult, error)
	ImageInspect(ctx context.Context, image string, opts ...client.ImageInspectOption) (client.ImageInspectResult, error)
	ImageList(ctx context.Context, opts client.ImageListOptions) (client.ImageListResult, error)

	ContainerCreate(ctx context.Context, opts client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	ContainerStart(ctx context.Context, container string, opts client.ContainerStartOptions) (client.ContainerStartResult, error)
	ContainerWait(ctx context.Context, container string, opts client.ContainerWaitOptions) client.ContainerWaitResult
	ContainerLogs(ctx context.Context, container string, opts client.ContainerLogsOptions) (client.ContainerLogsResult, error)
	ContainerRemove(ctx context.Context, container string, opts client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)

	Close() error
}

// mobyAPI narrows the pull and push responses of *client.Client to plain
// readers.
type mobyAPI struct {
	*client.Client
}

func (m mobyAPI) ImagePull(ctx context.Context, ref string, opts client.ImagePullOptions) (io.ReadCloser, error) {
	return m.Client.ImagePull(ctx, ref, opts)
}

func (m mobyAPI) ImagePush(ctx context.Context, ref string, opts client.ImagePushOptions) (io.ReadCloser, error) {
	return m.Client.ImagePush(ctx, ref, opts)
}

var _ APIClient = mobyAPI{}
