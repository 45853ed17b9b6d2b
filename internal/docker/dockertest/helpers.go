package dockertest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	dockerspec "github.com/moby/docker-image-spec/specs-go/v1"
	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	dockerimage "github.com/moby/moby/api/types/image"
	"github.com/moby/moby/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Message is one line of an engine JSON message stream.
type Message struct {
	Stream string `json:"stream,omitempty"`
	Status string `json:"status,omitempty"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// JSONStream encodes messages as a newline delimited stream body.
func JSONStream(msgs ...Message) io.ReadCloser {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, m := range msgs {
		_ = enc.Encode(m)
	}
	return io.NopCloser(&buf)
}

// BuildOutput returns build stream messages for lines.
func BuildOutput(lines ...string) []Message {
	out := make([]Message, 0, len(lines))
	for _, l := range lines {
		out = append(out, Message{Stream: l + "\n"})
	}
	return out
}

// SetupImagePull makes pulls report a download and succeed.
func (f *FakeAPIClient) SetupImagePull() {
	f.ImagePullFn = func(_ context.Context, ref string, _ client.ImagePullOptions) (io.ReadCloser, error) {
		return JSONStream(
			Message{Status: "Pulling from " + ref, ID: "latest"},
			Message{Status: "Digest: sha256:0123"},
			Message{Status: "Status: Downloaded newer image for " + ref},
		), nil
	}
}

// SetupImagePush makes pushes stream msgs.
func (f *FakeAPIClient) SetupImagePush(msgs ...Message) {
	f.ImagePushFn = func(context.Context, string, client.ImagePushOptions) (io.ReadCloser, error) {
		return JSONStream(msgs...), nil
	}
}

// SetupImageBuild makes builds stream msgs. The build context is drained
// into ctxBuf when it is non-nil.
func (f *FakeAPIClient) SetupImageBuild(ctxBuf *bytes.Buffer, msgs ...Message) {
	f.ImageBuildFn = func(_ context.Context, buildContext io.Reader, _ client.ImageBuildOptions) (client.ImageBuildResult, error) {
		dst := io.Discard
		if ctxBuf != nil {
			dst = ctxBuf
		}
		if _, err := io.Copy(dst, buildContext); err != nil {
			return client.ImageBuildResult{}, err
		}
		return client.ImageBuildResult{Body: JSONStream(msgs...)}, nil
	}
}

// SetupImageTag makes every tag succeed.
func (f *FakeAPIClient) SetupImageTag() {
	f.ImageTagFn = func(context.Context, client.ImageTagOptions) (client.ImageTagResult, error) {
		return client.ImageTagResult{}, nil
	}
}

// SetupImageRemove makes every image removal succeed.
func (f *FakeAPIClient) SetupImageRemove() {
	f.ImageRemoveFn = func(context.Context, string, client.ImageRemoveOptions) (client.ImageRemoveResult, error) {
		return client.ImageRemoveResult{}, nil
	}
}

// SetupImageList makes every listing return summaries.
func (f *FakeAPIClient) SetupImageList(summaries ...dockerimage.Summary) {
	f.ImageListFn = func(context.Context, client.ImageListOptions) (client.ImageListResult, error) {
		return client.ImageListResult{Items: summaries}, nil
	}
}

// SetupImageInspect serves inspects from images keyed by reference.
// Unknown references return a not-found error.
func (f *FakeAPIClient) SetupImageInspect(images map[string]client.ImageInspectResult) {
	f.ImageInspectFn = func(_ context.Context, image string, _ ...client.ImageInspectOption) (client.ImageInspectResult, error) {
		res, ok := images[image]
		if !ok {
			return client.ImageInspectResult{}, NotFoundError("No such image: " + image)
		}
		return res, nil
	}
}

// ImageInspectFixture returns an inspect result with the given config.
func ImageInspectFixture(id string, labels map[string]string, cmd ...string) client.ImageInspectResult {
	return client.ImageInspectResult{
		InspectResponse: dockerimage.InspectResponse{
			ID:           id,
			RepoTags:     []string{},
			Architecture: "amd64",
			Os:           "linux",
			Size:         5 * 1024 * 1024,
			Config: &dockerspec.DockerOCIImageConfig{
				ImageConfig: ocispec.ImageConfig{
					Labels: labels,
					Cmd:    cmd,
				},
			},
		},
	}
}

// SetupContainerRun makes create, start, wait, logs and remove succeed for
// a container that prints stdout and exits with exitCode.
func (f *FakeAPIClient) SetupContainerRun(id string, exitCode int64, stdout string) {
	f.ContainerCreateFn = func(context.Context, client.ContainerCreateOptions) (client.ContainerCreateResult, error) {
		return client.ContainerCreateResult{ID: id}, nil
	}
	f.ContainerStartFn = func(context.Context, string, client.ContainerStartOptions) (client.ContainerStartResult, error) {
		return client.ContainerStartResult{}, nil
	}
	f.ContainerWaitFn = func(context.Context, string, client.ContainerWaitOptions) client.ContainerWaitResult {
		return ContainerWaitExit(exitCode)
	}
	f.SetupContainerLogs(stdout, "")
	f.SetupContainerRemove()
}

// SetupContainerLogs returns stdout and stderr as a multiplexed stream.
func (f *FakeAPIClient) SetupContainerLogs(stdout, stderr string) {
	f.ContainerLogsFn = func(context.Context, string, client.ContainerLogsOptions) (client.ContainerLogsResult, error) {
		var buf bytes.Buffer
		if stdout != "" {
			_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
		}
		if stderr != "" {
			_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(stderr))
		}
		return io.NopCloser(&buf), nil
	}
}

// SetupContainerRawLogs returns logs as a raw TTY stream.
func (f *FakeAPIClient) SetupContainerRawLogs(logs string) {
	f.ContainerLogsFn = func(context.Context, string, client.ContainerLogsOptions) (client.ContainerLogsResult, error) {
		return io.NopCloser(strings.NewReader(logs)), nil
	}
}

// SetupContainerRemove makes every container removal succeed.
func (f *FakeAPIClient) SetupContainerRemove() {
	f.ContainerRemoveFn = func(context.Context, string, client.ContainerRemoveOptions) (client.ContainerRemoveResult, error) {
		return client.ContainerRemoveResult{}, nil
	}
}

// ContainerWaitExit returns a wait result carrying code.
func ContainerWaitExit(code int64) client.ContainerWaitResult {
	resultCh := make(chan container.WaitResponse, 1)
	errCh := make(chan error, 1)
	resultCh <- container.WaitResponse{StatusCode: code}
	return client.ContainerWaitResult{
		Result: resultCh,
		Error:  errCh,
	}
}

// ContainerWaitError returns a wait result failing with err.
func ContainerWaitError(err error) client.ContainerWaitResult {
	resultCh := make(chan container.WaitResponse)
	errCh := make(chan error, 1)
	errCh <- err
	return client.ContainerWaitResult{
		Result: resultCh,
		Error:  errCh,
	}
}

// errNotFound satisfies errdefs.IsNotFound.
type errNotFound struct {
	msg string
}

func (e errNotFound) Error() string { return e.msg }
func (e errNotFound) NotFound()     {}

// NotFoundError returns an error the engine client classifies as not found.
func NotFoundError(msg string) error {
	return errNotFound{msg: msg}
}
