package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"

	"github.com/schmitthub/reactor/internal/engine"
)

// containerNamePrefix prefixes generated container names.
const containerNamePrefix = "reactor-"

// RunContainer creates and starts a container. Without a name a unique one
// is generated. The container is left for the caller to wait on and remove.
func (c *Client) RunContainer(ctx context.Context, opts engine.RunOptions) (string, error) {
	name := opts.Name
	if name == "" {
		name = containerNamePrefix + uuid.NewString()[:12]
	}

	cfg := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Command,
		Entrypoint: opts.Entrypoint,
		Env:        opts.Env,
	}
	hostCfg := &container.HostConfig{
		Binds:      opts.Binds,
		Privileged: opts.Privileged,
	}

	c.log.Debug().
		Str("name", name).
		Str("image", opts.Image).
		Strs("cmd", opts.Command).
		Bool("privileged", opts.Privileged).
		Msg("creating container")

	created, err := c.api.ContainerCreate(ctx, client.ContainerCreateOptions{
		Name:       name,
		Config:     cfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return "", wrapNotFound(err, "creating container from "+opts.Image)
	}

	if _, err := c.api.ContainerStart(ctx, created.ID, client.ContainerStartOptions{}); err != nil {
		if _, rmErr := c.api.ContainerRemove(ctx, created.ID, client.ContainerRemoveOptions{Force: true}); rmErr != nil {
			c.log.Warn().Err(rmErr).Str("id", created.ID).Msg("failed to remove container that did not start")
		}
		return "", fmt.Errorf("starting container %s: %w", name, err)
	}
	return created.ID, nil
}

// WaitContainer blocks until the container stops and returns its exit code.
func (c *Client) WaitContainer(ctx context.Context, id string) (int64, error) {
	wait := c.api.ContainerWait(ctx, id, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	select {
	case res := <-wait.Result:
		if res.Error != nil && res.Error.Message != "" {
			return res.StatusCode, fmt.Errorf("waiting for container %s: %s", id, res.Error.Message)
		}
		return res.StatusCode, nil
	case err := <-wait.Error:
		return -1, wrapNotFound(err, "waiting for container "+id)
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// ContainerLogs returns stdout and stderr, one entry per line. Multiplexed
// streams are demultiplexed; stderr lines follow stdout lines.
func (c *Client) ContainerLogs(ctx context.Context, id string, follow bool) ([]string, error) {
	rc, err := c.api.ContainerLogs(ctx, id, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
	})
	if err != nil {
		return nil, wrapNotFound(err, "reading logs of container "+id)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading logs of container %s: %w", id, err)
	}

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, bytes.NewReader(raw)); err != nil {
		// Containers with a TTY produce a raw stream.
		stdout.Reset()
		stderr.Reset()
		stdout.Write(raw)
	}
	return append(splitLines(stdout.String()), splitLines(stderr.String())...), nil
}

// RemoveContainer removes a container.
func (c *Client) RemoveContainer(ctx context.Context, id string, force bool) error {
	c.log.Debug().Str("id", id).Bool("force", force).Msg("removing container")
	if _, err := c.api.ContainerRemove(ctx, id, client.ContainerRemoveOptions{Force: force}); err != nil {
		return wrapNotFound(err, "removing container "+id)
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}
