// Package docker implements the engine contract on the Docker Engine API.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/go-units"
	"github.com/moby/moby/client"

	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
)

// ErrNotFound is wrapped by errors for images and containers the engine
// does not know.
var ErrNotFound = errors.New("not found")

// Client talks to a Docker-compatible engine.
type Client struct {
	api APIClient
	log logger.Logger
}

var _ engine.Engine = (*Client)(nil)

// NewClient connects to the engine configured by the DOCKER_* environment.
func NewClient(log logger.Logger) (*Client, error) {
	c, err := client.New(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return NewFromAPI(mobyAPI{Client: c}, log), nil
}

// NewFromAPI wraps an existing API client.
func NewFromAPI(api APIClient, log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{api: api, log: logger.With(log, "component", "docker")}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.api.Close()
}

// wrapNotFound tags engine not-found errors with ErrNotFound.
func wrapNotFound(err error, what string) error {
	if cerrdefs.IsNotFound(err) {
		return fmt.Errorf("%s: %w: %w", what, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (c *Client) logInsecure(ref string, insecure bool) {
	if insecure {
		// The daemon's insecure-registries setting decides plain HTTP access.
		c.log.Debug().Str("ref", ref).Msg("insecure registry requested")
	}
}

func (c *Client) PullImage(ctx context.Context, ref string, insecure bool) (string, error) {
	c.logInsecure(ref, insecure)
	c.log.Debug().Str("ref", ref).Msg("pulling image")

	body, err := c.api.ImagePull(ctx, ref, client.ImagePullOptions{})
	if err != nil {
		return "", wrapNotFound(err, "pulling "+ref)
	}

	var last string
	for ev, err := range decodeStream(body, c.log) {
		if err != nil {
			return "", fmt.Errorf("pulling %s: %w", ref, err)
		}
		if ev.Error != "" {
			return "", fmt.Errorf("pulling %s: %s", ref, ev.Error)
		}
		if ev.Status != "" {
			last = ev.Status
		}
	}
	return last, nil
}

func (c *Client) BuildImage(ctx context.Context, opts engine.BuildOptions) (engine.LogStream, error) {
	dockerfile := opts.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}

	// The context is streamed so large directories are never held in memory.
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeBuildContext(opts.ContextDir, dockerfile, pw))
	}()

	c.log.Debug().
		Str("context", opts.ContextDir).
		Str("dockerfile", dockerfile).
		Str("tag", opts.Tag).
		Bool("no_cache", opts.NoCache).
		Msg("building image")

	resp, err := c.api.ImageBuild(ctx, pr, client.ImageBuildOptions{
		Tags:       []string{opts.Tag},
		Dockerfile: dockerfile,
		Remove:     true,
		NoCache:    opts.NoCache,
		PullParent: opts.Pull,
		Labels:     opts.Labels,
	})
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, fmt.Errorf("building image: %w", err)
	}
	return decodeStream(resp.Body, c.log), nil
}

func (c *Client) TagImage(ctx context.Context, source, target string, force bool) error {
	// The API replaces an existing tag unconditionally; force is implied.
	c.log.Debug().Str("source", source).Str("target", target).Bool("force", force).Msg("tagging image")
	if _, err := c.api.ImageTag(ctx, client.ImageTagOptions{Source: source, Target: target}); err != nil {
		return wrapNotFound(err, "tagging "+source)
	}
	return nil
}

func (c *Client) PushImage(ctx context.Context, ref string, insecure bool) (*engine.CommandResult, error) {
	c.logInsecure(ref, insecure)
	c.log.Debug().Str("ref", ref).Msg("pushing image")

	// An empty auth header is rejected by the API; this encodes as {}.
	body, err := c.api.ImagePush(ctx, ref, client.ImagePushOptions{RegistryAuth: "e30="})
	if err != nil {
		return nil, wrapNotFound(err, "pushing "+ref)
	}
	return engine.WaitForCommand(decodeStream(body, c.log)), nil
}

func (c *Client) RemoveImage(ctx context.Context, ref string, force bool) error {
	c.log.Debug().Str("ref", ref).Bool("force", force).Msg("removing image")
	if _, err := c.api.ImageRemove(ctx, ref, client.ImageRemoveOptions{Force: force}); err != nil {
		return wrapNotFound(err, "removing "+ref)
	}
	return nil
}

func (c *Client) InspectImage(ctx context.Context, ref string) (*engine.ImageInspect, error) {
	res, err := c.api.ImageInspect(ctx, ref)
	if err != nil {
		return nil, wrapNotFound(err, "inspecting "+ref)
	}

	info := &engine.ImageInspect{
		ID:           res.ID,
		RepoTags:     res.RepoTags,
		Architecture: res.Architecture,
		Os:           res.Os,
		Size:         res.Size,
		Created:      res.Created,
	}
	if res.Config != nil {
		info.Labels = res.Config.Labels
		info.Env = res.Config.Env
		info.Entrypoint = res.Config.Entrypoint
		info.Cmd = res.Config.Cmd
	}
	c.log.Debug().Str("ref", ref).Str("id", info.ID).Str("size", units.HumanSize(float64(info.Size))).Msg("inspected image")
	return info, nil
}

func (c *Client) ListImages(ctx context.Context, ref string) ([]engine.ImageSummary, error) {
	res, err := c.api.ImageList(ctx, client.ImageListOptions{
		Filters: client.Filters{}.Add("reference", ref),
	})
	if err != nil {
		return nil, fmt.Errorf("listing images for %s: %w", ref, err)
	}

	out := make([]engine.ImageSummary, 0, len(res.Items))
	for _, img := range res.Items {
		out = append(out, engine.ImageSummary{
			ID:       img.ID,
			RepoTags: img.RepoTags,
			Size:     img.Size,
			Created:  time.Unix(img.Created, 0).UTC(),
		})
	}
	c.log.Debug().Str("ref", ref).Int("matches", len(out)).Msg("listed images")
	return out, nil
}
