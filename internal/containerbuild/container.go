package containerbuild

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/schmitthub/reactor/internal/config"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
)

// RunInContainer runs req inside a build container and returns the results
// the container wrote to the share directory.
func RunInContainer(ctx context.Context, method Method, req *config.BuildRequest, opts Options) (*config.Results, error) {
	if method != HostDocker && method != Privileged {
		return nil, fmt.Errorf("%w %q for a build container", ErrUnknownMethod, method)
	}
	if opts.BuildImage == "" {
		return nil, errors.New("no build image configured")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := logger.With(opts.log(), "method", string(method))

	shareDir, err := os.MkdirTemp(opts.TmpDir, "reactor-share-")
	if err != nil {
		return nil, fmt.Errorf("creating share directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(shareDir); err != nil {
			log.Warn().Err(err).Str("dir", shareDir).Msg("failed to remove share directory")
		}
	}()

	if err := config.WriteRequest(config.BuildJSONPath(shareDir), req); err != nil {
		return nil, err
	}

	runOpts := RunOptions(method, shareDir, opts)
	log.Info().Str("image", runOpts.Image).Msg("starting build container")
	id, err := opts.Engine.RunContainer(ctx, runOpts)
	if err != nil {
		return nil, fmt.Errorf("starting build container: %w", err)
	}
	defer func() {
		if err := opts.Engine.RemoveContainer(context.WithoutCancel(ctx), id, true); err != nil {
			log.Warn().Err(err).Str("container", id).Msg("failed to remove build container")
		}
	}()

	code, err := opts.Engine.WaitContainer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("waiting for build container: %w", err)
	}

	lines, err := opts.Engine.ContainerLogs(ctx, id, false)
	if err != nil {
		log.Warn().Err(err).Str("container", id).Msg("failed to read build container logs")
	}
	for _, line := range lines {
		log.Info().Str("container", id).Msg(line)
	}
	log.Debug().Int64("exit_code", code).Msg("build container exited")

	results, err := config.ReadResults(config.ResultsJSONPath(shareDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w (exit code %d)", ErrNoResults, code)
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// RunOptions returns the container configuration for a build container
// sharing shareDir.
func RunOptions(method Method, shareDir string, opts Options) engine.RunOptions {
	cmd := []string{"reactor", "inside-build", "--input", string(config.InputPath)}
	if opts.Verbose {
		cmd = append(cmd, "--verbose")
	}

	ro := engine.RunOptions{
		Image:   opts.BuildImage,
		Command: cmd,
		Binds:   []string{shareDir + ":" + config.ShareDir},
	}
	switch method {
	case HostDocker:
		ro.Binds = append(ro.Binds, DockerSocket+":"+DockerSocket)
	case Privileged:
		ro.Privileged = true
	}
	return ro
}
