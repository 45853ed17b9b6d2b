// Package builder orchestrates a single image build: base image pull, the
// build itself and pushes of the result, each gated by the build phase.
package builder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/schmitthub/reactor/internal/dockerfile"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/imageref"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/source"
)

// Options configures New.
type Options struct {
	Engine engine.Engine
	Source source.Source
	Image  string // reference the built image is tagged with
	Logger logger.Logger

	NoCache bool
	Labels  map[string]string
}

// BuildResult is what Build produced. ImageID is empty unless the build
// succeeded.
type BuildResult struct {
	Command *engine.CommandResult
	ImageID string
	// ImageSize is the size of the built image in bytes, as the engine
	// reports it.
	ImageSize int64
}

// Failed reports whether the build did not succeed.
func (r *BuildResult) Failed() bool {
	return r == nil || r.Command.Failed()
}

// Logs returns the build output.
func (r *BuildResult) Logs() []string {
	if r == nil || r.Command == nil {
		return nil
	}
	return r.Command.Logs
}

// Builder drives one image through its build lifecycle.
type Builder struct {
	engine  engine.Engine
	log     logger.Logger
	opts    Options
	phase   PhaseState
	loc     *source.Location
	image   imageref.Reference
	base    imageref.Reference
	imageID string
}

// New resolves the Dockerfile through the source and parses the image and
// base image references. Nothing is pulled or built.
func New(ctx context.Context, opts Options) (*Builder, error) {
	if opts.Engine == nil {
		return nil, errors.New("builder requires an engine")
	}
	if opts.Source == nil {
		return nil, errors.New("builder requires a source")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	image, err := imageref.Parse(opts.Image)
	if err != nil {
		return nil, fmt.Errorf("parsing image name: %w", err)
	}

	loc, err := opts.Source.Dockerfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("locating dockerfile: %w", err)
	}

	df, err := dockerfile.Parse(loc.Path)
	if err != nil {
		return nil, err
	}
	baseName, err := df.BaseImage()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc.Path, err)
	}
	base, err := imageref.Parse(baseName)
	if err != nil {
		return nil, fmt.Errorf("parsing base image: %w", err)
	}

	log.Debug().
		Str("image", image.String()).
		Str("base_image", base.String()).
		Str("dockerfile", loc.Path).
		Msg("builder ready")

	return &Builder{
		engine: opts.Engine,
		log:    log,
		opts:   opts,
		loc:    loc,
		image:  image,
		base:   base,
	}, nil
}

// Image returns the reference the build is tagged with.
func (b *Builder) Image() imageref.Reference { return b.image }

// BaseImage returns the base image named by the Dockerfile.
func (b *Builder) BaseImage() imageref.Reference { return b.base }

// ImageID returns the built image id, or "" before a successful build.
func (b *Builder) ImageID() string { return b.imageID }

// Phase returns the current build phase.
func (b *Builder) Phase() Phase { return b.phase.Phase() }

// DockerfilePath returns the Dockerfile path. Plugins may edit the file
// before Build runs.
func (b *Builder) DockerfilePath() string { return b.loc.Path }

// ContextDir returns the build context directory.
func (b *Builder) ContextDir() string { return b.loc.Dir }

// PullBaseImage pulls the base image from sourceRegistry. When the
// Dockerfile names the base image without a registry, the pulled image is
// also tagged under that bare name so the build resolves it locally.
func (b *Builder) PullBaseImage(ctx context.Context, sourceRegistry string, insecure bool) (imageref.Reference, error) {
	if err := b.phase.AssertNotBuilt(); err != nil {
		return imageref.Reference{}, err
	}
	if b.base.HasRegistry() && b.base.Registry != sourceRegistry {
		return imageref.Reference{}, &RegistryMismatchError{
			Image:         b.base.String(),
			ImageRegistry: b.base.Registry,
			Provided:      sourceRegistry,
		}
	}

	remote := b.base.WithRegistry(sourceRegistry)
	b.log.Info().Str("image", remote.String()).Bool("insecure", insecure).Msg("pulling base image")

	status, err := b.engine.PullImage(ctx, remote.String(), insecure)
	if err != nil {
		return imageref.Reference{}, fmt.Errorf("pulling base image %s: %w", remote, err)
	}
	b.log.Debug().Str("status", status).Msg("base image pulled")

	if b.base.HasRegistry() {
		return remote, nil
	}

	if err := b.engine.TagImage(ctx, remote.String(), b.base.String(), true); err != nil {
		return imageref.Reference{}, fmt.Errorf("tagging %s as %s: %w", remote, b.base, err)
	}
	return b.base, nil
}

// Build builds the image and drains the build output. The builder is Built
// afterwards whether or not the build succeeded; a failed build is reported
// through the result, not the error.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	if err := b.phase.AssertNotBuilt(); err != nil {
		return nil, err
	}

	b.log.Info().Str("image", b.image.String()).Str("context", b.loc.Dir).Msg("building image")

	var cmd *engine.CommandResult
	stream, err := b.engine.BuildImage(ctx, engine.BuildOptions{
		ContextDir: b.loc.Dir,
		Dockerfile: filepath.Base(b.loc.Path),
		Tag:        b.image.String(),
		NoCache:    b.opts.NoCache,
		Labels:     b.opts.Labels,
	})
	if err != nil {
		cmd = engine.FailedResult(fmt.Errorf("starting build: %w", err))
	} else {
		cmd = engine.WaitForCommand(stream)
	}

	if err := b.phase.MarkBuilt(); err != nil {
		return nil, err
	}

	result := &BuildResult{Command: cmd}
	if cmd.Failed() {
		b.log.Error().Str("image", b.image.String()).Str("error", cmd.Error).Msg("build failed")
		return result, nil
	}

	info, err := b.BuiltImageInfo(ctx)
	if err != nil {
		return result, fmt.Errorf("resolving built image: %w", err)
	}
	b.imageID = info.ID
	result.ImageID = info.ID
	result.ImageSize = info.Size

	b.log.Info().Str("image", b.image.String()).Str("id", info.ID).Msg("build succeeded")
	return result, nil
}

// PushBuiltImage tags the built image for targetRegistry, pushes it and
// removes the registry-qualified local tag again. An image whose name
// already carries targetRegistry is pushed as is and keeps its tag. An
// empty registry is a no-op and returns a nil result.
func (b *Builder) PushBuiltImage(ctx context.Context, targetRegistry string, insecure bool) (*engine.CommandResult, error) {
	if err := b.phase.AssertBuilt(); err != nil {
		return nil, err
	}
	if targetRegistry == "" {
		b.log.Info().Msg("no target registry, skipping push")
		return nil, nil
	}
	if b.image.HasRegistry() && b.image.Registry != targetRegistry {
		return nil, &RegistryMismatchError{
			Image:         b.image.String(),
			ImageRegistry: b.image.Registry,
			Provided:      targetRegistry,
		}
	}

	target := b.image.WithRegistry(targetRegistry)
	// An image already named for targetRegistry is pushed under its own
	// tag, which must survive the push.
	qualified := target.String() != b.image.String()
	if qualified {
		if err := b.engine.TagImage(ctx, b.image.String(), target.String(), true); err != nil {
			return nil, fmt.Errorf("tagging %s as %s: %w", b.image, target, err)
		}
	}

	b.log.Info().Str("image", target.String()).Bool("insecure", insecure).Msg("pushing image")
	result, pushErr := b.engine.PushImage(ctx, target.String(), insecure)

	// The qualified tag is removed even when the push failed.
	if qualified {
		if err := b.engine.RemoveImage(ctx, target.String(), false); err != nil {
			b.log.Warn().Err(err).Str("image", target.String()).Msg("failed to remove pushed tag")
		}
	}

	if pushErr != nil {
		return nil, fmt.Errorf("pushing %s: %w", target, pushErr)
	}
	if result != nil && result.Failed() {
		return result, &PushError{Image: target.String(), Result: result}
	}
	return result, nil
}

// InspectBaseImage returns metadata of the local base image.
func (b *Builder) InspectBaseImage(ctx context.Context) (*engine.ImageInspect, error) {
	info, err := b.BaseImageInfo(ctx)
	if err != nil {
		return nil, err
	}
	return b.engine.InspectImage(ctx, info.ID)
}

// InspectBuiltImage returns metadata of the built image.
func (b *Builder) InspectBuiltImage(ctx context.Context) (*engine.ImageInspect, error) {
	if err := b.phase.AssertBuilt(); err != nil {
		return nil, err
	}
	id := b.imageID
	if id == "" {
		info, err := b.BuiltImageInfo(ctx)
		if err != nil {
			return nil, err
		}
		id = info.ID
	}
	return b.engine.InspectImage(ctx, id)
}

// BaseImageInfo returns the single local image matching the base image.
func (b *Builder) BaseImageInfo(ctx context.Context) (*engine.ImageSummary, error) {
	return b.imageInfo(ctx, b.base)
}

// BuiltImageInfo returns the single local image matching the built image.
func (b *Builder) BuiltImageInfo(ctx context.Context) (*engine.ImageSummary, error) {
	if err := b.phase.AssertBuilt(); err != nil {
		return nil, err
	}
	return b.imageInfo(ctx, b.image)
}

// imageInfo requires ref to match exactly one local image.
func (b *Builder) imageInfo(ctx context.Context, ref imageref.Reference) (*engine.ImageSummary, error) {
	images, err := b.engine.ListImages(ctx, ref.String())
	if err != nil {
		return nil, fmt.Errorf("listing images for %s: %w", ref, err)
	}
	if len(images) != 1 {
		return nil, &LookupError{Image: ref.String(), Count: len(images)}
	}
	return &images[0], nil
}
