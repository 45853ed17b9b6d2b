// Package buildimage provides the create-build-image command.
package buildimage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/schmitthub/reactor/internal/cmdutil"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/iostreams"
	"github.com/schmitthub/reactor/internal/logger"
)

// CreateOptions contains the options for the create-build-image command.
type CreateOptions struct {
	IOStreams *iostreams.IOStreams
	Logger    func() logger.Logger
	Engine    func() (engine.Engine, error)

	DockerfileDir string
	Image         string
	UseCache      bool
}

// NewCmdCreateBuildImage creates the create-build-image command.
func NewCmdCreateBuildImage(f *cmdutil.Factory, runF func(context.Context, *CreateOptions) error) *cobra.Command {
	opts := &CreateOptions{
		IOStreams: f.IOStreams,
		Logger:    f.Logger,
		Engine:    f.Engine,
	}

	cmd := &cobra.Command{
		Use:   "create-build-image DOCKERFILE_DIR IMAGE",
		Short: "Build the image used by the hostdocker and privileged methods",
		Long: `Builds a build container image from the Dockerfile in DOCKERFILE_DIR and
tags it IMAGE. The image must provide the reactor binary on its PATH; for the
privileged method it must also start its own container engine.`,
		Example: `  # Build the build image without cache
  reactor create-build-image ./images/build reactor-build

  # Reuse cached layers
  reactor create-build-image ./images/build reactor-build --use-cache`,
		Args: cmdutil.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DockerfileDir = args[0]
			opts.Image = args[1]
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return createRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.UseCache, "use-cache", false, "Reuse cached layers")

	return cmd
}

func createRun(ctx context.Context, opts *CreateOptions) error {
	ios := opts.IOStreams
	log := opts.Logger()

	dir, err := filepath.Abs(opts.DockerfileDir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", opts.DockerfileDir, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Dockerfile")); err != nil {
		return cmdutil.FlagErrorf("no Dockerfile in %s", opts.DockerfileDir)
	}

	eng, err := opts.Engine()
	if err != nil {
		return fmt.Errorf("connecting to the container engine: %w", err)
	}

	log.Info().Str("dir", dir).Str("image", opts.Image).Bool("use_cache", opts.UseCache).Msg("building build image")
	stream, err := eng.BuildImage(ctx, engine.BuildOptions{
		ContextDir: dir,
		Dockerfile: "Dockerfile",
		Tag:        opts.Image,
		NoCache:    !opts.UseCache,
	})
	if err != nil {
		return fmt.Errorf("building %s: %w", opts.Image, err)
	}

	result := engine.WaitForCommand(stream)
	for _, line := range result.Logs {
		log.Debug().Msg(line)
	}
	if result.Failed() {
		ios.PrintFailure("Build failed: %s", result.Error)
		return &cmdutil.ExitError{Code: 1}
	}

	ios.PrintSuccess("Built %s", opts.Image)
	return nil
}
