// Package insidebuild provides the inside-build command, the entry point of
// a build container.
package insidebuild

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schmitthub/reactor/internal/cmdutil"
	"github.com/schmitthub/reactor/internal/config"
	"github.com/schmitthub/reactor/internal/containerbuild"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/iostreams"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
)

// InsideBuildOptions contains the options for the inside-build command.
type InsideBuildOptions struct {
	IOStreams      *iostreams.IOStreams
	Logger         func() logger.Logger
	Engine         func() (engine.Engine, error)
	PluginRegistry func() (*plugin.Registry, error)

	Input         string
	InputArgs     []string
	Substitutions []string
	ResultsPath   string
}

// NewCmdInsideBuild creates the inside-build command.
func NewCmdInsideBuild(f *cmdutil.Factory, runF func(context.Context, *InsideBuildOptions) error) *cobra.Command {
	opts := &InsideBuildOptions{
		IOStreams:      f.IOStreams,
		Logger:         f.Logger,
		Engine:         f.Engine,
		PluginRegistry: f.PluginRegistry,
	}

	cmd := &cobra.Command{
		Use:   "inside-build",
		Short: "Run a build described by a request document",
		Long: `Reads a build request, runs the build in this process and writes the
results document. This is what build containers run; by default the request
is read from ` + config.BuildJSONPath(config.ShareDir) + ` and the results are written to
` + config.ResultsJSONPath(config.ShareDir) + `.

Inputs:
  path  read a file: --input-arg path=FILE
  env   read the document from an environment variable: --input-arg env_name=VAR
        (default ` + config.BuildJSONEnv + `)`,
		Example: `  # Build from the shared request document
  reactor inside-build

  # Read the request from an environment variable and change the image
  reactor inside-build --input env --substitute image=app:2

  # Change a plugin argument
  reactor inside-build --substitute prebuild_plugins.add_yum_repo_by_url.repourls=http://example.com/a.repo`,
		Args: cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return insideBuildRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", string(config.InputPath), "Input to read the request from (path, env)")
	cmd.Flags().StringArrayVar(&opts.InputArgs, "input-arg", nil, "Argument for the input (format: KEY=VALUE)")
	cmd.Flags().StringArrayVar(&opts.Substitutions, "substitute", nil, "Substitute a value in the request (format: KEY=VALUE)")
	cmd.Flags().StringVar(&opts.ResultsPath, "results", config.ResultsJSONPath(config.ShareDir), "Path of the results document")
	_ = cmd.Flags().MarkHidden("results")

	return cmd
}

func insideBuildRun(ctx context.Context, opts *InsideBuildOptions) error {
	log := opts.Logger()

	inputArgs, err := config.ParseKeyValues(opts.InputArgs)
	if err != nil {
		return cmdutil.FlagErrorWrap(err)
	}
	req, err := config.ReadInput(config.Input(opts.Input), inputArgs)
	if errors.Is(err, config.ErrUnknownInput) {
		return cmdutil.FlagErrorWrap(err)
	}
	if err != nil {
		return err
	}
	if err := req.Substitute(opts.Substitutions); err != nil {
		return cmdutil.FlagErrorWrap(err)
	}

	eng, err := opts.Engine()
	if err != nil {
		return fmt.Errorf("connecting to the container engine: %w", err)
	}
	reg, err := opts.PluginRegistry()
	if err != nil {
		return err
	}

	results, err := containerbuild.RunHere(ctx, req, containerbuild.Options{
		Engine:   eng,
		Registry: reg,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	if err := config.WriteResults(opts.ResultsPath, results); err != nil {
		return err
	}
	log.Debug().Str("path", opts.ResultsPath).Msg("results written")

	return cmdutil.ReportResults(opts.IOStreams, req.Image, results)
}
