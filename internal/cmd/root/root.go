package root

import (
	"github.com/spf13/cobra"

	buildcmd "github.com/schmitthub/reactor/internal/cmd/build"
	"github.com/schmitthub/reactor/internal/cmd/buildimage"
	"github.com/schmitthub/reactor/internal/cmd/insidebuild"
	versioncmd "github.com/schmitthub/reactor/internal/cmd/version"
	"github.com/schmitthub/reactor/internal/cmdutil"
)

// NewCmdRoot creates the root command for the reactor CLI.
func NewCmdRoot(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reactor",
		Short: "Build container images with pre and post build plugins",
		Long: `Reactor builds a container image from a git repository or a local
directory, runs plugins before and after the build, and pushes the result
to one or more registries.

Quick start:
  reactor build --method here --image app --git-url https://example.com/app.git
  reactor create-build-image ./images/build reactor-build
  reactor build --method hostdocker --build-image reactor-build --json build.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			f.Logger().Debug().
				Str("version", f.Version).
				Bool("verbose", f.Verbose).
				Msg("reactor starting")
			return nil
		},
		Version: f.Version,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&f.Quiet, "quiet", "q", false, "Only log warnings and errors")
	cmd.PersistentFlags().BoolVarP(&f.Verbose, "verbose", "v", false, "Enable debug logging and full error output")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return cmdutil.FlagErrorWrap(err)
	})

	// Version flag and template
	cmd.Flags().BoolP("version", "V", false, "Print the version of reactor")
	cmd.SetVersionTemplate(versioncmd.Format(f.Version, f.Commit))

	cmd.AddCommand(buildcmd.NewCmdBuild(f, nil))
	cmd.AddCommand(buildimage.NewCmdCreateBuildImage(f, nil))
	cmd.AddCommand(insidebuild.NewCmdInsideBuild(f, nil))
	cmd.AddCommand(versioncmd.NewCmdVersion(f, f.Version, f.Commit))

	return cmd
}
