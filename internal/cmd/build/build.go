// Package build provides the build command.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/schmitthub/reactor/internal/cmdutil"
	"github.com/schmitthub/reactor/internal/config"
	"github.com/schmitthub/reactor/internal/containerbuild"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/iostreams"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
)

// BuildOptions contains the options for the build command.
type BuildOptions struct {
	IOStreams      *iostreams.IOStreams
	Logger         func() logger.Logger
	Settings       func() (*config.Settings, error)
	Engine         func() (engine.Engine, error)
	PluginRegistry func() (*plugin.Registry, error)
	PluginLoader   func() plugin.Loader
	Verbose        func() bool

	Method      string
	JSON        string // --json, path to a request document
	BuildImage  string
	LoadPlugins []string

	// Request fields from flags. Changed records which were set explicitly
	// so they can override a --json document.
	Request config.BuildRequest
	Changed func(name string) bool
}

// NewCmdBuild creates the build command.
func NewCmdBuild(f *cmdutil.Factory, runF func(context.Context, *BuildOptions) error) *cobra.Command {
	opts := &BuildOptions{
		IOStreams:      f.IOStreams,
		Logger:         f.Logger,
		Settings:       f.Settings,
		Engine:         f.Engine,
		PluginRegistry: f.PluginRegistry,
		PluginLoader:   f.PluginLoader,
		Verbose:        func() bool { return f.Verbose },
	}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an image from a git repository or a local directory",
		Long: `Builds a container image, runs the configured plugins and pushes the
result to the target registries.

The build is described either by flags or by a request document given
with --json. Flags set explicitly override the document.

Methods:
  here        run the build in this process
  hostdocker  run it in a build container using the host's engine socket
  privileged  run it in a privileged build container with its own engine`,
		Example: `  # Build a repository in process
  reactor build --method here --image app:1.0 --git-url https://example.com/app.git

  # Build from a request document in a build container
  reactor build --method hostdocker --json build.json --build-image reactor-build

  # Build a local checkout and push it
  reactor build --method here --image app --source-dir . --target-registries registry.example.com`,
		Args: cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Changed = cmd.Flags().Changed
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return buildRun(cmd.Context(), opts)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&opts.Method, "method", "", "Build method: "+strings.Join(containerbuild.Methods(), ", ")+" (required)")
	fl.StringVar(&opts.JSON, "json", "", "Path to a build request document (JSON or YAML)")
	fl.StringVar(&opts.BuildImage, "build-image", "", "Build container image for hostdocker and privileged methods")
	fl.StringSliceVar(&opts.LoadPlugins, "load-plugin", nil, "Load plugins from a Go plugin file (repeatable)")

	addRequestFlags(fl, &opts.Request)

	return cmd
}

func addRequestFlags(fl *pflag.FlagSet, req *config.BuildRequest) {
	fl.StringVar(&req.Image, "image", "", "Name of the built image (required)")
	fl.StringVar(&req.GitURL, "git-url", "", "URL of the git repository to build")
	fl.StringVar(&req.GitDockerfilePath, "git-path", "", "Path to the Dockerfile within the repository")
	fl.StringVar(&req.GitCommit, "git-commit", "", "Commit, branch or tag to check out (default master)")
	fl.StringVar(&req.SourceDir, "source-dir", "", "Build from a local directory instead of git")
	fl.StringVar(&req.ParentRegistry, "source-registry", "", "Registry to pull the base image from")
	fl.BoolVar(&req.ParentRegistryInsecure, "source-registry-insecure", false, "Allow plain HTTP access to the source registry")
	fl.StringSliceVar(&req.TargetRegistries, "target-registries", nil, "Registries to push the built image to")
	fl.BoolVar(&req.TargetRegistriesInsecure, "target-registries-insecure", false, "Allow plain HTTP access to the target registries")
	fl.BoolVar(&req.FailFast, "fail-fast", false, "Skip postbuild plugins when the build fails")
}

// flagFields maps request flags onto the document fields they override.
var flagFields = map[string]func(dst, src *config.BuildRequest){
	"image":                      func(d, s *config.BuildRequest) { d.Image = s.Image },
	"git-url":                    func(d, s *config.BuildRequest) { d.GitURL = s.GitURL },
	"git-path":                   func(d, s *config.BuildRequest) { d.GitDockerfilePath = s.GitDockerfilePath },
	"git-commit":                 func(d, s *config.BuildRequest) { d.GitCommit = s.GitCommit },
	"source-dir":                 func(d, s *config.BuildRequest) { d.SourceDir = s.SourceDir },
	"source-registry":            func(d, s *config.BuildRequest) { d.ParentRegistry = s.ParentRegistry },
	"source-registry-insecure":   func(d, s *config.BuildRequest) { d.ParentRegistryInsecure = s.ParentRegistryInsecure },
	"target-registries":          func(d, s *config.BuildRequest) { d.TargetRegistries = s.TargetRegistries },
	"target-registries-insecure": func(d, s *config.BuildRequest) { d.TargetRegistriesInsecure = s.TargetRegistriesInsecure },
	"fail-fast":                  func(d, s *config.BuildRequest) { d.FailFast = s.FailFast },
}

// request assembles the build request from --json and the flags.
func request(opts *BuildOptions) (*config.BuildRequest, error) {
	req := opts.Request
	if opts.JSON != "" {
		doc, err := config.LoadRequest(opts.JSON)
		if err != nil {
			return nil, err
		}
		for name, apply := range flagFields {
			if opts.Changed != nil && opts.Changed(name) {
				apply(doc, &opts.Request)
			}
		}
		req = *doc
	}

	if req.SourceDir != "" {
		abs, err := filepath.Abs(req.SourceDir)
		if err != nil {
			return nil, fmt.Errorf("resolving source directory: %w", err)
		}
		req.SourceDir = abs
	}
	if err := req.Validate(); err != nil {
		return nil, cmdutil.FlagErrorWrap(err)
	}
	return &req, nil
}

func buildRun(ctx context.Context, opts *BuildOptions) error {
	ios := opts.IOStreams
	log := opts.Logger()

	if opts.Method == "" {
		return cmdutil.FlagErrorf("--method is required")
	}
	method, err := containerbuild.ParseMethod(opts.Method)
	if err != nil {
		return cmdutil.FlagErrorWrap(err)
	}

	req, err := request(opts)
	if err != nil {
		return err
	}

	eng, err := opts.Engine()
	if err != nil {
		return fmt.Errorf("connecting to the container engine: %w", err)
	}

	runOpts := containerbuild.Options{
		Engine:  eng,
		Logger:  log,
		Verbose: opts.Verbose != nil && opts.Verbose(),
	}

	if method == containerbuild.Here {
		reg, err := opts.PluginRegistry()
		if err != nil {
			return err
		}
		if err := plugin.LoadAll(opts.PluginLoader(), reg, opts.LoadPlugins...); err != nil {
			return err
		}
		runOpts.Registry = reg
	} else {
		if len(opts.LoadPlugins) > 0 {
			ios.PrintWarning("--load-plugin is ignored by the %s method", method)
		}
		runOpts.BuildImage = opts.BuildImage
		if runOpts.BuildImage == "" {
			settings, err := opts.Settings()
			if err != nil {
				return err
			}
			runOpts.BuildImage = settings.BuildImage
		}
	}

	results, err := containerbuild.Run(ctx, method, req, runOpts)
	if err != nil {
		return err
	}
	return cmdutil.ReportResults(ios, req.Image, results)
}
