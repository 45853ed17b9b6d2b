package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/reactor/internal/cmdutil"
	"github.com/schmitthub/reactor/internal/config"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/engine/enginetest"
	"github.com/schmitthub/reactor/internal/iostreams/iostreamstest"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
)

func TestNewCmdBuild(t *testing.T) {
	f := &cmdutil.Factory{}
	cmd := NewCmdBuild(f, nil)

	require.Equal(t, "build", cmd.Use)
	require.NotEmpty(t, cmd.Short)
	require.NotEmpty(t, cmd.Long)
	require.NotEmpty(t, cmd.Example)
	require.NotNil(t, cmd.RunE)
}

func TestCmd_Flags(t *testing.T) {
	tests := []struct {
		flag     string
		defValue string
	}{
		{"method", ""},
		{"json", ""},
		{"build-image", ""},
		{"load-plugin", "[]"},
		{"image", ""},
		{"git-url", ""},
		{"git-path", ""},
		{"git-commit", ""},
		{"source-dir", ""},
		{"source-registry", ""},
		{"source-registry-insecure", "false"},
		{"target-registries", "[]"},
		{"target-registries-insecure", "false"},
		{"fail-fast", "false"},
	}

	cmd := NewCmdBuild(&cmdutil.Factory{}, nil)
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.flag)
			require.NotNil(t, flag, "flag --%s should exist", tt.flag)
			require.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestCmd_ParsesFlags(t *testing.T) {
	var got *BuildOptions
	cmd := NewCmdBuild(&cmdutil.Factory{}, func(_ context.Context, opts *BuildOptions) error {
		got = opts
		return nil
	})
	cmd.SetArgs([]string{
		"--method", "here",
		"--image", "app:1",
		"--git-url", "https://example.com/app.git",
		"--target-registries", "r1,r2",
		"--target-registries", "r3",
		"--load-plugin", "a.so",
		"--fail-fast",
	})
	require.NoError(t, cmd.Execute())

	require.NotNil(t, got)
	assert.Equal(t, "here", got.Method)
	assert.Equal(t, "app:1", got.Request.Image)
	assert.Equal(t, []string{"r1", "r2", "r3"}, got.Request.TargetRegistries)
	assert.Equal(t, []string{"a.so"}, got.LoadPlugins)
	assert.True(t, got.Request.FailFast)
	assert.True(t, got.Changed("image"))
	assert.False(t, got.Changed("git-commit"))
}

func TestRequest_JSONWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.json")
	doc := `{"image": "app:1", "git_url": "https://example.com/app.git", "git_commit": "v1"}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	opts := &BuildOptions{
		JSON:    path,
		Request: config.BuildRequest{Image: "ignored", GitCommit: "v2"},
		Changed: func(name string) bool { return name == "git-commit" },
	}
	req, err := request(opts)
	require.NoError(t, err)
	assert.Equal(t, "app:1", req.Image)
	assert.Equal(t, "v2", req.GitCommit)
}

func TestRequest_Invalid(t *testing.T) {
	_, err := request(&BuildOptions{Request: config.BuildRequest{GitURL: "u"}})
	var flagErr *cmdutil.FlagError
	require.True(t, errors.As(err, &flagErr))
	assert.ErrorIs(t, err, config.ErrInvalidRequest)
}

type fixture struct {
	tio  *iostreamstest.TestIOStreams
	eng  *enginetest.FakeEngine
	opts *BuildOptions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM fedora\n"), 0o644))

	tio := iostreamstest.New()
	eng := enginetest.New()
	return &fixture{
		tio: tio,
		eng: eng,
		opts: &BuildOptions{
			IOStreams:      tio.IOStreams,
			Logger:         logger.Nop,
			Settings:       func() (*config.Settings, error) { return &config.Settings{BuildImage: "reactor-build"}, nil },
			Engine:         func() (engine.Engine, error) { return eng, nil },
			PluginRegistry: func() (*plugin.Registry, error) { return plugin.NewRegistry(), nil },
			PluginLoader:   func() plugin.Loader { return plugin.SharedObjectLoader{} },
			Method:         "here",
			Request:        config.BuildRequest{Image: "app:1", SourceDir: dir},
		},
	}
}

func TestBuildRun_Here(t *testing.T) {
	fx := newFixture(t)
	fx.eng.SetupBuild("Successfully built 0123")
	fx.eng.SetupImageID("sha256:0123")

	require.NoError(t, buildRun(context.Background(), fx.opts))
	assert.Contains(t, fx.tio.ErrBuf.String(), "Built app:1 (sha256:0123)")
}

func TestBuildRun_HereFailure(t *testing.T) {
	fx := newFixture(t)
	fx.eng.SetupBuildFailure("boom")

	err := buildRun(context.Background(), fx.opts)
	var exitErr *cmdutil.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, fx.tio.ErrBuf.String(), "failed in stage building")
}

func TestBuildRun_HostDocker(t *testing.T) {
	fx := newFixture(t)
	fx.opts.Method = "hostdocker"
	fx.opts.LoadPlugins = []string{"a.so"}

	var image string
	fx.eng.RunContainerFn = func(_ context.Context, ro engine.RunOptions) (string, error) {
		image = ro.Image
		share, _, _ := strings.Cut(ro.Binds[0], ":")
		return "c1", config.WriteResults(config.ResultsJSONPath(share), &config.Results{ImageID: "sha256:9"})
	}
	fx.eng.WaitContainerFn = func(context.Context, string) (int64, error) { return 0, nil }
	fx.eng.ContainerLogsFn = func(context.Context, string, bool) ([]string, error) { return nil, nil }
	fx.eng.RemoveContainerFn = func(context.Context, string, bool) error { return nil }

	require.NoError(t, buildRun(context.Background(), fx.opts))
	assert.Equal(t, "reactor-build", image, "falls back to the configured build image")
	assert.Contains(t, fx.tio.ErrBuf.String(), "--load-plugin is ignored")
	assert.Contains(t, fx.tio.ErrBuf.String(), "Built app:1 (sha256:9)")
}

func TestBuildRun_MethodErrors(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		wantErr string
	}{
		{name: "missing", method: "", wantErr: "--method is required"},
		{name: "unknown", method: "ssh", wantErr: "unknown build method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.opts.Method = tt.method

			err := buildRun(context.Background(), fx.opts)
			var flagErr *cmdutil.FlagError
			require.True(t, errors.As(err, &flagErr))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, fx.eng.Calls())
		})
	}
}
