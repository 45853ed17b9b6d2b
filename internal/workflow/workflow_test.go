package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/reactor/internal/builder"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/engine/enginetest"
	"github.com/schmitthub/reactor/internal/logger/loggertest"
	"github.com/schmitthub/reactor/internal/plugin"
	"github.com/schmitthub/reactor/internal/source"
)

type harness struct {
	eng *enginetest.FakeEngine
	reg *plugin.Registry
	dir string
	ran []string
}

func newHarness(t *testing.T, from string) *harness {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM "+from+"\nRUN true\n"), 0o644))
	return &harness{eng: enginetest.New(), reg: plugin.NewRegistry(), dir: dir}
}

// add registers a plugin that records its execution and returns value or err.
func (h *harness) add(t *testing.T, hook plugin.Hook, key string, allowedToFail bool, value any, err error) {
	t.Helper()
	h.reg.MustRegister(plugin.Definition{
		Key:           key,
		Hook:          hook,
		AllowedToFail: allowedToFail,
		New: func(engine.Engine, *plugin.Context, plugin.Args) (plugin.Plugin, error) {
			return plugin.RunFunc(func(context.Context) (any, error) {
				h.ran = append(h.ran, key)
				return value, err
			}), nil
		},
	})
}

func (h *harness) options(image string) Options {
	return Options{
		Engine:   h.eng,
		Source:   &source.LocalSource{Dir: h.dir},
		Registry: h.reg,
		Logger:   loggertest.NewNop(),
		Image:    image,
	}
}

func TestRun_Success(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupBuild("Step 1/2 : FROM fedora", "Successfully built 0123")
	h.eng.SetupImageID("sha256:0123")
	h.eng.SetupTag()
	h.eng.SetupPush()
	h.eng.SetupRemoveImage()
	h.add(t, plugin.PreBuild, "pre", false, "pre-value", nil)
	h.add(t, plugin.PostBuild, "post", false, "post-value", nil)

	opts := h.options("myrepo")
	opts.TargetRegistries = []string{"registry.one.com", "registry.two.com"}
	opts.PrebuildPlugins = []plugin.Spec{{Name: "pre"}}
	opts.PostbuildPlugins = []plugin.Spec{{Name: "post"}}

	w := New(opts)
	out, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.True(t, out.BuildAttempted)
	assert.False(t, out.BuildFailed())
	assert.Equal(t, "sha256:0123", out.ImageID)
	assert.Equal(t, "myrepo:latest", out.Image)
	assert.Equal(t, "fedora:latest", out.BaseImage)
	assert.Contains(t, out.Logs(), "Successfully built 0123")
	assert.Equal(t, "pre-value", out.PrebuildResults.Value("pre"))
	assert.Equal(t, "post-value", out.PostbuildResults.Value("post"))
	assert.Equal(t, []string{"pre", "post"}, h.ran)
	assert.Equal(t, Done, w.State())

	require.Len(t, out.PushResults, 2)
	assert.Equal(t, "registry.one.com", out.PushResults[0].Registry)
	assert.Equal(t, []string{"pushed registry.two.com/myrepo:latest"}, out.PushResults[1].Result.Logs)
}

func TestRun_Twice(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupBuild()
	h.eng.SetupImageID("sha256:1")

	w := New(h.options("myrepo"))
	_, err := w.Run(context.Background())
	require.NoError(t, err)

	out, err := w.Run(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRun)
	assert.Nil(t, out)
}

// A failed build still runs postbuild plugins and reports its logs.
func TestRun_BuildFailureRunsPostbuild(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupBuildFailure("The command '/bin/sh -c true' returned a non-zero code: 1", "Step 1/2 : FROM fedora")
	h.add(t, plugin.PostBuild, "diagnose", false, "diagnosis", nil)

	opts := h.options("myrepo")
	opts.TargetRegistries = []string{"registry.example.com"}
	opts.PostbuildPlugins = []plugin.Spec{{Name: "diagnose"}}

	out, err := New(opts).Run(context.Background())
	require.ErrorIs(t, err, ErrBuildFailed)

	assert.False(t, out.Success)
	assert.True(t, out.BuildFailed())
	assert.Equal(t, Building, out.FailedStage)
	assert.Empty(t, out.ImageID)
	assert.Contains(t, out.Logs(), "Step 1/2 : FROM fedora")
	assert.Equal(t, "diagnosis", out.PostbuildResults.Value("diagnose"))
	assert.Empty(t, out.PushResults)
	assert.False(t, h.eng.Called("PushImage"), "a failed build is never pushed")
}

func TestRun_BuildFailureFailFast(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupBuildFailure("boom")
	h.add(t, plugin.PostBuild, "diagnose", false, nil, nil)

	opts := h.options("myrepo")
	opts.FailFast = true
	opts.PostbuildPlugins = []plugin.Spec{{Name: "diagnose"}}

	out, err := New(opts).Run(context.Background())
	require.ErrorIs(t, err, ErrBuildFailed)
	assert.Equal(t, Building, out.FailedStage)
	assert.Empty(t, h.ran)
	assert.Zero(t, out.PostbuildResults.Len())
}

func TestRun_PrebuildAbort(t *testing.T) {
	h := newHarness(t, "fedora")
	h.add(t, plugin.PreBuild, "a", false, nil, errors.New("a broke"))
	h.add(t, plugin.PreBuild, "b", false, "b", nil)
	h.add(t, plugin.PostBuild, "post", false, nil, nil)

	opts := h.options("myrepo")
	opts.PrebuildPlugins = []plugin.Spec{{Name: "a"}, {Name: "b"}}
	opts.PostbuildPlugins = []plugin.Spec{{Name: "post"}}

	out, err := New(opts).Run(context.Background())
	require.ErrorIs(t, err, plugin.ErrPluginExecution)

	assert.False(t, out.Success)
	assert.False(t, out.BuildAttempted, "failed before building")
	assert.Equal(t, PreBuild, out.FailedStage)
	assert.Nil(t, out.BuildResult)
	assert.Equal(t, []string{"a"}, h.ran)
	assert.Equal(t, []string{"a"}, out.PrebuildResults.Failures())
	assert.False(t, h.eng.Called("BuildImage"))
}

func TestRun_PrebuildFailSoft(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupBuild()
	h.eng.SetupImageID("sha256:1")
	h.add(t, plugin.PreBuild, "a", true, nil, errors.New("a broke"))
	h.add(t, plugin.PreBuild, "b", false, "b-value", nil)

	opts := h.options("myrepo")
	opts.PrebuildPlugins = []plugin.Spec{{Name: "a"}, {Name: "b"}}

	out, err := New(opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.PrebuildResults.Keys())
	assert.Equal(t, []string{"a"}, out.PrebuildResults.Failures())
	assert.Equal(t, "b-value", out.PrebuildResults.Value("b"))
}

func TestRun_PostbuildAbort(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupBuild()
	h.eng.SetupImageID("sha256:1")
	h.add(t, plugin.PostBuild, "a", false, nil, errors.New("a broke"))

	opts := h.options("myrepo")
	opts.PostbuildPlugins = []plugin.Spec{{Name: "a"}}

	out, err := New(opts).Run(context.Background())
	require.ErrorIs(t, err, plugin.ErrPluginExecution)
	assert.Equal(t, PostBuild, out.FailedStage)
	assert.True(t, out.BuildAttempted)
	assert.Equal(t, "sha256:1", out.ImageID, "the image was built even though the run failed")
}

func TestRun_BuildFailureAndPostbuildAbort(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupBuildFailure("boom")
	h.add(t, plugin.PostBuild, "a", false, nil, errors.New("a broke"))

	opts := h.options("myrepo")
	opts.PostbuildPlugins = []plugin.Spec{{Name: "a"}}

	out, err := New(opts).Run(context.Background())
	require.ErrorIs(t, err, ErrBuildFailed)
	require.ErrorIs(t, err, plugin.ErrPluginExecution)
	assert.Equal(t, Building, out.FailedStage)
}

func TestRun_ParentRegistry(t *testing.T) {
	h := newHarness(t, "myrepo")
	h.eng.SetupPull()
	h.eng.SetupTag()
	h.eng.SetupBuild()
	h.eng.SetupImageID("sha256:1")

	opts := h.options("myrepo")
	opts.ParentRegistry = "registry.example.com"

	_, err := New(opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"PullImage", "TagImage", "BuildImage", "ListImages"}, h.eng.Methods())
}

func TestRun_ParentRegistryMismatch(t *testing.T) {
	h := newHarness(t, "registry.one.com/fedora")

	opts := h.options("myrepo")
	opts.ParentRegistry = "registry.two.com"

	out, err := New(opts).Run(context.Background())
	require.ErrorIs(t, err, builder.ErrRegistryMismatch)
	assert.Equal(t, PreBuild, out.FailedStage)
	assert.False(t, out.BuildAttempted)
	assert.Empty(t, h.eng.Calls())
}

func TestRun_PushFailure(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupBuild()
	h.eng.SetupImageID("sha256:1")
	h.eng.SetupTag()
	h.eng.SetupRemoveImage()
	h.eng.PushImageFn = func(context.Context, string, bool) (*engine.CommandResult, error) {
		return &engine.CommandResult{Error: "unauthorized", ExitCode: 1}, nil
	}
	h.add(t, plugin.PostBuild, "post", false, nil, nil)

	opts := h.options("myrepo")
	opts.TargetRegistries = []string{"registry.example.com"}
	opts.PostbuildPlugins = []plugin.Spec{{Name: "post"}}

	out, err := New(opts).Run(context.Background())
	var pushErr *builder.PushError
	require.ErrorAs(t, err, &pushErr)
	assert.Equal(t, Building, out.FailedStage)
	require.Len(t, out.PushResults, 1)
	assert.True(t, out.PushResults[0].Result.Failed())
	assert.Empty(t, h.ran, "postbuild does not run after a failed push")
}

func TestRun_BuilderError(t *testing.T) {
	h := newHarness(t, "fedora")
	opts := h.options("myrepo")
	opts.Source = &source.LocalSource{Dir: t.TempDir()}

	out, err := New(opts).Run(context.Background())
	require.ErrorIs(t, err, source.ErrDockerfileNotFound)
	assert.Equal(t, PreBuild, out.FailedStage)
	assert.NotNil(t, out.PrebuildResults)
	assert.NotNil(t, out.PostbuildResults)
}

func TestRun_PluginsSeeBuilder(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupBuild()
	h.eng.SetupImageID("sha256:1")

	var phases []builder.Phase
	for _, hook := range []plugin.Hook{plugin.PreBuild, plugin.PostBuild} {
		h.reg.MustRegister(plugin.Definition{
			Key:  "phase",
			Hook: hook,
			New: func(_ engine.Engine, wf *plugin.Context, _ plugin.Args) (plugin.Plugin, error) {
				return plugin.RunFunc(func(context.Context) (any, error) {
					phases = append(phases, wf.Builder.Phase())
					return nil, nil
				}), nil
			},
		})
	}

	opts := h.options("myrepo")
	opts.PrebuildPlugins = []plugin.Spec{{Name: "phase"}}
	opts.PostbuildPlugins = []plugin.Spec{{Name: "phase"}}

	_, err := New(opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []builder.Phase{builder.NotBuilt, builder.Built}, phases)
}

func TestRun_PostbuildInspectsImagePushedUnderOwnName(t *testing.T) {
	h := newHarness(t, "fedora")
	h.eng.SetupPush()

	// Local tags of the built image; removals drop them.
	tags := map[string]bool{}
	h.eng.BuildImageFn = func(_ context.Context, o engine.BuildOptions) (engine.LogStream, error) {
		tags[o.Tag] = true
		return engine.StreamOf(), nil
	}
	h.eng.TagImageFn = func(_ context.Context, _, target string, _ bool) error {
		tags[target] = true
		return nil
	}
	h.eng.RemoveImageFn = func(_ context.Context, ref string, _ bool) error {
		delete(tags, ref)
		return nil
	}
	h.eng.ListImagesFn = func(_ context.Context, ref string) ([]engine.ImageSummary, error) {
		if !tags[ref] {
			return nil, nil
		}
		return []engine.ImageSummary{{ID: "sha256:1", RepoTags: []string{ref}}}, nil
	}
	h.eng.InspectImageFn = func(_ context.Context, ref string) (*engine.ImageInspect, error) {
		return &engine.ImageInspect{ID: ref}, nil
	}

	h.reg.MustRegister(plugin.Definition{
		Key:  "inspect",
		Hook: plugin.PostBuild,
		New: func(_ engine.Engine, wf *plugin.Context, _ plugin.Args) (plugin.Plugin, error) {
			return plugin.RunFunc(func(ctx context.Context) (any, error) {
				if _, err := wf.Builder.BuiltImageInfo(ctx); err != nil {
					return nil, err
				}
				info, err := wf.Builder.InspectBuiltImage(ctx)
				if err != nil {
					return nil, err
				}
				return info.ID, nil
			}), nil
		},
	})

	opts := h.options("registry.example.com/myrepo:latest")
	opts.TargetRegistries = []string{"registry.example.com"}
	opts.PostbuildPlugins = []plugin.Spec{{Name: "inspect"}}

	out, err := New(opts).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "sha256:1", out.PostbuildResults.Value("inspect"))
	assert.True(t, tags["registry.example.com/myrepo:latest"])
}
