package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/reactor/internal/engine"
)

func noopConstructor(engine.Engine, *Context, Args) (Plugin, error) {
	return RunFunc(func(context.Context) (any, error) { return nil, nil }), nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Definition{Key: "b", Hook: PreBuild, New: noopConstructor}))
	require.NoError(t, reg.Register(Definition{Key: "a", Hook: PreBuild, New: noopConstructor}))
	require.NoError(t, reg.Register(Definition{Key: "a", Hook: PostBuild, New: noopConstructor}))

	err := reg.Register(Definition{Key: "a", Hook: PreBuild, New: noopConstructor})
	require.ErrorIs(t, err, ErrDuplicatePlugin)

	require.ErrorIs(t, reg.Register(Definition{Key: "", Hook: PreBuild, New: noopConstructor}), ErrInvalidPluginDef)
	require.ErrorIs(t, reg.Register(Definition{Key: "x", Hook: "sometime", New: noopConstructor}), ErrInvalidPluginDef)
	require.ErrorIs(t, reg.Register(Definition{Key: "x", Hook: PreBuild}), ErrInvalidPluginDef)

	assert.Equal(t, []string{"a", "b"}, reg.Keys(PreBuild))
	assert.Equal(t, []string{"a"}, reg.Keys(PostBuild))

	_, ok := reg.Lookup(PostBuild, "b")
	assert.False(t, ok)

	assert.Panics(t, func() { reg.MustRegister(Definition{Key: "b", Hook: PreBuild, New: noopConstructor}) })
}

func TestArgsDecode(t *testing.T) {
	type cfg struct {
		RepoURLs  []string `mapstructure:"repourls"`
		IgnoreGPG bool     `mapstructure:"ignore_autogenerated_gpg_keys"`
		Retries   int      `mapstructure:"retries"`
	}

	var got cfg
	err := Args{
		"repourls":                      []any{"http://a/x.repo"},
		"ignore_autogenerated_gpg_keys": "false",
		"retries":                       "3",
	}.Decode(&got)
	require.NoError(t, err)
	assert.Equal(t, cfg{RepoURLs: []string{"http://a/x.repo"}, IgnoreGPG: false, Retries: 3}, got)

	err = Args{"unexpected": 1}.Decode(&got)
	require.Error(t, err)
}

type unencodable struct {
	Ch chan int
}

func TestResults_JSON(t *testing.T) {
	r := NewResults()
	r.Set(Result{Key: "all_rpm_packages", Value: []string{"bash,5.2"}})
	r.Set(Result{Key: "dockerfile_content", Err: errors.New("read failed")})
	r.Set(Result{Key: "weird", Value: unencodable{}})
	r.Set(Result{Key: "all_rpm_packages", Value: []string{"bash,5.2", "coreutils,9.4"}})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"all_rpm_packages":["bash,5.2","coreutils,9.4"],"dockerfile_content":{"error":"read failed"},"weird":"{<nil>}"}`,
		string(data))

	var decoded Results
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"all_rpm_packages", "dockerfile_content", "weird"}, decoded.Keys())
	assert.Equal(t, []any{"bash,5.2", "coreutils,9.4"}, decoded.Value("all_rpm_packages"))
	failed, _ := decoded.Get("dockerfile_content")
	assert.EqualError(t, failed.Err, "read failed")
}

func TestResults_JSONEmpty(t *testing.T) {
	data, err := json.Marshal(NewResults())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	var decoded Results
	require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
	assert.Zero(t, decoded.Len())
	require.Error(t, json.Unmarshal([]byte(`[]`), &decoded))
}

func TestLoadAll(t *testing.T) {
	reg := NewRegistry()
	var loaded []string
	l := loaderFunc(func(path string, r *Registry) error {
		loaded = append(loaded, path)
		if path == "bad.so" {
			return errors.New("bad plugin")
		}
		return r.Register(Definition{Key: path, Hook: PreBuild, New: noopConstructor})
	})

	require.NoError(t, LoadAll(l, reg, "one.so", "two.so"))
	assert.Equal(t, []string{"one.so", "two.so"}, reg.Keys(PreBuild))

	require.Error(t, LoadAll(l, reg, "bad.so", "three.so"))
	assert.Equal(t, []string{"one.so", "two.so", "bad.so"}, loaded)
}

func TestSharedObjectLoader_MissingFile(t *testing.T) {
	err := SharedObjectLoader{}.Load("/nonexistent/plugin.so", NewRegistry())
	require.Error(t, err)
}

type loaderFunc func(path string, reg *Registry) error

func (f loaderFunc) Load(path string, reg *Registry) error { return f(path, reg) }
