package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/reactor/internal/plugin"
)

func TestReadInput_Path(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(requestJSON), 0o644))

	req, err := ReadInput(InputPath, map[string]string{"path": path})
	require.NoError(t, err)
	assert.Equal(t, "abc123", req.GitCommit)
}

func TestReadInput_Env(t *testing.T) {
	t.Run("default variable", func(t *testing.T) {
		t.Setenv(BuildJSONEnv, `{"image": "app", "git_url": "u"}`)
		req, err := ReadInput(InputEnv, nil)
		require.NoError(t, err)
		assert.Equal(t, "app", req.Image)
	})

	t.Run("named variable", func(t *testing.T) {
		t.Setenv("MY_BUILD", `{"image": "other", "git_url": "u"}`)
		req, err := ReadInput(InputEnv, map[string]string{"env_name": "MY_BUILD"})
		require.NoError(t, err)
		assert.Equal(t, "other", req.Image)
	})

	t.Run("unset", func(t *testing.T) {
		_, err := ReadInput(InputEnv, map[string]string{"env_name": "REACTOR_TEST_UNSET_VARIABLE"})
		require.ErrorContains(t, err, "REACTOR_TEST_UNSET_VARIABLE is not set")
	})
}

func TestReadInput_Unknown(t *testing.T) {
	_, err := ReadInput("osbs", nil)
	require.ErrorIs(t, err, ErrUnknownInput)
}

func TestParseKeyValues(t *testing.T) {
	got, err := ParseKeyValues([]string{"path=/tmp/x.json", "query=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"path": "/tmp/x.json", "query": "a=b"}, got)

	_, err = ParseKeyValues([]string{"novalue"})
	require.Error(t, err)
	_, err = ParseKeyValues([]string{"=v"})
	require.Error(t, err)
}

func TestSubstitute(t *testing.T) {
	newReq := func() *BuildRequest {
		return &BuildRequest{
			Image:  "app",
			GitURL: "u",
			PrebuildPlugins: []plugin.Spec{
				{Name: "add_yum_repo_by_url", Args: plugin.Args{"repourls": []any{"a"}}},
			},
			PostbuildPlugins: []plugin.Spec{{Name: "all_rpm_packages"}},
		}
	}

	tests := []struct {
		name    string
		subs    []string
		check   func(t *testing.T, r *BuildRequest)
		wantErr string
	}{
		{
			name: "string field",
			subs: []string{"git_commit=deadbeef"},
			check: func(t *testing.T, r *BuildRequest) {
				assert.Equal(t, "deadbeef", r.GitCommit)
				assert.Equal(t, "app", r.Image)
			},
		},
		{
			name: "bool field",
			subs: []string{"target_registries_insecure=true", "fail_fast=1"},
			check: func(t *testing.T, r *BuildRequest) {
				assert.True(t, r.TargetRegistriesInsecure)
				assert.True(t, r.FailFast)
			},
		},
		{
			name: "list field",
			subs: []string{"target_registries=r1,r2"},
			check: func(t *testing.T, r *BuildRequest) {
				assert.Equal(t, []string{"r1", "r2"}, r.TargetRegistries)
			},
		},
		{
			name: "plugin argument",
			subs: []string{"prebuild_plugins.add_yum_repo_by_url.repourls=b", "postbuild_plugins.all_rpm_packages.image_id=sha256:9"},
			check: func(t *testing.T, r *BuildRequest) {
				assert.Equal(t, "b", r.PrebuildPlugins[0].Args["repourls"])
				assert.Equal(t, "sha256:9", r.PostbuildPlugins[0].Args["image_id"])
			},
		},
		{
			name: "value with equals",
			subs: []string{"image=app:tag=x"},
			check: func(t *testing.T, r *BuildRequest) {
				assert.Equal(t, "app:tag=x", r.Image)
			},
		},
		{name: "unknown field", subs: []string{"nope=1"}, wantErr: "nope"},
		{name: "missing value", subs: []string{"image"}, wantErr: "expected key=value"},
		{name: "unknown plugin", subs: []string{"prebuild_plugins.missing.x=1"}, wantErr: `no plugin "missing"`},
		{name: "unknown list", subs: []string{"exit_plugins.p.x=1"}, wantErr: "unknown plugin list"},
		{name: "short plugin key", subs: []string{"prebuild_plugins.p=1"}, wantErr: "<hook>_plugins.<plugin>.<arg>"},
		{name: "whole plugin list", subs: []string{"prebuild_plugins=x"}, wantErr: "cannot be substituted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReq()
			err := r.Substitute(tt.subs)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, r)
		})
	}
}
