package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
	"github.com/schmitthub/reactor/internal/source"
	"github.com/schmitthub/reactor/internal/workflow"
)

// ErrInvalidRequest is wrapped by every validation failure of a BuildRequest.
var ErrInvalidRequest = errors.New("invalid build request")

// BuildRequest is the request document describing one build.
type BuildRequest struct {
	Image string `json:"image" mapstructure:"image" yaml:"image"`

	GitURL            string `json:"git_url,omitempty" mapstructure:"git_url" yaml:"git_url,omitempty"`
	GitDockerfilePath string `json:"git_dockerfile_path,omitempty" mapstructure:"git_dockerfile_path" yaml:"git_dockerfile_path,omitempty"`
	GitCommit         string `json:"git_commit,omitempty" mapstructure:"git_commit" yaml:"git_commit,omitempty"`

	// SourceDir builds from a local directory instead of a git checkout.
	SourceDir string `json:"source_dir,omitempty" mapstructure:"source_dir" yaml:"source_dir,omitempty"`

	ParentRegistry         string `json:"parent_registry,omitempty" mapstructure:"parent_registry" yaml:"parent_registry,omitempty"`
	ParentRegistryInsecure bool   `json:"parent_registry_insecure,omitempty" mapstructure:"parent_registry_insecure" yaml:"parent_registry_insecure,omitempty"`

	TargetRegistries         []string `json:"target_registries,omitempty" mapstructure:"target_registries" yaml:"target_registries,omitempty"`
	TargetRegistriesInsecure bool     `json:"target_registries_insecure,omitempty" mapstructure:"target_registries_insecure" yaml:"target_registries_insecure,omitempty"`

	PrebuildPlugins  []plugin.Spec `json:"prebuild_plugins,omitempty" mapstructure:"prebuild_plugins" yaml:"prebuild_plugins,omitempty"`
	PostbuildPlugins []plugin.Spec `json:"postbuild_plugins,omitempty" mapstructure:"postbuild_plugins" yaml:"postbuild_plugins,omitempty"`

	FailFast bool `json:"fail_fast,omitempty" mapstructure:"fail_fast" yaml:"fail_fast,omitempty"`
}

// LoadRequest reads a request document from path. Files ending in .yaml or
// .yml are read as YAML, everything else as JSON.
func LoadRequest(path string) (*BuildRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build request: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return parseRequest(data, format)
}

// ParseRequest parses a JSON request document.
func ParseRequest(data []byte) (*BuildRequest, error) {
	return parseRequest(data, "json")
}

func parseRequest(data []byte, format string) (*BuildRequest, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing build request: %w", err)
	}

	var req BuildRequest
	if err := v.Unmarshal(&req); err != nil {
		return nil, fmt.Errorf("decoding build request: %w", err)
	}

	if err := fixPluginArgCase(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// fixPluginArgCase restores the original key case of plugin arguments.
// Viper lowercases keys; plugin arguments are passed through verbatim.
// JSON is valid YAML, so the same re-read serves both formats.
func fixPluginArgCase(data []byte, req *BuildRequest) error {
	var raw struct {
		Prebuild  []plugin.Spec `yaml:"prebuild_plugins"`
		Postbuild []plugin.Spec `yaml:"postbuild_plugins"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("re-reading plugin arguments: %w", err)
	}
	copyArgs(req.PrebuildPlugins, raw.Prebuild)
	copyArgs(req.PostbuildPlugins, raw.Postbuild)
	return nil
}

func copyArgs(dst, src []plugin.Spec) {
	for i := range dst {
		if i < len(src) && src[i].Name == dst[i].Name {
			dst[i].Args = src[i].Args
		}
	}
}

// Validate checks that the request names an image and exactly one source.
func (r *BuildRequest) Validate() error {
	if r.Image == "" {
		return fmt.Errorf("%w: image is required", ErrInvalidRequest)
	}
	switch {
	case r.GitURL == "" && r.SourceDir == "":
		return fmt.Errorf("%w: one of git_url or source_dir is required", ErrInvalidRequest)
	case r.GitURL != "" && r.SourceDir != "":
		return fmt.Errorf("%w: git_url and source_dir are mutually exclusive", ErrInvalidRequest)
	}
	for _, specs := range [][]plugin.Spec{r.PrebuildPlugins, r.PostbuildPlugins} {
		for i, s := range specs {
			if s.Name == "" {
				return fmt.Errorf("%w: plugin %d has no name", ErrInvalidRequest, i)
			}
		}
	}
	return nil
}

// Plugins returns the plugin list for hook.
func (r *BuildRequest) Plugins(hook plugin.Hook) []plugin.Spec {
	if hook == plugin.PreBuild {
		return r.PrebuildPlugins
	}
	return r.PostbuildPlugins
}

// Marshal encodes the request as indented JSON, the form written to the
// shared directory for a build container.
func (r *BuildRequest) Marshal() ([]byte, error) {
	return marshalIndent(r)
}

// WriteRequest writes the request document to path.
func WriteRequest(path string, r *BuildRequest) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("encoding build request: %w", err)
	}
	return withFileLock(path, func() error {
		return atomicWriteFile(path, data, 0o644)
	})
}

// Source returns the checkout the request builds from. Git checkouts are
// made under tmpDir.
func (r *BuildRequest) Source(tmpDir string, log logger.Logger) source.Source {
	if r.SourceDir != "" {
		return &source.LocalSource{Dir: r.SourceDir, DockerfilePath: r.GitDockerfilePath}
	}
	return &source.GitSource{
		URL:            r.GitURL,
		Commit:         r.GitCommit,
		DockerfilePath: r.GitDockerfilePath,
		TmpDir:         tmpDir,
		Logger:         log,
	}
}

// WorkflowOptions returns the workflow configuration for the request.
func (r *BuildRequest) WorkflowOptions(eng engine.Engine, reg *plugin.Registry, src source.Source, log logger.Logger) workflow.Options {
	return workflow.Options{
		Engine:                   eng,
		Source:                   src,
		Registry:                 reg,
		Logger:                   log,
		Image:                    r.Image,
		ParentRegistry:           r.ParentRegistry,
		ParentRegistryInsecure:   r.ParentRegistryInsecure,
		TargetRegistries:         r.TargetRegistries,
		TargetRegistriesInsecure: r.TargetRegistriesInsecure,
		PrebuildPlugins:          r.PrebuildPlugins,
		PostbuildPlugins:         r.PostbuildPlugins,
		FailFast:                 r.FailFast,
	}
}
