// Package plugins holds the built-in build plugins.
package plugins

import (
	"errors"

	"github.com/schmitthub/reactor/internal/plugin"
)

var errNoBuilder = errors.New("plugin needs a builder in the workflow context")

// Definitions returns the built-in plugin definitions.
func Definitions() []plugin.Definition {
	return []plugin.Definition{
		{
			Key:           AddYumRepoByURLKey,
			Hook:          plugin.PreBuild,
			AllowedToFail: false,
			New:           newAddYumRepoByURL,
		},
		{
			Key:           AllRPMPackagesKey,
			Hook:          plugin.PostBuild,
			AllowedToFail: false,
			New:           newAllRPMPackages,
		},
		{
			Key:           DockerfileContentKey,
			Hook:          plugin.PostBuild,
			AllowedToFail: true,
			New:           newDockerfileContent,
		},
	}
}

// Register adds the built-in plugins to reg.
func Register(reg *plugin.Registry) error {
	for _, def := range Definitions() {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in plugins.
func NewRegistry() *plugin.Registry {
	reg := plugin.NewRegistry()
	for _, def := range Definitions() {
		reg.MustRegister(def)
	}
	return reg
}
