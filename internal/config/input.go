package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/schmitthub/reactor/internal/plugin"
)

// Input names where inside-build reads its request from.
type Input string

const (
	// InputPath reads a file: the "path" argument or the shared build.json.
	InputPath Input = "path"
	// InputEnv reads JSON from an environment variable: the "env_name"
	// argument or BUILD_JSON.
	InputEnv Input = "env"
)

// ErrUnknownInput is returned for an input name other than path or env.
var ErrUnknownInput = errors.New("unknown input")

// ReadInput loads a request through the named input. An empty name means
// InputPath.
func ReadInput(name Input, args map[string]string) (*BuildRequest, error) {
	switch name {
	case "", InputPath:
		path := args["path"]
		if path == "" {
			path = BuildJSONPath(ShareDir)
		}
		return LoadRequest(path)
	case InputEnv:
		env := args["env_name"]
		if env == "" {
			env = BuildJSONEnv
		}
		data, ok := os.LookupEnv(env)
		if !ok {
			return nil, fmt.Errorf("environment variable %s is not set", env)
		}
		return ParseRequest([]byte(data))
	default:
		return nil, fmt.Errorf("%w %q: valid inputs are %s and %s", ErrUnknownInput, name, InputPath, InputEnv)
	}
}

// ParseKeyValues splits key=value pairs. The value may contain '='.
func ParseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

// Substitute applies key=value overrides to the request in order. A key is
// either a top-level field name, or <hook>_plugins.<plugin>.<arg> to set a
// plugin argument. Values are converted weakly to the field type; list
// fields take comma separated values.
func (r *BuildRequest) Substitute(subs []string) error {
	for _, s := range subs {
		key, value, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid substitution %q: expected key=value", s)
		}
		if err := r.substitute(key, value); err != nil {
			return fmt.Errorf("substitution %q: %w", s, err)
		}
	}
	return nil
}

func (r *BuildRequest) substitute(key, value string) error {
	if parts := strings.SplitN(key, ".", 3); len(parts) > 1 {
		if len(parts) != 3 {
			return fmt.Errorf("plugin substitution must be <hook>_plugins.<plugin>.<arg>")
		}
		var specs []plugin.Spec
		switch parts[0] {
		case "prebuild_plugins":
			specs = r.PrebuildPlugins
		case "postbuild_plugins":
			specs = r.PostbuildPlugins
		default:
			return fmt.Errorf("unknown plugin list %q", parts[0])
		}
		i := slices.IndexFunc(specs, func(s plugin.Spec) bool { return s.Name == parts[1] })
		if i < 0 {
			return fmt.Errorf("no plugin %q in %s", parts[1], parts[0])
		}
		if specs[i].Args == nil {
			specs[i].Args = plugin.Args{}
		}
		specs[i].Args[parts[2]] = value
		return nil
	}

	if key == "prebuild_plugins" || key == "postbuild_plugins" {
		return fmt.Errorf("plugin lists cannot be substituted whole")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           r,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any{key: value})
}
