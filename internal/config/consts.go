// Package config reads and writes the documents exchanged between the outer
// reactor process and a build running inside a build container, and the
// process settings taken from the environment.
package config

import "path/filepath"

const (
	// ShareDir is where the build container sees the shared directory.
	ShareDir = "/run/share"

	// BuildJSON is the request document inside the shared directory.
	BuildJSON = "build.json"

	// ResultsJSON is the results document inside the shared directory.
	ResultsJSON = "results.json"

	// BuildJSONEnv is the variable the env input reads the request from.
	BuildJSONEnv = "BUILD_JSON"

	// EnvPrefix prefixes every settings variable.
	EnvPrefix = "REACTOR"
)

// BuildJSONPath returns the request document path inside dir.
func BuildJSONPath(dir string) string { return filepath.Join(dir, BuildJSON) }

// ResultsJSONPath returns the results document path inside dir.
func ResultsJSONPath(dir string) string { return filepath.Join(dir, ResultsJSON) }
