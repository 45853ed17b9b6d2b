// Package source provides the checkouts images are built from.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DockerfileName is the file looked up inside a build directory.
const DockerfileName = "Dockerfile"

// ErrDockerfileNotFound is returned when no Dockerfile exists at the
// requested location.
var ErrDockerfileNotFound = errors.New("dockerfile not found")

// Location describes where a Dockerfile lives inside a checkout.
type Location struct {
	Root string // checkout root
	Dir  string // directory holding the Dockerfile, used as build context
	Path string // full Dockerfile path
}

// Source yields the Dockerfile of a checkout. Implementations may fetch
// lazily; repeated calls return the same location.
type Source interface {
	Dockerfile(ctx context.Context) (*Location, error)
}

// FigureOutDockerfile resolves path, relative to root, to a Dockerfile.
// A path whose last element is "Dockerfile" names the file; any other path
// names the directory that must contain one.
func FigureOutDockerfile(root, path string) (*Location, error) {
	full := filepath.Join(root, path)

	dir := full
	if filepath.Base(full) == DockerfileName {
		dir = filepath.Dir(full)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory %s does not exist", ErrDockerfileNotFound, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDockerfileNotFound, dir)
	}

	dockerfile := filepath.Join(dir, DockerfileName)
	if _, err := os.Stat(dockerfile); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDockerfileNotFound, dockerfile)
	}

	return &Location{Root: root, Dir: dir, Path: dockerfile}, nil
}

// LocalSource is a checkout that already exists on disk.
type LocalSource struct {
	Dir            string
	DockerfilePath string // relative to Dir, may be empty
}

// Dockerfile implements Source.
func (s *LocalSource) Dockerfile(context.Context) (*Location, error) {
	return FigureOutDockerfile(s.Dir, s.DockerfilePath)
}

// Describe returns a short human readable name for logs.
func Describe(s Source) string {
	switch src := s.(type) {
	case *GitSource:
		if src.Commit == "" {
			return src.URL
		}
		return src.URL + "@" + src.Commit
	case *LocalSource:
		return src.Dir
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", s), "*")
	}
}
