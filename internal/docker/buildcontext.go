package docker

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
)

const dockerignoreFile = ".dockerignore"

// readIgnorePatterns returns the .dockerignore patterns of dir, or nil when
// it has none.
func readIgnorePatterns(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, dockerignoreFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dockerignoreFile, err)
	}
	return patterns, nil
}

// writeBuildContext writes srcDir as a tar stream to w. Paths matched by
// the directory's .dockerignore are left out, except the Dockerfile and
// .dockerignore themselves. .git is always left out.
func writeBuildContext(srcDir, dockerfile string, w io.Writer) error {
	srcDir = filepath.Clean(srcDir)

	patterns, err := readIgnorePatterns(srcDir)
	if err != nil {
		return err
	}
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", dockerignoreFile, err)
	}
	keep := map[string]bool{
		filepath.ToSlash(filepath.Clean(dockerfile)): true,
		dockerignoreFile: true,
	}

	tw := tar.NewWriter(w)
	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		name := filepath.ToSlash(relPath)

		if name == ".git" || strings.HasPrefix(name, ".git/") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !keep[name] {
			ignored, err := pm.MatchesOrParentMatches(name)
			if err != nil {
				return err
			}
			// An excluded directory may still hold re-included files.
			if ignored && !(info.IsDir() && pm.Exclusions()) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if ignored {
				return nil
			}
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = name
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if info.Mode().IsRegular() {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			if _, err := io.Copy(tw, file); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = tw.Close()
		return fmt.Errorf("creating build context from %s: %w", srcDir, err)
	}
	return tw.Close()
}
