package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/schmitthub/reactor/internal/logger"
)

// DefaultCommit is checked out when no commit is given. "main" is tried
// when the repository has no master branch.
const DefaultCommit = "master"

const remoteName = "origin"

// GitSource checks out a git repository on first use.
type GitSource struct {
	URL            string
	Commit         string // branch, tag or hash
	DockerfilePath string // relative to the repository root
	TmpDir         string // parent for the checkout; os.TempDir when empty
	Logger         logger.Logger

	once     sync.Once
	location *Location
	err      error
	dir      string
}

// Dockerfile implements Source. The repository is fetched only once.
func (s *GitSource) Dockerfile(ctx context.Context) (*Location, error) {
	s.once.Do(func() {
		s.dir, s.err = s.checkout(ctx)
		if s.err == nil {
			s.location, s.err = FigureOutDockerfile(s.dir, s.DockerfilePath)
		}
	})
	return s.location, s.err
}

// Dir returns the checkout directory, or "" before the first Dockerfile call.
func (s *GitSource) Dir() string {
	return s.dir
}

// Cleanup removes the checkout directory.
func (s *GitSource) Cleanup() error {
	if s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

func (s *GitSource) log() logger.Logger {
	if s.Logger == nil {
		return logger.Nop()
	}
	return s.Logger
}

func (s *GitSource) checkout(ctx context.Context) (_ string, retErr error) {
	if s.URL == "" {
		return "", errors.New("git source has no URL")
	}

	dir, err := os.MkdirTemp(s.TmpDir, "reactor-git-")
	if err != nil {
		return "", fmt.Errorf("creating checkout directory: %w", err)
	}
	// A failed checkout is never handed to Cleanup.
	defer func() {
		if retErr == nil {
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			s.log().Warn().Err(err).Str("dir", dir).Msg("failed to remove partial checkout")
		}
	}()

	s.log().Info().Str("url", s.URL).Str("dir", dir).Msg("fetching git repository")

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		return "", fmt.Errorf("initializing checkout: %w", err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: remoteName,
		URLs: []string{s.URL},
	}); err != nil {
		return "", fmt.Errorf("adding remote: %w", err)
	}

	err = repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: remoteName,
		RefSpecs: []config.RefSpec{
			"+refs/heads/*:refs/remotes/origin/*",
			"+refs/tags/*:refs/tags/*",
		},
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("fetching %s: %w", s.URL, err)
	}

	hash, err := s.resolve(repo)
	if err != nil {
		return "", err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return "", fmt.Errorf("checking out %s: %w", hash, err)
	}

	s.log().Debug().Str("commit", hash.String()).Msg("checked out")
	return dir, nil
}

func (s *GitSource) resolve(repo *gogit.Repository) (plumbing.Hash, error) {
	commits := []string{s.Commit}
	if s.Commit == "" {
		commits = []string{DefaultCommit, "main"}
	}

	for _, commit := range commits {
		for _, rev := range []string{
			"refs/remotes/" + remoteName + "/" + commit,
			"refs/tags/" + commit,
			commit,
		} {
			hash, err := repo.ResolveRevision(plumbing.Revision(rev))
			if err == nil {
				return *hash, nil
			}
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("cannot resolve commit %q in %s", commits[0], s.URL)
}
