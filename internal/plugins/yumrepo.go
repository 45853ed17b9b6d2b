package plugins

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/schmitthub/reactor/internal/dockerfile"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
)

// AddYumRepoByURLKey injects yum repository files into the Dockerfile.
const AddYumRepoByURLKey = "add_yum_repo_by_url"

// YumReposDir is where repository files are written inside the image.
const YumReposDir = "/etc/yum.repos.d"

type yumRepoArgs struct {
	RepoURLs []string `mapstructure:"repourls"`
}

type addYumRepoByURL struct {
	wf   *plugin.Context
	log  logger.Logger
	args yumRepoArgs
}

func newAddYumRepoByURL(_ engine.Engine, wf *plugin.Context, args plugin.Args) (plugin.Plugin, error) {
	p := &addYumRepoByURL{wf: wf, log: logger.With(wf.Logger, "plugin", AddYumRepoByURLKey)}
	if err := args.Decode(&p.args); err != nil {
		return nil, err
	}
	return p, nil
}

// Run downloads each repository file right after the final stage's
// MAINTAINER (or FROM) line and deletes them all again in a final RUN, so
// the files are available to the build but not left in the image.
func (p *addYumRepoByURL) Run(context.Context) (any, error) {
	if len(p.args.RepoURLs) == 0 {
		p.log.Debug().Msg("no repository URLs given")
		return nil, nil
	}
	if p.wf.Builder == nil {
		return nil, errNoBuilder
	}

	files := make([]string, 0, len(p.args.RepoURLs))
	wgets := make([]string, 0, len(p.args.RepoURLs))
	for _, raw := range p.args.RepoURLs {
		name, err := repoFileName(raw)
		if err != nil {
			return nil, err
		}
		file := YumReposDir + "/" + name
		files = append(files, file)
		wgets = append(wgets, fmt.Sprintf("RUN wget -O '%s' %s\n", file, raw))
	}

	dfPath := p.wf.Builder.DockerfilePath()
	df, err := dockerfile.Parse(dfPath)
	if err != nil {
		return nil, err
	}
	at, err := df.InsertionLine()
	if err != nil {
		return nil, err
	}

	lines := df.Lines()
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		lines[n-1] += "\n"
	}

	out := make([]string, 0, len(lines)+len(wgets)+1)
	out = append(out, lines[:at]...)
	out = append(out, wgets...)
	out = append(out, lines[at:]...)
	out = append(out, "RUN rm -f '"+strings.Join(files, "' '")+"'\n")

	info, err := os.Stat(dfPath)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(dfPath, []byte(strings.Join(out, "")), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("writing dockerfile: %w", err)
	}

	p.wf.Repos["yum"] = append(p.wf.Repos["yum"], p.args.RepoURLs...)
	p.log.Info().Strs("files", files).Msg("added yum repositories")
	return files, nil
}

// repoFileName is the unescaped last path element of a repository URL.
func repoFileName(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid repository URL %q: %w", raw, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("repository URL %q has no file name", raw)
	}
	return name, nil
}
