package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
)

// AllRPMPackagesKey lists the rpm packages installed in the built image.
const AllRPMPackagesKey = "all_rpm_packages"

// RPMTags are the header fields queried for every package, in output order.
var RPMTags = []string{"NAME", "VERSION", "RELEASE", "ARCH", "EPOCH", "SIZE", "SIGMD5", "BUILDTIME"}

const rpmEntrypoint = "/bin/rpm"

// gpg-pubkey packages are created by rpm when a key is imported; they are
// never signed.
const gpgPubkeyPrefix = "gpg-pubkey,"

type rpmqaArgs struct {
	ImageID                    string `mapstructure:"image_id"`
	IgnoreAutogeneratedGPGKeys *bool  `mapstructure:"ignore_autogenerated_gpg_keys"`
}

type allRPMPackages struct {
	engine engine.Engine
	wf     *plugin.Context
	log    logger.Logger
	args   rpmqaArgs
}

func newAllRPMPackages(eng engine.Engine, wf *plugin.Context, args plugin.Args) (plugin.Plugin, error) {
	p := &allRPMPackages{engine: eng, wf: wf, log: logger.With(wf.Logger, "plugin", AllRPMPackagesKey)}
	if err := args.Decode(&p.args); err != nil {
		return nil, err
	}
	return p, nil
}

// RPMQueryCommand returns the rpm arguments that print one comma separated
// line per installed package.
func RPMQueryCommand() ([]string, error) {
	fields := make([]string, len(RPMTags))
	for i, tag := range RPMTags {
		fields[i] = "%{" + tag + "}"
	}
	return shlex.Split(fmt.Sprintf(`-qa --qf '%s\n'`, strings.Join(fields, ",")))
}

func (p *allRPMPackages) imageID() (string, error) {
	if p.args.ImageID != "" {
		return p.args.ImageID, nil
	}
	if p.wf.Builder == nil {
		return "", errNoBuilder
	}
	if id := p.wf.Builder.ImageID(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no image id: the build has not produced an image")
}

func (p *allRPMPackages) ignoreGPGKeys() bool {
	return p.args.IgnoreAutogeneratedGPGKeys == nil || *p.args.IgnoreAutogeneratedGPGKeys
}

// Run queries rpm inside a throwaway container created from the image.
func (p *allRPMPackages) Run(ctx context.Context) (any, error) {
	image, err := p.imageID()
	if err != nil {
		return nil, err
	}
	cmd, err := RPMQueryCommand()
	if err != nil {
		return nil, fmt.Errorf("building rpm query: %w", err)
	}

	id, err := p.engine.RunContainer(ctx, engine.RunOptions{
		Image:      image,
		Command:    cmd,
		Entrypoint: []string{rpmEntrypoint},
	})
	if err != nil {
		return nil, fmt.Errorf("starting rpm query container: %w", err)
	}
	defer func() {
		if err := p.engine.RemoveContainer(context.WithoutCancel(ctx), id, true); err != nil {
			p.log.Warn().Err(err).Str("container", id).Msg("failed to remove rpm query container")
		}
	}()

	code, err := p.engine.WaitContainer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("waiting for rpm query container: %w", err)
	}
	if code != 0 {
		p.log.Warn().Int64("exit_code", code).Msg("rpm query exited non-zero")
	}

	lines, err := p.engine.ContainerLogs(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("reading rpm query output: %w", err)
	}

	packages := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if p.ignoreGPGKeys() && strings.HasPrefix(line, gpgPubkeyPrefix) {
			continue
		}
		packages = append(packages, line)
	}

	p.log.Debug().Int("packages", len(packages)).Msg("rpm query done")
	return packages, nil
}
