package cmdutil

import (
	"github.com/schmitthub/reactor/internal/config"
	"github.com/schmitthub/reactor/internal/iostreams"
)

// ReportResults prints the summary of a finished build and returns an
// *ExitError when the build failed.
func ReportResults(ios *iostreams.IOStreams, image string, r *config.Results) error {
	s := iostreams.BuildSummary{
		Failed:      r.Failed(),
		Image:       image,
		ImageID:     r.ImageID,
		ImageSize:   r.ImageSize,
		FailedStage: r.FailedStage,
		Error:       r.Error,
	}
	for _, p := range r.PushResults {
		if p.Error == "" {
			s.Registries = append(s.Registries, p.Registry)
		}
	}
	_ = ios.PrintBuildSummary(s)

	if r.Failed() {
		return &ExitError{Code: r.ReturnCode, Stage: r.FailedStage}
	}
	return nil
}
