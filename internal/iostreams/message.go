package iostreams

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// PrintSuccess prints a success message to stderr with a checkmark icon.
func (ios *IOStreams) PrintSuccess(format string, args ...any) error {
	cs := ios.ColorScheme()
	_, err := fmt.Fprintln(ios.ErrOut, cs.SuccessIconWithColor(fmt.Sprintf(format, args...)))
	return err
}

// PrintWarning prints a warning message to stderr with an exclamation icon.
func (ios *IOStreams) PrintWarning(format string, args ...any) error {
	cs := ios.ColorScheme()
	_, err := fmt.Fprintln(ios.ErrOut, cs.WarningIconWithColor(fmt.Sprintf(format, args...)))
	return err
}

// PrintInfo prints an informational message to stderr with an info icon.
func (ios *IOStreams) PrintInfo(format string, args ...any) error {
	cs := ios.ColorScheme()
	_, err := fmt.Fprintln(ios.ErrOut, cs.InfoIconWithColor(fmt.Sprintf(format, args...)))
	return err
}

// PrintFailure prints an error message to stderr with an X icon.
func (ios *IOStreams) PrintFailure(format string, args ...any) error {
	cs := ios.ColorScheme()
	_, err := fmt.Fprintln(ios.ErrOut, cs.FailureIconWithColor(fmt.Sprintf(format, args...)))
	return err
}

// BuildSummary describes a finished build for PrintBuildSummary.
type BuildSummary struct {
	Failed      bool
	Image       string
	ImageID     string
	ImageSize   int64 // bytes; omitted when zero
	FailedStage string
	Error       string
	// Registries the image was pushed to.
	Registries []string
}

// PrintBuildSummary reports a finished build: the image id and the
// registries it reached on success, the failed stage and error otherwise.
func (ios *IOStreams) PrintBuildSummary(s BuildSummary) error {
	if s.Failed {
		stage := s.FailedStage
		if stage == "" {
			stage = "unknown"
		}
		return ios.PrintFailure("Build of %s failed in stage %s: %s", s.Image, stage, s.Error)
	}
	built := s.ImageID
	if s.ImageSize > 0 {
		built += ", " + units.HumanSize(float64(s.ImageSize))
	}
	if err := ios.PrintSuccess("Built %s (%s)", s.Image, built); err != nil {
		return err
	}
	if len(s.Registries) > 0 {
		return ios.PrintInfo("Pushed to %s", strings.Join(s.Registries, ", "))
	}
	return nil
}
