package workflow

import (
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/plugin"
)

// PushResult is the registry response to one push.
type PushResult struct {
	Registry string
	Result   *engine.CommandResult
}

// Outcome is the record of a finished workflow run. It is built once at the
// end of Run and not modified afterwards.
type Outcome struct {
	Success bool
	Err     error

	// FailedStage is the state the workflow was in when it failed. It is
	// only meaningful when Success is false.
	FailedStage State
	// BuildAttempted tells a failed build (logs, no image id) from a run
	// that failed before building.
	BuildAttempted bool

	Image     string
	BaseImage string
	ImageID   string // empty unless the build succeeded
	ImageSize int64

	BuildResult *engine.CommandResult
	PushResults []PushResult

	PrebuildResults  *plugin.Results
	PostbuildResults *plugin.Results
}

// BuildFailed reports whether the image build ran and failed.
func (o *Outcome) BuildFailed() bool {
	return o.BuildAttempted && o.BuildResult.Failed()
}

// Logs returns the build output, or nil when no build ran.
func (o *Outcome) Logs() []string {
	if o.BuildResult == nil {
		return nil
	}
	return o.BuildResult.Logs
}
