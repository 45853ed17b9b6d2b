package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/schmitthub/reactor/internal/plugin"
	"github.com/schmitthub/reactor/internal/workflow"
)

// PushRecord is one registry push in the results document.
type PushRecord struct {
	Registry string   `json:"registry"`
	Logs     []string `json:"logs,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Results is the results document a build writes when it finishes.
type Results struct {
	ReturnCode  int    `json:"return_code"`
	Image       string `json:"image,omitempty"`
	ImageID     string `json:"image_id"`
	ImageSize   int64  `json:"image_size,omitempty"`
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`

	BuildLogs   []string     `json:"build_logs"`
	PushResults []PushRecord `json:"push_results,omitempty"`

	PrebuildPlugins  *plugin.Results `json:"prebuild_plugins"`
	PostbuildPlugins *plugin.Results `json:"postbuild_plugins"`
}

// NewResults converts a workflow outcome into a results document.
func NewResults(out *workflow.Outcome) *Results {
	r := &Results{
		Image:            out.Image,
		ImageID:          out.ImageID,
		ImageSize:        out.ImageSize,
		BuildLogs:        out.Logs(),
		PrebuildPlugins:  out.PrebuildResults,
		PostbuildPlugins: out.PostbuildResults,
	}
	if !out.Success {
		r.ReturnCode = 1
		r.FailedStage = out.FailedStage.String()
		if out.Err != nil {
			r.Error = out.Err.Error()
		}
	}
	for _, p := range out.PushResults {
		rec := PushRecord{Registry: p.Registry}
		if p.Result != nil {
			rec.Logs = p.Result.Logs
			rec.Error = p.Result.Error
		}
		r.PushResults = append(r.PushResults, rec)
	}
	if r.PrebuildPlugins == nil {
		r.PrebuildPlugins = plugin.NewResults()
	}
	if r.PostbuildPlugins == nil {
		r.PostbuildPlugins = plugin.NewResults()
	}
	return r
}

// Failed reports whether the build the document describes failed.
func (r *Results) Failed() bool { return r.ReturnCode != 0 }

// WriteResults writes the document to path under a file lock so a reader
// polling the shared directory never sees a partial write.
func WriteResults(path string, r *Results) error {
	data, err := marshalIndent(r)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return withFileLock(path, func() error {
		return atomicWriteFile(path, data, 0o644)
	})
}

// ReadResults reads a document written by WriteResults.
func ReadResults(path string) (*Results, error) {
	var data []byte
	err := withFileLock(path, func() error {
		var err error
		data, err = os.ReadFile(path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}

	var r Results
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding results %s: %w", path, err)
	}
	if r.PrebuildPlugins == nil {
		r.PrebuildPlugins = plugin.NewResults()
	}
	if r.PostbuildPlugins == nil {
		r.PostbuildPlugins = plugin.NewResults()
	}
	return &r, nil
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// atomicWriteFile writes data to a temp file in the same directory and
// renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".reactor-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("setting permissions on temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", path, err)
	}

	success = true
	return nil
}

// withFileLock holds an advisory lock on path+".lock" while fn runs.
func withFileLock(path string, fn func() error) error {
	fl := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring file lock for %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("timed out acquiring file lock for %s", path)
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}
