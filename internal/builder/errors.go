package builder

import (
	"errors"
	"fmt"

	"github.com/schmitthub/reactor/internal/engine"
)

var (
	// ErrNotBuilt is returned by operations that need a finished build.
	ErrNotBuilt = errors.New("image has not been built yet")
	// ErrAlreadyBuilt is returned by operations that must run before the build.
	ErrAlreadyBuilt = errors.New("image has already been built")
	// ErrRegistryMismatch matches every *RegistryMismatchError.
	ErrRegistryMismatch = errors.New("registry mismatch")
	// ErrImageLookup matches every *LookupError.
	ErrImageLookup = errors.New("image lookup failed")
)

// RegistryMismatchError reports a registry argument that disagrees with the
// registry already named by an image reference.
type RegistryMismatchError struct {
	Image         string
	ImageRegistry string
	Provided      string
}

func (e *RegistryMismatchError) Error() string {
	return fmt.Sprintf("registry specified in image %s (%s) differs from provided registry %s",
		e.Image, e.ImageRegistry, e.Provided)
}

func (e *RegistryMismatchError) Is(target error) bool { return target == ErrRegistryMismatch }

// LookupError reports that an image name did not resolve to exactly one
// local image.
type LookupError struct {
	Image string
	Count int
}

func (e *LookupError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("image %s not found", e.Image)
	}
	return fmt.Sprintf("image %s is ambiguous: %d images match", e.Image, e.Count)
}

func (e *LookupError) Is(target error) bool { return target == ErrImageLookup }

// PushError reports a push the registry rejected.
type PushError struct {
	Image  string
	Result *engine.CommandResult
}

func (e *PushError) Error() string {
	msg := "push failed"
	if e.Result != nil && e.Result.Error != "" {
		msg = e.Result.Error
	}
	return fmt.Sprintf("pushing %s: %s", e.Image, msg)
}
