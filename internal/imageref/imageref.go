// Package imageref parses and renders container image references.
//
// A Reference is a value: registry changes return copies, so the reference
// a caller parsed is never mutated by the code that pulls or pushes it.
package imageref

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
)

// DefaultTag is applied when a reference carries neither a tag nor a digest.
const DefaultTag = "latest"

// Reference is a parsed image reference.
// Registry is empty when the original text named no registry host.
type Reference struct {
	Registry   string
	Repository string
	Tag        string
	Digest     digest.Digest
}

// Parse parses an image reference such as "fedora", "fedora:39" or
// "registry.example.com:5000/team/app:v1".
func Parse(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, fmt.Errorf("empty image reference")
	}

	named, err := reference.ParseNormalizedNamed(s)
	if err != nil {
		return Reference{}, fmt.Errorf("invalid image reference %q: %w", s, err)
	}

	ref := Reference{}
	if hasRegistry(s) {
		ref.Registry = reference.Domain(named)
		ref.Repository = reference.Path(named)
	} else {
		ref.Repository = reference.FamiliarName(named)
	}

	if tagged, ok := named.(reference.Tagged); ok {
		ref.Tag = tagged.Tag()
	}
	if digested, ok := named.(reference.Digested); ok {
		ref.Digest = digested.Digest()
	}
	if ref.Tag == "" && ref.Digest == "" {
		ref.Tag = DefaultTag
	}

	return ref, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Reference {
	ref, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// hasRegistry reports whether the first path component of s is a registry host,
// using the same rule as the docker CLI.
func hasRegistry(s string) bool {
	first, _, found := strings.Cut(s, "/")
	if !found {
		return false
	}
	return strings.ContainsAny(first, ".:") || first == "localhost"
}

// WithRegistry returns a copy of r with its registry replaced.
func (r Reference) WithRegistry(registry string) Reference {
	r.Registry = registry
	return r
}

// WithTag returns a copy of r with its tag replaced.
func (r Reference) WithTag(tag string) Reference {
	r.Tag = tag
	return r
}

// HasRegistry reports whether the reference names a registry.
func (r Reference) HasRegistry() bool {
	return r.Registry != ""
}

// Name renders the reference without tag or digest.
func (r Reference) Name() string {
	if r.Registry == "" {
		return r.Repository
	}
	return r.Registry + "/" + r.Repository
}

// String renders the full reference.
func (r Reference) String() string {
	var b strings.Builder
	b.WriteString(r.Name())
	if r.Tag != "" {
		b.WriteString(":")
		b.WriteString(r.Tag)
	}
	if r.Digest != "" {
		b.WriteString("@")
		b.WriteString(r.Digest.String())
	}
	return b.String()
}
