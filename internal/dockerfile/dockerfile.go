// Package dockerfile locates instructions in a Dockerfile.
//
// It understands nothing beyond instruction boundaries: parsing is done by
// the buildkit frontend parser and callers get the instruction list with
// source line ranges, which is enough to find the base image or to splice
// new lines into the file.
package dockerfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// ErrNoFrom is returned when a Dockerfile has no FROM instruction.
var ErrNoFrom = errors.New("dockerfile has no FROM instruction")

// Instruction is one parsed Dockerfile instruction.
type Instruction struct {
	Cmd       string   // upper case instruction name, e.g. "FROM"
	Args      []string // arguments after flags
	Flags     []string // e.g. --platform=linux/amd64
	Original  string
	StartLine int // 1-based
	EndLine   int // 1-based, inclusive
}

// File is a parsed Dockerfile.
type File struct {
	Path         string
	Content      string
	Instructions []Instruction
}

// Parse reads and parses the Dockerfile at path.
func Parse(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dockerfile: %w", err)
	}
	f, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// ParseBytes parses Dockerfile content.
func ParseBytes(data []byte) (*File, error) {
	result, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	f := &File{Content: string(data)}
	for _, node := range result.AST.Children {
		inst := Instruction{
			Cmd:       strings.ToUpper(node.Value),
			Flags:     node.Flags,
			Original:  node.Original,
			StartLine: node.StartLine,
			EndLine:   node.EndLine,
		}
		for n := node.Next; n != nil; n = n.Next {
			inst.Args = append(inst.Args, n.Value)
		}
		f.Instructions = append(f.Instructions, inst)
	}
	return f, nil
}

// Find returns all instructions named cmd, in file order.
func (f *File) Find(cmd string) []Instruction {
	cmd = strings.ToUpper(cmd)
	var out []Instruction
	for _, inst := range f.Instructions {
		if inst.Cmd == cmd {
			out = append(out, inst)
		}
	}
	return out
}

// BaseImage returns the image named by the last FROM instruction.
func (f *File) BaseImage() (string, error) {
	froms := f.Find("FROM")
	if len(froms) == 0 || len(froms[len(froms)-1].Args) == 0 {
		return "", ErrNoFrom
	}
	return froms[len(froms)-1].Args[0], nil
}

// InsertionLine returns the 1-based line after which instructions that must
// run early in the final stage belong: the end of that stage's MAINTAINER
// instruction, or of its FROM when it has none.
func (f *File) InsertionLine() (int, error) {
	last := -1
	for i, inst := range f.Instructions {
		if inst.Cmd == "FROM" {
			last = i
		}
	}
	if last < 0 {
		return 0, ErrNoFrom
	}

	line := f.Instructions[last].EndLine
	for _, inst := range f.Instructions[last+1:] {
		if inst.Cmd == "MAINTAINER" {
			line = inst.EndLine
		}
	}
	return line, nil
}

// Lines splits the content into lines, each keeping its trailing newline.
func (f *File) Lines() []string {
	return strings.SplitAfter(f.Content, "\n")
}
