// Package docs generates the reactor command reference as Markdown and man
// pages from the cobra command tree.
package docs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/spf13/cobra"
)

// ManHeader holds man page metadata.
type ManHeader struct {
	Section string // defaults to "1"
	Date    *time.Time
	Manual  string
}

// visibleCommands returns the documented subcommands of cmd, sorted by name.
func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.Hidden || !c.IsAvailableCommand() || c.Name() == "help" {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// baseName is the file name stem of cmd, e.g. "reactor_inside-build".
func baseName(cmd *cobra.Command, sep string) string {
	return strings.ReplaceAll(cmd.CommandPath(), " ", sep)
}

// walk calls fn for cmd and every visible descendant, children first.
func walk(cmd *cobra.Command, fn func(*cobra.Command) error) error {
	for _, c := range visibleCommands(cmd) {
		if err := walk(c, fn); err != nil {
			return err
		}
	}
	return fn(cmd)
}

func writeFile(path string, gen func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if err := gen(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// GenMarkdownTree writes one Markdown file per command into dir.
func GenMarkdownTree(cmd *cobra.Command, dir string) error {
	return walk(cmd, func(c *cobra.Command) error {
		return writeFile(filepath.Join(dir, baseName(c, "_")+".md"), func(w io.Writer) error {
			return GenMarkdown(c, w)
		})
	})
}

// GenMarkdown writes the Markdown reference of a single command.
func GenMarkdown(cmd *cobra.Command, w io.Writer) error {
	cmd.InitDefaultHelpFlag()

	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "## %s\n\n", cmd.CommandPath())
	if cmd.Short != "" {
		buf.WriteString(cmd.Short + "\n\n")
	}
	if cmd.Runnable() {
		buf.WriteString("### Synopsis\n\n")
		if cmd.Long != "" {
			buf.WriteString(cmd.Long + "\n\n")
		}
		fmt.Fprintf(buf, "```\n%s\n```\n\n", cmd.UseLine())
	}
	if cmd.Example != "" {
		fmt.Fprintf(buf, "### Examples\n\n```\n%s\n```\n\n", cmd.Example)
	}
	if subs := visibleCommands(cmd); len(subs) > 0 {
		buf.WriteString("### Subcommands\n\n")
		for _, c := range subs {
			fmt.Fprintf(buf, "* [%s](%s.md) - %s\n", c.CommandPath(), baseName(c, "_"), c.Short)
		}
		buf.WriteString("\n")
	}
	if flags := cmd.NonInheritedFlags(); flags.HasAvailableFlags() {
		fmt.Fprintf(buf, "### Options\n\n```\n%s```\n\n", flags.FlagUsages())
	}
	if flags := cmd.InheritedFlags(); flags.HasAvailableFlags() {
		fmt.Fprintf(buf, "### Options inherited from parent commands\n\n```\n%s```\n\n", flags.FlagUsages())
	}
	if cmd.HasParent() {
		parent := cmd.Parent()
		fmt.Fprintf(buf, "### See also\n\n* [%s](%s.md) - %s\n", parent.CommandPath(), baseName(parent, "_"), parent.Short)
	}

	_, err := buf.WriteTo(w)
	return err
}

// GenManTree writes one man page per command into dir.
func GenManTree(cmd *cobra.Command, header *ManHeader, dir string) error {
	if header == nil {
		header = &ManHeader{}
	}
	section := header.Section
	if section == "" {
		section = "1"
	}
	return walk(cmd, func(c *cobra.Command) error {
		return writeFile(filepath.Join(dir, baseName(c, "-")+"."+section), func(w io.Writer) error {
			return GenMan(c, header, w)
		})
	})
}

// GenMan renders the man page of a single command.
func GenMan(cmd *cobra.Command, header *ManHeader, w io.Writer) error {
	if header == nil {
		header = &ManHeader{}
	}
	_, err := w.Write(md2man.Render(manMarkdown(cmd, header)))
	return err
}

// manMarkdown builds the md2man source for cmd.
func manMarkdown(cmd *cobra.Command, header *ManHeader) []byte {
	cmd.InitDefaultHelpFlag()

	section := header.Section
	if section == "" {
		section = "1"
	}
	date := time.Now()
	if header.Date != nil {
		date = *header.Date
	}
	title := strings.ToUpper(baseName(cmd, "-"))

	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "%% %s(%s) %s | %s\n\n", title, section, date.Format("Jan 2006"), header.Manual)
	fmt.Fprintf(buf, "# NAME\n%s \\- %s\n\n", cmd.CommandPath(), cmd.Short)

	buf.WriteString("# SYNOPSIS\n**" + cmd.CommandPath() + "**")
	if cmd.NonInheritedFlags().HasAvailableFlags() {
		buf.WriteString(" [OPTIONS]")
	}
	if cmd.HasAvailableSubCommands() {
		buf.WriteString(" COMMAND")
	}
	buf.WriteString("\n\n")

	if cmd.Long != "" {
		fmt.Fprintf(buf, "# DESCRIPTION\n%s\n\n", cmd.Long)
	}
	if subs := visibleCommands(cmd); len(subs) > 0 {
		buf.WriteString("# COMMANDS\n")
		for _, c := range subs {
			fmt.Fprintf(buf, "**%s**\n  %s\n\n", c.Name(), c.Short)
		}
	}
	if flags := cmd.NonInheritedFlags(); flags.HasAvailableFlags() {
		fmt.Fprintf(buf, "# OPTIONS\n```\n%s```\n\n", flags.FlagUsages())
	}
	if cmd.Example != "" {
		fmt.Fprintf(buf, "# EXAMPLES\n```\n%s\n```\n\n", cmd.Example)
	}
	if cmd.HasParent() {
		fmt.Fprintf(buf, "# SEE ALSO\n**%s(%s)**\n", baseName(cmd.Parent(), "-"), section)
	}
	return buf.Bytes()
}
