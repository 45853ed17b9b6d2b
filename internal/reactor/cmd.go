// Package reactor is the CLI entry point shared by cmd/reactor.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schmitthub/reactor/internal/cmd/factory"
	"github.com/schmitthub/reactor/internal/cmd/root"
	"github.com/schmitthub/reactor/internal/cmdutil"
	"github.com/schmitthub/reactor/internal/signals"
)

// Build-time variables injected via ldflags
var (
	Version = "dev"
	Commit  = "none"
)

const (
	exitOk    = 0
	exitError = 1
	exitUsage = 2
)

// Main is the entry point for the reactor CLI.
// It initializes the Factory, creates the root command, and executes it.
func Main() int {
	f := factory.New(Version, Commit)
	defer f.CloseLogger()
	defer f.CloseEngine()

	ctx, cancel := signals.SetupSignalContext(context.Background())
	defer cancel()

	rootCmd := root.NewCmdRoot(f)
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return exitOk
	}
	if cause := context.Cause(ctx); cause != nil && errors.Is(err, context.Canceled) {
		err = cause
	}
	return handleError(f.IOStreams.ErrOut, cmd, err, f.Verbose)
}

// handleError reports err and returns the process exit code.
// Verbose mode prints the full error chain; otherwise a one-line summary.
func handleError(w io.Writer, cmd *cobra.Command, err error, verbose bool) int {
	var exitErr *cmdutil.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, cmdutil.SilentError) {
		return exitError
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(w, "Error: %s\n", summary(err))
		return exitError
	}

	var flagErr *cmdutil.FlagError
	if errors.As(err, &flagErr) || isCobraUsageError(err) {
		fmt.Fprintln(w, err)
		if cmd != nil && !strings.Contains(err.Error(), "--help") {
			fmt.Fprintln(w)
			fmt.Fprint(w, cmd.UsageString())
		}
		return exitUsage
	}

	if verbose {
		fmt.Fprintf(w, "Error: %+v\n", err)
		for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
			fmt.Fprintf(w, "  caused by: %v\n", e)
		}
	} else {
		fmt.Fprintf(w, "Error: %s\n", summary(err))
		fmt.Fprintln(w, "Run with --verbose for details.")
	}
	return exitError
}

// summary returns the first line of err.
func summary(err error) string {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}

// isCobraUsageError reports errors cobra returns for bad flags or
// arguments, which are plain errors rather than FlagErrors.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown flag", "unknown shorthand flag", "flag needs an argument", "invalid argument", "if any flags in the group", "unknown command"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
