package cmdutil

import (
	"github.com/spf13/cobra"
)

// NoArgs validates args and returns an error if there are any args
func NoArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}

	if cmd.HasSubCommands() {
		return FlagErrorf(
			"%[1]s: unknown command: %[2]s %[3]s\n\nRun '%[2]s --help' for more information",
			binName(cmd),
			cmd.CommandPath(),
			args[0],
		)
	}

	return FlagErrorf(
		"%[1]s: '%[2]s' accepts no arguments\n\nRun '%[2]s --help' for more information",
		binName(cmd),
		cmd.CommandPath(),
	)
}

// ExactArgs returns an error if there is not the exact number of args
func ExactArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == number {
			return nil
		}
		return FlagErrorf(
			"%[1]s: '%[2]s' requires %[3]d %[4]s\n\nRun '%[2]s --help' for more information",
			binName(cmd),
			cmd.CommandPath(),
			number,
			pluralize("argument", number),
		)
	}
}

// binName returns the name of the binary / root command.
func binName(cmd *cobra.Command) string {
	return cmd.Root().Name()
}

func pluralize(word string, number int) string {
	if number == 1 {
		return word
	}
	return word + "s"
}
