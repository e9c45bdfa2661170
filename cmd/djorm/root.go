package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds global flags shared by all subcommands.
type rootOptions struct {
	dialect string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "djorm",
		Short:         "Inspect schemas and compile queries to SQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.dialect, "dialect", "default",
		"SQL dialect (default|sqlite|postgres)")

	cmd.AddCommand(newSchemaCommand(opts))
	cmd.AddCommand(newCompileCommand(opts))

	return cmd
}
