package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garrypolley/djorm/schema"
)

func newSchemaCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <file>",
		Short: "Parse a schema file and print its entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := schema.ParseSchemaFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range reg.Entities() {
				fmt.Fprintf(out, "entity %s (table %s, alias %s)\n", e.Name, e.Table, e.ShortCode())
				for _, f := range e.Fields {
					var attrs []string
					if f.PrimaryKey {
						attrs = append(attrs, "pk")
					}
					if f.Nullable {
						attrs = append(attrs, "nullable")
					}
					suffix := ""
					if len(attrs) > 0 {
						suffix = " [" + strings.Join(attrs, ", ") + "]"
					}
					fmt.Fprintf(out, "  field %-20s %-8s column %s%s\n",
						f.Name, f.Kind, f.Column, suffix)
				}
				for _, r := range e.Relations {
					fmt.Fprintf(out, "  rel   %-20s %-14s -> %s\n",
						r.Name, r.Cardinality, r.Target)
				}
			}
			return nil
		},
	}
}
