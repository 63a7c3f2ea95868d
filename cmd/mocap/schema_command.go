package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mocap/internal/manifest"
)

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "schema [document]",
		Short:       "Print the JSON Schema of an output document",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, name := range manifest.SchemaNames() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			schema, err := manifest.Schema(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, schema)
		},
	}
}
