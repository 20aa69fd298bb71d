package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/facility-backend/internal/domain/facility"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the registered aggregate types as YAML",
	Long: `Print every registered aggregate type with its columns, slots,
unique keys and counters.

Examples:
  facility-backend schema
  facility-backend schema | yq '.[].name'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(facility.NewRegistry().Describe())
	},
}
