package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jonathan/collection-day/internal/observability"
	"github.com/jonathan/collection-day/internal/region"
)

var regionsJSON bool

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the supported councils",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		regions := region.Default().All()
		if regionsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(regions)
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintRegions(regions)
		return nil
	},
}

func init() {
	regionsCmd.Flags().BoolVar(&regionsJSON, "json", false, "Print regions as JSON")
	rootCmd.AddCommand(regionsCmd)
}
