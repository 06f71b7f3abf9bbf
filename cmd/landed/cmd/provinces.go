package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shipgrid/backend-import/internal/pricing"
)

func newProvincesCmd() *cobra.Command {
	var tablePath string
	c := &cobra.Command{
		Use:   "provinces",
		Short: "List provinces and whether the charge table covers them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			calc, err := loadCalculator(cmd.Context(), tablePath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			type row struct {
				Code       pricing.Province `json:"code"`
				Label      string           `json:"label"`
				Configured bool             `json:"configured"`
			}
			all := pricing.Provinces()
			out := make([]row, 0, len(all))
			rows := make([][2]string, 0, len(all))
			for _, p := range all {
				configured := calc.Configured(p)
				out = append(out, row{Code: p, Label: p.Label(), Configured: configured})
				status := "missing"
				if configured {
					status = "configured"
				}
				rows = append(rows, [2]string{string(p) + " " + p.Label(), status})
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return writeRows(cmd.OutOrStdout(), rows)
		},
	}
	c.Flags().StringVarP(&tablePath, "table", "t", "", "charge table JSON file")
	return c
}
