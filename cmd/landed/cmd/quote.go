package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/shipgrid/backend-import/internal/pricing"
)

func newQuoteCmd() *cobra.Command {
	var tablePath, province string
	c := &cobra.Command{
		Use:   "quote <base-price>",
		Short: "Landed price from a charge table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, p, err := parseArgs(args[0], province)
			if err != nil {
				return err
			}
			calc, err := loadCalculator(cmd.Context(), tablePath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			b, err := calc.Landed(base, p)
			if err != nil {
				return err
			}
			q := pricing.NewQuote(b, p)
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), q)
			}
			rows := make([][2]string, 0, len(q.Lines)+2)
			rows = append(rows, [2]string{"Base price", pricing.FormatWhole(q.BasePrice)})
			for _, l := range q.Lines {
				rows = append(rows, [2]string{l.Label, l.Display})
			}
			rows = append(rows, [2]string{"Total (" + q.ProvinceName + ")", q.TotalDisplay})
			return writeRows(cmd.OutOrStdout(), rows)
		},
	}
	c.Flags().StringVarP(&tablePath, "table", "t", "", "charge table JSON file")
	c.Flags().StringVarP(&province, "province", "p", "BC", "destination province code")
	return c
}

func newStandardCmd() *cobra.Command {
	var province string
	c := &cobra.Command{
		Use:   "standard <base-price>",
		Short: "Landed price from the fixed freight, duty and tax formula",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, p, err := parseArgs(args[0], province)
			if err != nil {
				return err
			}
			b, err := pricing.ComputeStandardBreakdown(base, p)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			return writeRows(cmd.OutOrStdout(), [][2]string{
				{"Base price", b.BasePrice.StringFixed(2)},
				{"Overseas freight", b.OverseasFreight.StringFixed(2)},
				{"Import duties", b.ImportDuties.StringFixed(2)},
				{"GST", b.GST.StringFixed(2)},
				{"PST", b.PST.StringFixed(2)},
				{"HST", b.HST.StringFixed(2)},
				{"Inland shipping", b.InlandShipping.StringFixed(2)},
				{"Service fee", b.ServiceFee.StringFixed(2)},
				{"Total", b.Total.StringFixed(2)},
			})
		},
	}
	c.Flags().StringVarP(&province, "province", "p", "BC", "destination province code")
	return c
}

func parseArgs(rawBase, rawProvince string) (pricing.Money, pricing.Province, error) {
	base, err := decimal.NewFromString(rawBase)
	if err != nil {
		return pricing.Money{}, "", fmt.Errorf("base price %q is not a number", rawBase)
	}
	province, err := pricing.ParseProvince(rawProvince)
	if err != nil {
		return pricing.Money{}, "", err
	}
	return base, province, nil
}

func writeRows(w io.Writer, rows [][2]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t\n", r[0], r[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
