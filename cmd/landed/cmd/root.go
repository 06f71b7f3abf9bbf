// Package cmd provides the landed command line calculator.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shipgrid/backend-import/internal/chargeconfig"
	"github.com/shipgrid/backend-import/internal/obs"
	"github.com/shipgrid/backend-import/internal/pricing"
)

var (
	jsonOutput bool
	verbose    bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "landed",
		Short: "Compute landed prices for imported vehicles",
		Long: `landed prices a vehicle delivered to a Canadian province.

Examples:
  landed quote --table charges.json --province BC 84000
  landed standard --province ON 84000
  landed provinces --table charges.json`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log table loading to stderr")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
	root.AddCommand(newQuoteCmd(), newStandardCmd(), newProvincesCmd())
	return root
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func logger(w io.Writer) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return obs.NewLoggerTo(w, "console")
}

func loadCalculator(ctx context.Context, tablePath string, stderr io.Writer) (*pricing.Calculator, error) {
	if tablePath == "" {
		return nil, fmt.Errorf("--table is required")
	}
	holder := pricing.NewTableHolder(nil)
	reloader := &chargeconfig.Reloader{
		Source: chargeconfig.FileSource{Path: tablePath},
		Holder: holder,
		Logger: logger(stderr),
	}
	if err := reloader.LoadOnce(ctx); err != nil {
		return nil, err
	}
	return pricing.NewCalculator(holder), nil
}
