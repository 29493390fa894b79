package main

import (
	"fmt"

	"github.com/fingenie/quantcore/internal/modules/analytics"
	"github.com/spf13/cobra"
)

func (c *cli) newAnalyzeCmd() *cobra.Command {
	var holdingsPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute portfolio analytics for a holdings file",
		Long: `Compute totals, sector allocation, top and worst performers and the
risk score for the holdings in a YAML file.

Example:
  quantctl analyze --holdings holdings.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			holdings, err := loadHoldings(holdingsPath)
			if err != nil {
				return err
			}

			svc := analytics.NewService(nil, nil, nil, c.logger())
			analysis, err := svc.AnalyzeHoldings(cmd.Context(), holdings)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			return c.printJSON(analysis.Result)
		},
	}

	cmd.Flags().StringVar(&holdingsPath, "holdings", "", "Path to holdings YAML file")
	_ = cmd.MarkFlagRequired("holdings")
	return cmd
}
