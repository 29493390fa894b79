package main

import (
	"fmt"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/modules/rebalancing"
	"github.com/spf13/cobra"
)

func (c *cli) newRebalanceCmd() *cobra.Command {
	var (
		holdingsPath string
		strategy     string
		customPath   string
		threshold    float64
		barSpecs     []string
	)

	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Generate a rebalancing plan for a holdings file",
		Long: `Derive a target allocation, trade recommendations and tax implications
for the holdings in a YAML file.

Strategies: equal, market_cap, risk_parity, custom, inverse_volatility.
custom needs --custom; inverse_volatility needs --bars for every holding
and uses the whole file as its volatility window.

Examples:
  quantctl rebalance --holdings holdings.yaml --strategy equal
  quantctl rebalance --holdings holdings.yaml --strategy custom --custom custom.yaml --threshold 2
  quantctl rebalance --holdings holdings.yaml --strategy inverse_volatility --bars TCS=tcs.csv --bars INFY=infy.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			holdings, err := loadHoldings(holdingsPath)
			if err != nil {
				return err
			}

			req := rebalancing.PlanRequest{
				Strategy: rebalancing.Strategy(strategy),
				Holdings: holdings,
			}
			if cmd.Flags().Changed("threshold") {
				req.ThresholdPercent = &threshold
			}
			if customPath != "" {
				if req.CustomAllocation, err = loadAllocation(customPath); err != nil {
					return err
				}
			}

			var history domain.PriceHistoryProvider
			if len(barSpecs) > 0 {
				series, err := loadBarSpecs(barSpecs)
				if err != nil {
					return err
				}
				history = newFileHistory(series, false)
			}

			svc := rebalancing.NewService(nil, history, nil, nil, rebalancing.DefaultThresholdPercent, c.logger())
			result, err := svc.Plan(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("rebalancing failed: %w", err)
			}
			return c.printJSON(result.Plan)
		},
	}

	cmd.Flags().StringVar(&holdingsPath, "holdings", "", "Path to holdings YAML file")
	cmd.Flags().StringVar(&strategy, "strategy", string(rebalancing.StrategyEqual), "Target allocation strategy")
	cmd.Flags().StringVar(&customPath, "custom", "", "Path to custom allocation YAML file")
	cmd.Flags().Float64Var(&threshold, "threshold", rebalancing.DefaultThresholdPercent, "Drift threshold in percent")
	cmd.Flags().StringArrayVar(&barSpecs, "bars", nil, "SYMBOL=path.csv price bars (repeatable)")
	_ = cmd.MarkFlagRequired("holdings")
	return cmd
}
