package main

import (
	"fmt"

	"github.com/fingenie/quantcore/internal/modules/backtesting"
	"github.com/spf13/cobra"
)

func (c *cli) newBacktestCmd() *cobra.Command {
	var (
		configPath string
		barSpecs   []string
		chartPath  string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a trading strategy over CSV price bars",
		Long: `Replay the strategy described in a YAML file over one or more CSV bar
files. Symbols are processed in flag order against one shared capital pool.

CSV columns: date,open,high,low,close,volume (date as YYYY-MM-DD).

Examples:
  quantctl backtest --config strategy.yaml --bars TCS=tcs.csv
  quantctl backtest --config strategy.yaml --bars TCS=tcs.csv --bars INFY=infy.csv --chart equity.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadStrategyConfig(configPath)
			if err != nil {
				return err
			}
			series, err := loadBarSpecs(barSpecs)
			if err != nil {
				return err
			}

			symbols := make([]string, len(series))
			for i, s := range series {
				symbols[i] = s.Symbol
			}

			svc := backtesting.NewService(newFileHistory(series, true), nil, nil, nil, c.logger())
			run, err := svc.Run(cmd.Context(), backtesting.RunRequest{
				Config:  cfg,
				Symbols: symbols,
			})
			if err != nil {
				return fmt.Errorf("backtest failed: %w", err)
			}

			if chartPath != "" {
				if err := writeEquityChart(chartPath, run); err != nil {
					return err
				}
			}
			return c.printJSON(run.Result)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to strategy YAML file")
	cmd.Flags().StringArrayVar(&barSpecs, "bars", nil, "SYMBOL=path.csv price bars (repeatable)")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Write the equity curve PNG to this path")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("bars")
	return cmd
}
