package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fingenie/quantcore/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli carries state shared by all subcommands
type cli struct {
	out      io.Writer
	errOut   io.Writer
	logLevel string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "quantctl",
		Short: "Run quantcore portfolio engines on local files",
		Long: `quantctl runs the portfolio analytics, rebalancing and backtesting
engines over holdings and strategy files in YAML and price bars in CSV.
Results are printed as indented JSON on stdout; logs go to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	root.AddCommand(
		c.newAnalyzeCmd(),
		c.newRebalanceCmd(),
		c.newBacktestCmd(),
	)
	return root
}

func (c *cli) logger() zerolog.Logger {
	return logger.New(logger.Config{
		Level:  c.logLevel,
		Pretty: true,
		Output: c.errOut,
	})
}

// printJSON writes v as indented JSON. Non-finite numbers are reported as an
// error instead of producing invalid output.
func (c *cli) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}
