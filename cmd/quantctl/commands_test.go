package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const holdingsYAML = `holdings:
  - symbol: tcs
    name: Tata Consultancy
    quantity: 10
    buy_price: 3000
    current_price: 3300
    sector: IT
  - symbol: INFY
    name: Infosys
    quantity: 20
    buy_price: 1500
    current_price: 1400
    sector: IT
    acquired_at: 2023-01-15
`

const roundTripCSV = `date,open,high,low,close,volume
2024-01-01,10,10,10,10,1000
2024-01-02,10,10,10,10,1000
2024-01-03,10,10,10,10,1000
2024-01-04,10,10,10,10,1000
2024-01-05,13,13,13,13,1000
2024-01-06,16,16,16,16,1000
2024-01-07,16,16,16,16,1000
2024-01-08,14,14,14,14,1000
2024-01-09,14,14,14,14,1000
`

const strategyYAML = `type: sma_crossover
fast_period: 2
slow_period: 3
start_date: 2024-01-01
end_date: 2024-12-31
initial_capital: 10000
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	holdings := writeFile(t, dir, "holdings.yaml", holdingsYAML)

	out, err := execute(t, "analyze", "--holdings", holdings)
	require.NoError(t, err)

	var result struct {
		TotalValue       float64            `json:"total_value"`
		TotalInvested    float64            `json:"total_invested"`
		SectorAllocation map[string]float64 `json:"sector_allocation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.InDelta(t, 61000.0, result.TotalValue, 1e-9)
	assert.InDelta(t, 60000.0, result.TotalInvested, 1e-9)
	assert.InDelta(t, 100.0, result.SectorAllocation["IT"], 1e-9)
}

func TestAnalyzeCommand_EmptyHoldings(t *testing.T) {
	dir := t.TempDir()
	holdings := writeFile(t, dir, "holdings.yaml", "holdings: []\n")

	_, err := execute(t, "analyze", "--holdings", holdings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no holdings")
}

func TestAnalyzeCommand_RequiresHoldingsFlag(t *testing.T) {
	_, err := execute(t, "analyze")
	assert.Error(t, err)
}

func TestRebalanceCommand_Equal(t *testing.T) {
	dir := t.TempDir()
	holdings := writeFile(t, dir, "holdings.yaml", holdingsYAML)

	out, err := execute(t, "rebalance", "--holdings", holdings, "--strategy", "equal", "--threshold", "1")
	require.NoError(t, err)

	var plan struct {
		TargetAllocation map[string]float64 `json:"target_allocation"`
		Recommendations  []struct {
			Symbol string `json:"symbol"`
		} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, map[string]float64{"TCS": 50, "INFY": 50}, plan.TargetAllocation)
	assert.Len(t, plan.Recommendations, 2)
}

func TestRebalanceCommand_Custom(t *testing.T) {
	dir := t.TempDir()
	holdings := writeFile(t, dir, "holdings.yaml", holdingsYAML)
	custom := writeFile(t, dir, "custom.yaml", "allocation:\n  tcs: 70\n  INFY: 30\n")

	out, err := execute(t, "rebalance", "--holdings", holdings, "--strategy", "custom", "--custom", custom)
	require.NoError(t, err)

	var plan struct {
		TargetAllocation map[string]float64 `json:"target_allocation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, map[string]float64{"TCS": 70, "INFY": 30}, plan.TargetAllocation)
}

func TestRebalanceCommand_InvalidStrategy(t *testing.T) {
	dir := t.TempDir()
	holdings := writeFile(t, dir, "holdings.yaml", holdingsYAML)

	_, err := execute(t, "rebalance", "--holdings", holdings, "--strategy", "momentum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rebalancing request")
}

func TestRebalanceCommand_InverseVolatilityNeedsBars(t *testing.T) {
	dir := t.TempDir()
	holdings := writeFile(t, dir, "holdings.yaml", holdingsYAML)

	_, err := execute(t, "rebalance", "--holdings", holdings, "--strategy", "inverse_volatility")
	assert.Error(t, err)
}

func TestBacktestCommand(t *testing.T) {
	dir := t.TempDir()
	strategy := writeFile(t, dir, "strategy.yaml", strategyYAML)
	bars := writeFile(t, dir, "infy.csv", roundTripCSV)
	chart := filepath.Join(dir, "equity.png")

	out, err := execute(t, "backtest", "--config", strategy, "--bars", "infy="+bars, "--chart", chart)
	require.NoError(t, err)

	var result struct {
		FinalCapital float64 `json:"final_capital"`
		TotalTrades  int     `json:"total_trades"`
		Trades       []struct {
			Symbol   string  `json:"symbol"`
			Quantity float64 `json:"quantity"`
		} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.InDelta(t, 10769.0, result.FinalCapital, 1e-9)
	assert.Equal(t, 1, result.TotalTrades)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, "INFY", result.Trades[0].Symbol)
	assert.Equal(t, 769.0, result.Trades[0].Quantity)

	png, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestBacktestCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	strategy := writeFile(t, dir, "strategy.yaml", "type: sma_crossover\ninitial_capital: 10000\nstart_date: 2024-02-01\nend_date: 2024-01-01\n")
	bars := writeFile(t, dir, "infy.csv", roundTripCSV)

	_, err := execute(t, "backtest", "--config", strategy, "--bars", "INFY="+bars)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backtest failed")
}

func TestBacktestCommand_BadBarsSpec(t *testing.T) {
	dir := t.TempDir()
	strategy := writeFile(t, dir, "strategy.yaml", strategyYAML)

	_, err := execute(t, "backtest", "--config", strategy, "--bars", "INFY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYMBOL=path.csv")
}
