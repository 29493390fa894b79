package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/modules/backtesting"
	"github.com/fingenie/quantcore/internal/utils"
	"gopkg.in/yaml.v3"
)

const csvDateLayout = "2006-01-02"

var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

type holdingsFile struct {
	Holdings []domain.Holding `yaml:"holdings"`
}

type allocationFile struct {
	Allocation domain.AllocationMap `yaml:"allocation"`
}

func decodeYAMLFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// loadHoldings reads a `holdings:` list from a YAML file
func loadHoldings(path string) ([]domain.Holding, error) {
	var file holdingsFile
	if err := decodeYAMLFile(path, &file); err != nil {
		return nil, err
	}
	for i := range file.Holdings {
		file.Holdings[i].Symbol = utils.NormalizeSymbol(file.Holdings[i].Symbol)
	}
	return file.Holdings, nil
}

// loadAllocation reads an `allocation:` symbol to percent map from a YAML file
func loadAllocation(path string) (domain.AllocationMap, error) {
	var file allocationFile
	if err := decodeYAMLFile(path, &file); err != nil {
		return nil, err
	}
	out := make(domain.AllocationMap, len(file.Allocation))
	for symbol, pct := range file.Allocation {
		out[utils.NormalizeSymbol(symbol)] = pct
	}
	return out, nil
}

func loadStrategyConfig(path string) (backtesting.StrategyConfig, error) {
	var cfg backtesting.StrategyConfig
	if err := decodeYAMLFile(path, &cfg); err != nil {
		return backtesting.StrategyConfig{}, err
	}
	return cfg, nil
}

// loadBarSpecs loads SYMBOL=path pairs in the given order
func loadBarSpecs(specs []string) ([]domain.SymbolSeries, error) {
	series := make([]domain.SymbolSeries, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		symbol, path, ok := strings.Cut(spec, "=")
		symbol = utils.NormalizeSymbol(symbol)
		if !ok || symbol == "" || path == "" {
			return nil, fmt.Errorf("invalid --bars value %q, want SYMBOL=path.csv", spec)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("duplicate --bars symbol %s", symbol)
		}
		seen[symbol] = true

		bars, err := loadBarsCSV(path)
		if err != nil {
			return nil, err
		}
		series = append(series, domain.SymbolSeries{Symbol: symbol, Bars: bars})
	}
	return series, nil
}

// loadBarsCSV reads date,open,high,low,close,volume rows and returns them in
// ascending date order. Duplicate dates are rejected.
func loadBarsCSV(path string) ([]domain.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return parseBarsCSV(f, path)
}

func parseBarsCSV(r io.Reader, name string) ([]domain.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}
	for i, col := range csvHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return nil, fmt.Errorf("%s: unexpected header %v, want %v", name, header, csvHeader)
		}
	}

	var bars []domain.PriceBar
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		bar, err := parseBarRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	for i := 1; i < len(bars); i++ {
		if bars[i].Date.Equal(bars[i-1].Date) {
			return nil, fmt.Errorf("%s: duplicate date %s", name, bars[i].Date.Format(csvDateLayout))
		}
	}
	return bars, nil
}

func parseBarRecord(record []string) (domain.PriceBar, error) {
	date, err := time.Parse(csvDateLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("invalid date %q", record[0])
	}

	values := make([]float64, len(record)-1)
	for i, raw := range record[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("invalid %s %q", csvHeader[i+1], raw)
		}
		values[i] = v
	}

	return domain.PriceBar{
		Date:   date,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

// fileHistory serves bars loaded from CSV files. With clip unset the whole
// file is returned regardless of the requested window.
type fileHistory struct {
	series map[string][]domain.PriceBar
	clip   bool
}

func newFileHistory(series []domain.SymbolSeries, clip bool) *fileHistory {
	h := &fileHistory{series: make(map[string][]domain.PriceBar, len(series)), clip: clip}
	for _, s := range series {
		h.series[s.Symbol] = s.Bars
	}
	return h
}

func (h *fileHistory) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	bars, ok := h.series[utils.NormalizeSymbol(symbol)]
	if !ok {
		return nil, fmt.Errorf("no --bars file for %s", symbol)
	}
	if !h.clip {
		return bars, nil
	}
	out := make([]domain.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func writeEquityChart(path string, run *backtesting.RunResult) error {
	png, err := backtesting.RenderEquityCurve(run.Config.StartDate, &run.Result)
	if err != nil {
		return fmt.Errorf("failed to render equity chart: %w", err)
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
