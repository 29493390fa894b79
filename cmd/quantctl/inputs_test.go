package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBarsCSV(t *testing.T) {
	input := `date,open,high,low,close,volume
2024-01-03,11,12,10,11.5,300
2024-01-02,10,11,9,10.5,200
`
	bars, err := parseBarsCSV(strings.NewReader(input), "test.csv")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, domain.PriceBar{
		Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 11, High: 12, Low: 10, Close: 11.5, Volume: 300,
	}, bars[1])
}

func TestParseBarsCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "wrong header",
			input:   "day,open,high,low,close,volume\n",
			wantErr: "unexpected header",
		},
		{
			name:    "bad date",
			input:   "date,open,high,low,close,volume\n01/02/2024,1,1,1,1,1\n",
			wantErr: "line 2: invalid date",
		},
		{
			name:    "bad number",
			input:   "date,open,high,low,close,volume\n2024-01-02,1,1,1,x,1\n",
			wantErr: "invalid close",
		},
		{
			name:    "duplicate date",
			input:   "date,open,high,low,close,volume\n2024-01-02,1,1,1,1,1\n2024-01-02,2,2,2,2,2\n",
			wantErr: "duplicate date 2024-01-02",
		},
		{
			name:    "missing column",
			input:   "date,open,high,low,close,volume\n2024-01-02,1,1,1,1\n",
			wantErr: "wrong number of fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseBarsCSV(strings.NewReader(tt.input), "test.csv")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFileHistory_GetBars(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	series := []domain.SymbolSeries{{
		Symbol: "TCS",
		Bars:   []domain.PriceBar{{Date: day(1), Close: 1}, {Date: day(2), Close: 2}, {Date: day(3), Close: 3}},
	}}

	clipped := newFileHistory(series, true)
	bars, err := clipped.GetBars(context.Background(), "tcs", day(2), day(3))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2.0, bars[0].Close)

	whole := newFileHistory(series, false)
	bars, err = whole.GetBars(context.Background(), "TCS", day(10), day(20))
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	_, err = whole.GetBars(context.Background(), "INFY", day(1), day(3))
	assert.Error(t, err)
}
