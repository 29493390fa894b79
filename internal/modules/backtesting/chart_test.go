package backtesting

import (
	"bytes"
	"testing"

	testhelpers "github.com/fingenie/quantcore/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEquityCurve(t *testing.T) {
	result := run(t, smaConfig(), series("AAA", roundTrip), series("BBB", roundTrip))

	png, err := RenderEquityCurve(testhelpers.SeriesStart, result)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestRenderEquityCurve_NoTrades(t *testing.T) {
	result := run(t, smaConfig(), series("FLAT", testhelpers.FlatCloses(30, 100)))

	_, err := RenderEquityCurve(testhelpers.SeriesStart, result)
	assert.ErrorIs(t, err, ErrNoEquityCurve)
}
