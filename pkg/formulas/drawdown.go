package formulas

// MaxDrawdownPercent walks an equity curve in order and returns the largest
// peak-to-trough decline as a positive percentage of the peak. The running
// peak starts at start, so a curve that never exceeds its starting value
// still reports losses against it.
func MaxDrawdownPercent(start float64, curve []float64) float64 {
	peak := start
	maxDD := 0.0
	for _, v := range curve {
		if v > peak {
			peak = v
			continue
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
