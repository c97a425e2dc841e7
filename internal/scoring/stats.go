package scoring

import "math"

// z95 is the two-sided 95% normal quantile.
const z95 = 1.96

// confidenceInterval builds a normal-approximation interval around a
// proportion-like score: margin = z * sqrt(score*(1-score)/n).
// Fewer than two samples yields a zero-width interval.
func confidenceInterval(score float64, n int) Interval {
	if n < 2 {
		return Interval{Lower: score, Upper: score}
	}
	margin := z95 * math.Sqrt(score*(1-score)/float64(n))
	return Interval{
		Lower: math.Max(0, score-margin),
		Upper: math.Min(1, score+margin),
	}
}

// significance runs a one-sample t-statistic of the current score against
// the recent score window. |t| > 2 reports p=0.05 and significant; anything
// else reports p=0.5. This is a deliberately coarse screen, not a full
// t-distribution lookup: it only has to flag scores that clearly break from
// the recent trend.
func significance(score float64, window []float64) (pValue float64, significant bool) {
	if len(window) < 2 {
		return 0.5, false
	}

	mean := 0.0
	for _, x := range window {
		mean += x
	}
	mean /= float64(len(window))

	variance := 0.0
	for _, x := range window {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(window) - 1)
	std := math.Sqrt(variance)

	if std < 1e-9 {
		// degenerate window: flat history, any deviation is a break
		if math.Abs(score-mean) > 1e-9 {
			return 0.05, true
		}
		return 0.5, false
	}

	t := (score - mean) / (std / math.Sqrt(float64(len(window))))
	if math.Abs(t) > 2 {
		return 0.05, true
	}
	return 0.5, false
}
