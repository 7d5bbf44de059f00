package indicator

import "math"

// sma returns the simple moving average of the trailing period values.
func sma(values []float64, period int) float64 {
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// stddev returns the population standard deviation of the trailing period values.
func stddev(values []float64, period int, mean float64) float64 {
	sumSq := 0.0
	for _, v := range values[len(values)-period:] {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(period))
}

// emaSeries computes an exponential moving average seeded with the SMA of the
// first period values. The returned slice is aligned with values; entries
// before index period-1 are zero and not meaningful.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period {
		return out
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[period-1] = sum / float64(period)
	alpha := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = out[i-1]*(1-alpha) + values[i]*alpha
	}
	return out
}

// rsiWilder computes the Relative Strength Index over candle-to-candle close
// changes using Wilder's smoothing. Requires len(closes) >= period+1.
func rsiWilder(closes []float64, period int) float64 {
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
