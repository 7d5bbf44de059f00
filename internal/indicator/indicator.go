// Package indicator computes technical indicator readings from a candle window.
package indicator

import (
	"errors"
	"fmt"

	"btcbot-go/internal/candle"
)

// ErrInsufficientData reports a candle window shorter than the configured lookbacks.
// Callers must treat it as fatal for the cycle and never trade on partial readings.
var ErrInsufficientData = errors.New("insufficient candle data")

// Config carries indicator periods. Validation happens once at startup in the
// config package; the engine assumes positive periods.
type Config struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	EMAShort   int
	EMALong    int
	BBPeriod   int
	BBStdDev   float64
}

// DefaultConfig mirrors the standard 15-minute parameter set.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		EMAShort:   9,
		EMALong:    21,
		BBPeriod:   20,
		BBStdDev:   2.0,
	}
}

// Readings is the full indicator snapshot for one cycle. Previous-candle
// values are carried so the vote layer can detect crossover and momentum
// changes without any lookback of its own.
type Readings struct {
	RSI float64

	MACDLine          float64
	MACDSignal        float64
	MACDHistogram     float64
	PrevMACDHistogram float64

	EMAShort     float64
	EMALong      float64
	PrevEMAShort float64
	PrevEMALong  float64

	BBUpper  float64
	BBMiddle float64
	BBLower  float64

	LastClose float64
	PrevClose float64
}

// Engine evaluates all indicators over an immutable candle window.
// Compute is a pure function of the window; no state survives between cycles.
type Engine struct {
	cfg Config
}

// NewEngine builds an engine for the supplied parameter set.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// MinCandles is the smallest window length for which every indicator
// (including the previous-candle values) is defined.
func (e *Engine) MinCandles() int {
	need := e.cfg.RSIPeriod + 1
	if n := e.cfg.MACDSlow + e.cfg.MACDSignal; n > need {
		need = n
	}
	if n := e.cfg.EMALong + 1; n > need {
		need = n
	}
	if n := e.cfg.BBPeriod; n > need {
		need = n
	}
	return need
}

// Compute evaluates RSI, MACD, EMA pair, and Bollinger Bands over the window.
// Fails with ErrInsufficientData when the window is shorter than MinCandles.
func (e *Engine) Compute(w *candle.Window) (Readings, error) {
	need := e.MinCandles()
	if w == nil || w.Len() < need {
		have := 0
		if w != nil {
			have = w.Len()
		}
		return Readings{}, fmt.Errorf("%w: need %d candles, have %d", ErrInsufficientData, need, have)
	}

	closes := w.Closes()
	n := len(closes)

	var r Readings
	r.LastClose = closes[n-1]
	r.PrevClose = closes[n-2]

	r.RSI = rsiWilder(closes, e.cfg.RSIPeriod)

	fast := emaSeries(closes, e.cfg.MACDFast)
	slow := emaSeries(closes, e.cfg.MACDSlow)
	macdVals := make([]float64, 0, n-e.cfg.MACDSlow+1)
	for i := e.cfg.MACDSlow - 1; i < n; i++ {
		macdVals = append(macdVals, fast[i]-slow[i])
	}
	signalLine := emaSeries(macdVals, e.cfg.MACDSignal)
	last := len(macdVals) - 1
	r.MACDLine = macdVals[last]
	r.MACDSignal = signalLine[last]
	r.MACDHistogram = macdVals[last] - signalLine[last]
	r.PrevMACDHistogram = macdVals[last-1] - signalLine[last-1]

	emaS := emaSeries(closes, e.cfg.EMAShort)
	emaL := emaSeries(closes, e.cfg.EMALong)
	r.EMAShort = emaS[n-1]
	r.EMALong = emaL[n-1]
	r.PrevEMAShort = emaS[n-2]
	r.PrevEMALong = emaL[n-2]

	r.BBMiddle = sma(closes, e.cfg.BBPeriod)
	sigma := stddev(closes, e.cfg.BBPeriod, r.BBMiddle)
	r.BBUpper = r.BBMiddle + e.cfg.BBStdDev*sigma
	r.BBLower = r.BBMiddle - e.cfg.BBStdDev*sigma

	return r, nil
}
