package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"btcbot-go/internal/candle"
)

func windowFromCloses(t *testing.T, closes []float64) *candle.Window {
	t.Helper()
	start := time.Unix(0, 0)
	candles := make([]candle.Candle, len(closes))
	for i, c := range closes {
		open := start.Add(time.Duration(i) * 15 * time.Minute)
		candles[i] = candle.Candle{
			OpenTime:  open,
			CloseTime: open.Add(15 * time.Minute),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}
	w, err := candle.NewWindow(candles, 0)
	if err != nil {
		t.Fatalf("building window: %v", err)
	}
	return w
}

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: got %.6f, want %.6f", name, got, want)
	}
}

func TestComputeInsufficientData(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	need := engine.MinCandles()
	if need != 35 {
		t.Fatalf("expected 35 minimum candles for defaults, got %d", need)
	}

	closes := make([]float64, need-1)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	_, err := engine.Compute(windowFromCloses(t, closes))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}

	if _, err := engine.Compute(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for nil window, got %v", err)
	}
}

func TestComputeMonotonicCloses(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	r, err := engine.Compute(windowFromCloses(t, closes))
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	approx(t, "rsi all gains", r.RSI, 100, 1e-9)
	if r.MACDLine <= 0 {
		t.Fatalf("expected positive macd line in an uptrend, got %.4f", r.MACDLine)
	}
	if r.EMAShort <= r.EMALong {
		t.Fatalf("expected short ema above long in an uptrend: %.4f <= %.4f", r.EMAShort, r.EMALong)
	}
	if r.LastClose != 139 || r.PrevClose != 138 {
		t.Fatalf("unexpected close tracking: last=%.2f prev=%.2f", r.LastClose, r.PrevClose)
	}
}

func TestComputeFlatCloses(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 250
	}
	r, err := engine.Compute(windowFromCloses(t, closes))
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	approx(t, "flat macd histogram", r.MACDHistogram, 0, 1e-9)
	approx(t, "flat bb middle", r.BBMiddle, 250, 1e-9)
	approx(t, "flat bb upper", r.BBUpper, 250, 1e-9)
	approx(t, "flat bb lower", r.BBLower, 250, 1e-9)
	approx(t, "flat ema short", r.EMAShort, 250, 1e-9)
	approx(t, "flat ema long", r.EMALong, 250, 1e-9)
}

func TestComputeHandCheckedSmallConfig(t *testing.T) {
	cfg := Config{
		RSIPeriod:  2,
		MACDFast:   2,
		MACDSlow:   3,
		MACDSignal: 2,
		EMAShort:   2,
		EMALong:    3,
		BBPeriod:   3,
		BBStdDev:   2.0,
	}
	engine := NewEngine(cfg)
	if engine.MinCandles() != 5 {
		t.Fatalf("expected minimum 5 candles, got %d", engine.MinCandles())
	}

	r, err := engine.Compute(windowFromCloses(t, []float64{1, 2, 3, 4, 5}))
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	// EMA(2) seeded at sma(1,2)=1.5 then alpha=2/3: 2.5, 3.5, 4.5.
	approx(t, "ema short", r.EMAShort, 4.5, 1e-9)
	approx(t, "prev ema short", r.PrevEMAShort, 3.5, 1e-9)
	// EMA(3) seeded at sma(1,2,3)=2 then alpha=1/2: 3, 4.
	approx(t, "ema long", r.EMALong, 4.0, 1e-9)
	approx(t, "prev ema long", r.PrevEMALong, 3.0, 1e-9)

	// Bollinger over (3,4,5): mean 4, population sigma sqrt(2/3).
	sigma := math.Sqrt(2.0 / 3.0)
	approx(t, "bb middle", r.BBMiddle, 4.0, 1e-9)
	approx(t, "bb upper", r.BBUpper, 4.0+2*sigma, 1e-9)
	approx(t, "bb lower", r.BBLower, 4.0-2*sigma, 1e-9)

	approx(t, "rsi all gains", r.RSI, 100, 1e-9)
}

func TestRSIWilderMixedChanges(t *testing.T) {
	// Diffs +1 and -0.5 seed avgGain=0.5 avgLoss=0.25, rs=2, rsi=66.667.
	got := rsiWilder([]float64{10, 11, 10.5}, 2)
	approx(t, "rsi mixed", got, 100-100.0/3.0, 1e-9)
}

func TestRSIWilderAllLosses(t *testing.T) {
	closes := []float64{100, 99, 98, 97, 96}
	approx(t, "rsi all losses", rsiWilder(closes, 3), 0, 1e-9)
}
