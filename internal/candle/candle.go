// Package candle holds the OHLC price history consumed by the indicator engine.
package candle

import (
	"fmt"
	"time"
)

// Candle is one fixed-interval OHLC price summary. Immutable once produced.
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	CloseTime time.Time `json:"close_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Validate checks the structural invariants of a single candle.
func (c Candle) Validate() error {
	if !c.CloseTime.After(c.OpenTime) {
		return fmt.Errorf("candle close time %s not after open time %s", c.CloseTime, c.OpenTime)
	}
	return nil
}

// Window is a bounded ordered candle history, ascending by close time,
// with no duplicate close times.
type Window struct {
	candles []Candle
	limit   int
}

// NewWindow validates ordering and builds a window capped at limit candles
// (zero limit means uncapped). Oldest candles are dropped when over the cap.
func NewWindow(candles []Candle, limit int) (*Window, error) {
	w := &Window{limit: limit}
	for _, c := range candles {
		if err := w.Append(c); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Append adds a candle to the end of the window, enforcing ordering and the cap.
func (w *Window) Append(c Candle) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if n := len(w.candles); n > 0 {
		last := w.candles[n-1]
		if !c.CloseTime.After(last.CloseTime) {
			return fmt.Errorf("candle close time %s not after previous %s", c.CloseTime, last.CloseTime)
		}
	}
	w.candles = append(w.candles, c)
	if w.limit > 0 && len(w.candles) > w.limit {
		w.candles = w.candles[len(w.candles)-w.limit:]
	}
	return nil
}

// Len reports the number of candles currently held.
func (w *Window) Len() int { return len(w.candles) }

// Closes returns the close prices in window order.
func (w *Window) Closes() []float64 {
	out := make([]float64, len(w.candles))
	for i, c := range w.candles {
		out[i] = c.Close
	}
	return out
}

// Last returns the most recent candle.
func (w *Window) Last() (Candle, bool) {
	if len(w.candles) == 0 {
		return Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}

// Candles returns a copy of the held candles.
func (w *Window) Candles() []Candle {
	out := make([]Candle, len(w.candles))
	copy(out, w.candles)
	return out
}
