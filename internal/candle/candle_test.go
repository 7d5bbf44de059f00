package candle

import (
	"testing"
	"time"
)

func makeCandles(n int, start time.Time) []Candle {
	out := make([]Candle, n)
	for i := range out {
		open := start.Add(time.Duration(i) * 15 * time.Minute)
		out[i] = Candle{
			OpenTime:  open,
			CloseTime: open.Add(15 * time.Minute),
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100 + float64(i),
			Volume:    10,
		}
	}
	return out
}

func TestNewWindowOrdering(t *testing.T) {
	candles := makeCandles(5, time.Unix(0, 0))
	w, err := NewWindow(candles, 0)
	if err != nil {
		t.Fatalf("NewWindow returned error: %v", err)
	}
	if w.Len() != 5 {
		t.Fatalf("expected 5 candles, got %d", w.Len())
	}
	last, ok := w.Last()
	if !ok || last.Close != 104 {
		t.Fatalf("unexpected last candle: %+v", last)
	}
}

func TestNewWindowRejectsDuplicateCloseTime(t *testing.T) {
	candles := makeCandles(2, time.Unix(0, 0))
	candles[1].CloseTime = candles[0].CloseTime
	candles[1].OpenTime = candles[0].OpenTime
	if _, err := NewWindow(candles, 0); err == nil {
		t.Fatalf("expected error for duplicate close time")
	}
}

func TestNewWindowRejectsOutOfOrder(t *testing.T) {
	candles := makeCandles(3, time.Unix(0, 0))
	candles[1], candles[2] = candles[2], candles[1]
	if _, err := NewWindow(candles, 0); err == nil {
		t.Fatalf("expected error for out-of-order candles")
	}
}

func TestWindowCapDropsOldest(t *testing.T) {
	candles := makeCandles(10, time.Unix(0, 0))
	w, err := NewWindow(candles, 4)
	if err != nil {
		t.Fatalf("NewWindow returned error: %v", err)
	}
	if w.Len() != 4 {
		t.Fatalf("expected capped length 4, got %d", w.Len())
	}
	closes := w.Closes()
	if closes[0] != 106 || closes[3] != 109 {
		t.Fatalf("expected oldest candles dropped, got %v", closes)
	}
}

func TestCandleValidate(t *testing.T) {
	c := Candle{OpenTime: time.Unix(100, 0), CloseTime: time.Unix(100, 0)}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for close time equal to open time")
	}
}
