// Package scoring turns indicator readings into a weighted directional signal.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"btcbot-go/internal/indicator"
)

// Indicator names used as vote keys and reasoning labels.
const (
	IndicatorRSI       = "rsi"
	IndicatorMACD      = "macd"
	IndicatorEMACross  = "ema_crossover"
	IndicatorBollinger = "bollinger"
)

// Direction is the aggregate trading bias of a cycle.
type Direction string

const (
	DirectionUp      Direction = "UP"
	DirectionDown    Direction = "DOWN"
	DirectionNeutral Direction = "NEUTRAL"
)

// Weights fixes the contribution of each indicator. They must sum to 1.0;
// the config layer validates that at startup.
type Weights struct {
	RSI       float64 `yaml:"rsi" default:"0.25"`
	MACD      float64 `yaml:"macd" default:"0.30"`
	EMACross  float64 `yaml:"ema_crossover" default:"0.25"`
	Bollinger float64 `yaml:"bollinger" default:"0.20"`
}

// Sum totals the weights for validation.
func (w Weights) Sum() float64 {
	return w.RSI + w.MACD + w.EMACross + w.Bollinger
}

// WeightedSignal is the aggregate of all indicator votes for one cycle.
type WeightedSignal struct {
	Direction  Direction
	Confidence float64 // 0..1
	RawScore   float64 // -2..2 weighted vote average
	Votes      map[string]Vote
	Reason     string
}

// Scorer combines weighted votes into a single signal. Score is pure and
// side-effect free.
type Scorer struct {
	weights Weights
	rsi     RSIThresholds
}

// NewScorer builds a scorer from validated weights and RSI bands.
func NewScorer(weights Weights, rsi RSIThresholds) *Scorer {
	return &Scorer{weights: weights, rsi: rsi}
}

// Score maps readings to votes and aggregates them into a signal.
func (s *Scorer) Score(r indicator.Readings) WeightedSignal {
	vs := votes(r, s.rsi)
	sig := s.Aggregate(vs)
	sig.Reason = reason(r, vs)
	return sig
}

// Aggregate averages a vote vector by weight and derives direction and
// confidence. Confidence is |score|/2 since votes are bounded at magnitude 2,
// clamped to [0,1].
func (s *Scorer) Aggregate(vs map[string]Vote) WeightedSignal {
	weighted := float64(vs[IndicatorRSI])*s.weights.RSI +
		float64(vs[IndicatorMACD])*s.weights.MACD +
		float64(vs[IndicatorEMACross])*s.weights.EMACross +
		float64(vs[IndicatorBollinger])*s.weights.Bollinger
	total := s.weights.Sum()
	if total != 0 {
		weighted /= total
	}

	direction := DirectionNeutral
	switch {
	case weighted > 0:
		direction = DirectionUp
	case weighted < 0:
		direction = DirectionDown
	}

	confidence := math.Abs(weighted) / 2.0
	if confidence > 1 {
		confidence = 1
	}

	return WeightedSignal{
		Direction:  direction,
		Confidence: confidence,
		RawScore:   weighted,
		Votes:      vs,
	}
}

// reason renders the per-indicator breakdown for the audit log.
func reason(r indicator.Readings, vs map[string]Vote) string {
	labels := map[string]string{
		IndicatorRSI:       fmt.Sprintf("RSI(%.1f)", r.RSI),
		IndicatorMACD:      "MACD",
		IndicatorEMACross:  "EMA",
		IndicatorBollinger: "BB",
	}
	names := make([]string, 0, len(vs))
	for name := range vs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", labels[name], vs[name]))
	}
	return strings.Join(parts, " | ")
}
