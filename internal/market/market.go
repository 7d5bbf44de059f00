// Package market discovers and ranks prediction markets on the trading venue.
package market

import (
	"math"
	"time"
)

// Market is one binary prediction market with its current quote.
type Market struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	YesTokenID string    `json:"yes_token_id"`
	NoTokenID  string    `json:"no_token_id"`
	YesPrice   float64   `json:"yes_price"`
	NoPrice    float64   `json:"no_price"`
	Volume     float64   `json:"volume"`
	Liquidity  float64   `json:"liquidity"`
	EndDate    time.Time `json:"end_date"`
	Resolved   bool      `json:"resolved"`
	Outcome    string    `json:"outcome,omitempty"` // "YES" or "NO" once resolved
}

// Spread is the quote's deviation from a fully-priced book (YES+NO == 1).
func (m Market) Spread() float64 {
	return math.Abs(m.YesPrice + m.NoPrice - 1.0)
}

// IsLiquid reports whether the spread is tight enough to trade (under 10%).
func (m Market) IsLiquid() bool {
	return m.Spread() < 0.10
}

// SelectBest ranks candidates by liquidity, time to resolution, and volume,
// returning the highest scorer. Markets with spreads of 10% or more, or
// already past their end date, are skipped entirely.
func SelectBest(markets []Market, now time.Time) (Market, bool) {
	best := Market{}
	bestScore := -1
	for _, m := range markets {
		score := 0

		switch spread := m.Spread(); {
		case spread < 0.02:
			score += 3
		case spread < 0.05:
			score += 2
		case spread < 0.10:
			score += 1
		default:
			continue
		}

		hours := m.EndDate.Sub(now).Hours()
		switch {
		case hours <= 0:
			continue
		case hours >= 0.25 && hours <= 1:
			score += 3 // 15min-1h horizon suits interval trading
		case hours > 1 && hours <= 4:
			score += 2
		case hours > 4 && hours <= 24:
			score += 1
		}

		if m.Volume > 10000 {
			score++
		}

		if score > bestScore {
			best = m
			bestScore = score
		}
	}
	return best, bestScore >= 0
}
