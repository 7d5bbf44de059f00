package scoring

import "btcbot-go/internal/indicator"

// Vote is a bounded discrete directional opinion from a single indicator.
type Vote int

const (
	StrongSell Vote = -2
	Sell       Vote = -1
	Neutral    Vote = 0
	Buy        Vote = 1
	StrongBuy  Vote = 2
)

// String names the vote level for reasoning output.
func (v Vote) String() string {
	switch v {
	case StrongSell:
		return "STRONG_SELL"
	case Sell:
		return "SELL"
	case Buy:
		return "BUY"
	case StrongBuy:
		return "STRONG_BUY"
	default:
		return "NEUTRAL"
	}
}

// RSIThresholds controls the vote bands of the RSI oscillator.
type RSIThresholds struct {
	Oversold   float64 // strong buy below this
	BuyBand    float64 // buy below this
	SellBand   float64 // sell above this
	Overbought float64 // strong sell above this
}

// DefaultRSIThresholds returns the standard 30/45/55/70 bands.
func DefaultRSIThresholds() RSIThresholds {
	return RSIThresholds{Oversold: 30, BuyBand: 45, SellBand: 55, Overbought: 70}
}

// rsiVote treats oversold as bullish mean reversion and overbought as bearish.
func rsiVote(value float64, th RSIThresholds) Vote {
	switch {
	case value < th.Oversold:
		return StrongBuy
	case value > th.Overbought:
		return StrongSell
	case value < th.BuyBand:
		return Buy
	case value > th.SellBand:
		return Sell
	default:
		return Neutral
	}
}

// macdVote grades histogram momentum: positive and rising is the strongest
// bullish tier, negative and falling the strongest bearish tier.
func macdVote(histogram, prevHistogram float64) Vote {
	switch {
	case histogram > 0 && histogram > prevHistogram:
		return StrongBuy
	case histogram > 0:
		return Buy
	case histogram < 0 && histogram < prevHistogram:
		return StrongSell
	case histogram < 0:
		return Sell
	default:
		return Neutral
	}
}

// emaVote scores a fresh crossover event at full strength and a held
// short-over-long (or inverse) relation at half strength.
func emaVote(short, long, prevShort, prevLong float64) Vote {
	switch {
	case short > long && prevShort <= prevLong:
		return StrongBuy
	case short < long && prevShort >= prevLong:
		return StrongSell
	case short > long:
		return Buy
	case short < long:
		return Sell
	default:
		return Neutral
	}
}

// bollingerVote fires only on band breaches, mean-reversion style.
func bollingerVote(close, upper, lower float64) Vote {
	switch {
	case close < lower:
		return StrongBuy
	case close > upper:
		return StrongSell
	default:
		return Neutral
	}
}

// votes maps a full reading set to per-indicator votes. It looks only at the
// current reading plus the previous-candle values it carries.
func votes(r indicator.Readings, th RSIThresholds) map[string]Vote {
	return map[string]Vote{
		IndicatorRSI:       rsiVote(r.RSI, th),
		IndicatorMACD:      macdVote(r.MACDHistogram, r.PrevMACDHistogram),
		IndicatorEMACross:  emaVote(r.EMAShort, r.EMALong, r.PrevEMAShort, r.PrevEMALong),
		IndicatorBollinger: bollingerVote(r.LastClose, r.BBUpper, r.BBLower),
	}
}
