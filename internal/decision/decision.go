// Package decision applies the trade/no-trade policy to a weighted signal.
package decision

import "btcbot-go/internal/scoring"

// RejectReason explains why a cycle produced no trade.
type RejectReason string

const (
	ReasonNone         RejectReason = ""
	ReasonPositionOpen RejectReason = "POSITION_ALREADY_OPEN"
	ReasonNeutral      RejectReason = "NEUTRAL_SIGNAL"
	ReasonLowConf      RejectReason = "LOW_CONFIDENCE"
)

// Decision is the policy outcome for one cycle.
type Decision struct {
	Accept bool
	Reason RejectReason
}

// Policy gates trades on a confidence threshold and the single-position rule.
// Decide is pure; the threshold is compared boundary-inclusive, so confidence
// exactly at the threshold is accepted.
type Policy struct {
	MinConfidence float64
}

// Decide accepts iff the signal is directional, meets the threshold, and no
// position is currently open. A signal arriving while a position is open is
// ignored until settlement, so that check dominates the others.
func (p Policy) Decide(sig scoring.WeightedSignal, hasOpenPosition bool) Decision {
	switch {
	case hasOpenPosition:
		return Decision{Reason: ReasonPositionOpen}
	case sig.Direction == scoring.DirectionNeutral:
		return Decision{Reason: ReasonNeutral}
	case sig.Confidence < p.MinConfidence:
		return Decision{Reason: ReasonLowConf}
	default:
		return Decision{Accept: true}
	}
}
