package decision

import (
	"testing"

	"btcbot-go/internal/scoring"
)

func TestDecideExhaustive(t *testing.T) {
	policy := Policy{MinConfidence: 0.6}

	cases := []struct {
		name       string
		direction  scoring.Direction
		confidence float64
		hasOpen    bool
		accept     bool
		reason     RejectReason
	}{
		{"all pass", scoring.DirectionUp, 0.8, false, true, ReasonNone},
		{"down passes too", scoring.DirectionDown, 0.7, false, true, ReasonNone},
		{"exact threshold accepts", scoring.DirectionUp, 0.6, false, true, ReasonNone},
		{"low confidence", scoring.DirectionUp, 0.59, false, false, ReasonLowConf},
		{"neutral", scoring.DirectionNeutral, 0.8, false, false, ReasonNeutral},
		{"neutral and low", scoring.DirectionNeutral, 0.1, false, false, ReasonNeutral},
		{"position open", scoring.DirectionUp, 0.9, true, false, ReasonPositionOpen},
		{"position open dominates neutral", scoring.DirectionNeutral, 0.9, true, false, ReasonPositionOpen},
		{"position open dominates low conf", scoring.DirectionUp, 0.1, true, false, ReasonPositionOpen},
		{"everything wrong", scoring.DirectionNeutral, 0.0, true, false, ReasonPositionOpen},
	}

	for _, tc := range cases {
		sig := scoring.WeightedSignal{Direction: tc.direction, Confidence: tc.confidence}
		got := policy.Decide(sig, tc.hasOpen)
		if got.Accept != tc.accept {
			t.Fatalf("%s: accept=%v, want %v", tc.name, got.Accept, tc.accept)
		}
		if got.Reason != tc.reason {
			t.Fatalf("%s: reason=%q, want %q", tc.name, got.Reason, tc.reason)
		}
	}
}

func TestDecideZeroThresholdStillRejectsNeutral(t *testing.T) {
	policy := Policy{MinConfidence: 0}
	sig := scoring.WeightedSignal{Direction: scoring.DirectionNeutral, Confidence: 0}
	if got := policy.Decide(sig, false); got.Accept {
		t.Fatalf("neutral signal must never trade")
	}
}
