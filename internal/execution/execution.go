// Package execution routes accepted signals to the paper trader or the venue.
package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"btcbot-go/internal/market"
	"btcbot-go/internal/metrics"
	"btcbot-go/internal/paper"
	"btcbot-go/internal/scoring"
)

// Mode selects simulated or real order placement.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// Status classifies the outcome of one execution attempt.
type Status string

const (
	StatusExecuted Status = "EXECUTED"
	StatusSkipped  Status = "SKIPPED"
	StatusFailed   Status = "FAILED"
)

// ReasonDailyLimit marks skips caused by the daily trade cap.
const ReasonDailyLimit = "DAILY_LIMIT_REACHED"

// Order is a placement request against one market token.
type Order struct {
	MarketID  string
	TokenID   string
	Side      paper.Side
	AmountUSD float64
	Price     float64
}

// Result reports what the executor did with an accepted signal.
type Result struct {
	Status    Status
	Mode      Mode
	Reason    string
	TradeID   string
	FillPrice float64
}

// Submitter places real orders on the venue. Live mode only.
type Submitter interface {
	Submit(ctx context.Context, order Order) (fillPrice float64, err error)
}

// LogSubmitter logs order requests instead of sending them; it stands in for
// the venue client until real credentials are wired.
type LogSubmitter struct {
	log zerolog.Logger
}

// NewLogSubmitter wraps a logger for stubbed submissions.
func NewLogSubmitter(log zerolog.Logger) *LogSubmitter { return &LogSubmitter{log: log} }

// Submit logs the order and reports the quoted price as the fill.
func (s *LogSubmitter) Submit(_ context.Context, order Order) (float64, error) {
	s.log.Info().
		Str("market", order.MarketID).
		Str("side", string(order.Side)).
		Float64("amount", order.AmountUSD).
		Float64("px", order.Price).
		Msg("submit order (stub)")
	return order.Price, nil
}

// Executor turns an accepted signal plus a selected market into a position
// (paper) or an order submission (live). It also enforces the daily trade cap.
type Executor struct {
	mode      Mode
	trader    *paper.Trader
	submitter Submitter
	maxDaily  int
	log       zerolog.Logger

	mu    sync.Mutex
	daily int
}

// NewExecutor wires the executor for the configured mode. The trader is
// required in paper mode, the submitter in live mode.
func NewExecutor(mode Mode, trader *paper.Trader, submitter Submitter, maxDaily int, log zerolog.Logger) *Executor {
	return &Executor{mode: mode, trader: trader, submitter: submitter, maxDaily: maxDaily, log: log}
}

// Execute places the trade implied by the signal's direction on the given
// market: UP buys the YES token at its ask, DOWN the NO token.
func (e *Executor) Execute(ctx context.Context, m market.Market, sig scoring.WeightedSignal, amountUSD float64) (Result, error) {
	if !e.allowTrade() {
		return Result{Status: StatusSkipped, Mode: e.mode, Reason: ReasonDailyLimit}, nil
	}

	tokenID, price := m.YesTokenID, m.YesPrice
	side := paper.SideYes
	if sig.Direction == scoring.DirectionDown {
		tokenID, price = m.NoTokenID, m.NoPrice
		side = paper.SideNo
	}

	var result Result
	switch e.mode {
	case ModeLive:
		if e.submitter == nil {
			return Result{Status: StatusFailed, Mode: e.mode}, fmt.Errorf("live mode without a submitter")
		}
		fill, err := e.submitter.Submit(ctx, Order{
			MarketID:  m.ID,
			TokenID:   tokenID,
			Side:      side,
			AmountUSD: amountUSD,
			Price:     price,
		})
		if err != nil {
			e.unwindTrade()
			return Result{Status: StatusFailed, Mode: e.mode}, fmt.Errorf("submit order: %w", err)
		}
		result = Result{Status: StatusExecuted, Mode: e.mode, FillPrice: fill}
	default:
		if e.trader == nil {
			return Result{Status: StatusFailed, Mode: e.mode}, fmt.Errorf("paper mode without a trader")
		}
		pos, err := e.trader.Open(sig.Direction, price, amountUSD, m.ID, m.Question, tokenID)
		if err != nil {
			e.unwindTrade()
			return Result{Status: StatusFailed, Mode: e.mode}, fmt.Errorf("open paper position: %w", err)
		}
		result = Result{Status: StatusExecuted, Mode: e.mode, TradeID: pos.ID, FillPrice: price}
	}

	metrics.OrdersTotal.WithLabelValues(string(side), string(e.mode)).Inc()
	e.log.Info().
		Str("market", m.ID).
		Str("side", string(side)).
		Float64("amount", amountUSD).
		Float64("px", price).
		Str("mode", string(e.mode)).
		Msg("trade executed")
	return result, nil
}

// allowTrade consumes one slot of the daily budget; unwindTrade returns it
// when the attempt fails downstream.
func (e *Executor) allowTrade() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.maxDaily > 0 && e.daily >= e.maxDaily {
		return false
	}
	e.daily++
	return true
}

func (e *Executor) unwindTrade() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.daily > 0 {
		e.daily--
	}
}

// DailyCount reports trades executed since the last reset.
func (e *Executor) DailyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.daily
}

// ResetDailyCount clears the cap at the day boundary.
func (e *Executor) ResetDailyCount() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.daily = 0
}
