// Package engine orchestrates one trading cycle: candles to indicators to a
// weighted signal, then the trade decision and its execution.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"btcbot-go/internal/candle"
	"btcbot-go/internal/decision"
	"btcbot-go/internal/execution"
	"btcbot-go/internal/indicator"
	"btcbot-go/internal/market"
	"btcbot-go/internal/metrics"
	"btcbot-go/internal/paper"
	"btcbot-go/internal/scoring"
)

// CandleProvider supplies the rolling candle window.
type CandleProvider interface {
	Candles(ctx context.Context, limit int) (*candle.Window, error)
}

// MarketVenue lists tradable prediction markets and resolves them by id.
type MarketVenue interface {
	ActiveMarkets(ctx context.Context) ([]market.Market, error)
	Market(ctx context.Context, id string) (market.Market, error)
}

// CycleStatus is the terminal state of one RunCycle invocation.
type CycleStatus string

const (
	CycleTraded           CycleStatus = "TRADED"
	CycleSkipped          CycleStatus = "SKIPPED"
	CycleNoMarkets        CycleStatus = "NO_MARKETS"
	CycleNoSuitableMarket CycleStatus = "NO_SUITABLE_MARKET"
	CycleDataError        CycleStatus = "DATA_ERROR"
)

// CycleResult summarizes one cycle for logging and tests.
type CycleResult struct {
	Status     CycleStatus
	Direction  scoring.Direction
	Confidence float64
	Reason     string
	MarketID   string
	TradeID    string
}

// Config carries the per-cycle trading parameters.
type Config struct {
	TradeAmountUSD float64
	// SettleGrace is how long past a market's end date an open position may
	// wait for resolution before it is expired.
	SettleGrace time.Duration
}

// Engine wires the pipeline stages together. One instance drives both the
// signal cycle and settlement checks; it is not safe for concurrent RunCycle
// calls, which the interval loop never makes.
type Engine struct {
	source     CandleProvider
	venue      MarketVenue
	indicators *indicator.Engine
	scorer     *scoring.Scorer
	policy     decision.Policy
	trader     *paper.Trader
	executor   *execution.Executor
	cfg        Config
	log        zerolog.Logger
	now        func() time.Time
}

// New assembles an engine from its stages.
func New(source CandleProvider, venue MarketVenue, indicators *indicator.Engine, scorer *scoring.Scorer, policy decision.Policy, trader *paper.Trader, executor *execution.Executor, cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		source:     source,
		venue:      venue,
		indicators: indicators,
		scorer:     scorer,
		policy:     policy,
		trader:     trader,
		executor:   executor,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// RunCycle executes one full signal cycle. Data failures degrade to a
// DATA_ERROR result with the error attached; the caller logs and waits for
// the next interval rather than crashing.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	window, err := e.source.Candles(ctx, e.indicators.MinCandles())
	if err != nil {
		return e.dataError(fmt.Errorf("fetch candles: %w", err))
	}

	readings, err := e.indicators.Compute(window)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			return e.dataError(fmt.Errorf("compute indicators: %w", err))
		}
		return e.dataError(err)
	}

	sig := e.scorer.Score(readings)
	metrics.SignalsTotal.WithLabelValues(string(sig.Direction)).Inc()
	metrics.SignalConfidence.Set(sig.Confidence)
	e.log.Info().
		Str("direction", string(sig.Direction)).
		Float64("confidence", sig.Confidence).
		Float64("score", sig.RawScore).
		Str("reason", sig.Reason).
		Msg("signal generated")

	result := CycleResult{Direction: sig.Direction, Confidence: sig.Confidence}

	dec := e.policy.Decide(sig, e.trader.HasOpen())
	if !dec.Accept {
		result.Status = CycleSkipped
		result.Reason = string(dec.Reason)
		metrics.CyclesTotal.WithLabelValues(string(CycleSkipped)).Inc()
		e.log.Info().Str("reason", result.Reason).Msg("cycle skipped")
		return result, nil
	}

	markets, err := e.venue.ActiveMarkets(ctx)
	if err != nil {
		return e.dataError(fmt.Errorf("list markets: %w", err))
	}
	if len(markets) == 0 {
		result.Status = CycleNoMarkets
		metrics.CyclesTotal.WithLabelValues(string(CycleNoMarkets)).Inc()
		return result, nil
	}
	best, ok := market.SelectBest(markets, e.now())
	if !ok {
		result.Status = CycleNoSuitableMarket
		metrics.CyclesTotal.WithLabelValues(string(CycleNoSuitableMarket)).Inc()
		return result, nil
	}
	result.MarketID = best.ID

	exec, err := e.executor.Execute(ctx, best, sig, e.cfg.TradeAmountUSD)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues(string(CycleDataError)).Inc()
		result.Status = CycleDataError
		return result, fmt.Errorf("execute trade: %w", err)
	}
	if exec.Status == execution.StatusSkipped {
		result.Status = CycleSkipped
		result.Reason = exec.Reason
		metrics.CyclesTotal.WithLabelValues(string(CycleSkipped)).Inc()
		return result, nil
	}

	result.Status = CycleTraded
	result.TradeID = exec.TradeID
	metrics.CyclesTotal.WithLabelValues(string(CycleTraded)).Inc()
	metrics.CashBalance.Set(e.trader.State().CashBalance)
	return result, nil
}

// CheckSettlement resolves the open position, if any, against the venue:
// settle when the market resolved, expire once it is past its end date plus
// the grace window. Returns the ledger entry produced, or nil when the
// position is still pending.
func (e *Engine) CheckSettlement(ctx context.Context) (*paper.Trade, error) {
	state := e.trader.State()
	pos := state.OpenPosition
	if pos == nil {
		return nil, nil
	}

	m, err := e.venue.Market(ctx, pos.MarketID)
	if err != nil {
		if errors.Is(err, market.ErrMarketNotFound) {
			// The venue no longer knows the market; the stake cannot be
			// recovered any other way.
			return e.expire(pos)
		}
		return nil, fmt.Errorf("lookup market %s: %w", pos.MarketID, err)
	}

	if m.Resolved {
		resolved := paper.SideNo
		if m.Outcome == string(paper.SideYes) {
			resolved = paper.SideYes
		}
		tr, err := e.trader.Settle(resolved)
		if err != nil {
			return nil, fmt.Errorf("settle position: %w", err)
		}
		metrics.TradesTotal.WithLabelValues(string(tr.Outcome)).Inc()
		metrics.CashBalance.Set(e.trader.State().CashBalance)
		return &tr, nil
	}

	if e.now().After(m.EndDate.Add(e.cfg.SettleGrace)) {
		return e.expire(pos)
	}

	e.log.Debug().Str("market", pos.MarketID).Msg("position awaiting resolution")
	return nil, nil
}

func (e *Engine) expire(pos *paper.Position) (*paper.Trade, error) {
	tr, err := e.trader.Expire()
	if err != nil {
		return nil, fmt.Errorf("expire position: %w", err)
	}
	metrics.TradesTotal.WithLabelValues(string(tr.Outcome)).Inc()
	e.log.Warn().Str("market", pos.MarketID).Msg("open position expired without resolution")
	return &tr, nil
}

func (e *Engine) dataError(err error) (CycleResult, error) {
	metrics.CyclesTotal.WithLabelValues(string(CycleDataError)).Inc()
	return CycleResult{Status: CycleDataError}, err
}
