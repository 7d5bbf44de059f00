// Package paper simulates binary-market trading against virtual capital.
package paper

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"btcbot-go/internal/scoring"
)

var (
	// ErrPositionOpen rejects an open while a position already exists.
	ErrPositionOpen = errors.New("position already open")
	// ErrNoOpenPosition rejects settle/expire while flat.
	ErrNoOpenPosition = errors.New("no open position")
	// ErrInsufficientBalance rejects stakes the cash balance cannot cover.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Side is the binary-market outcome a position is long.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Outcome classifies a closed trade in the ledger.
type Outcome string

const (
	OutcomeWin              Outcome = "WIN"
	OutcomeLoss             Outcome = "LOSS"
	OutcomeExpiredUnsettled Outcome = "EXPIRED_UNSETTLED"
)

// Position is the single live holding of the simulator.
type Position struct {
	ID             string    `json:"id"`
	Side           Side      `json:"side"`
	EntryPrice     float64   `json:"entry_price"`
	SizeUSD        float64   `json:"size_usd"`
	OpenedAt       time.Time `json:"opened_at"`
	MarketID       string    `json:"market_id"`
	MarketQuestion string    `json:"market_question,omitempty"`
	TokenID        string    `json:"token_id,omitempty"`
}

// Trade is one immutable ledger entry: a position snapshot plus its resolution.
type Trade struct {
	Position
	ExitPrice float64   `json:"exit_price"`
	PnLUSD    float64   `json:"pnl_usd"`
	PnLPct    float64   `json:"pnl_pct"`
	ClosedAt  time.Time `json:"closed_at"`
	Outcome   Outcome   `json:"outcome"`
}

// PortfolioState is the cumulative account aggregate. The cash balance moves
// only at settlement, so CashBalance == InitialBalance + RealizedPnL holds at
// every point in time.
type PortfolioState struct {
	InitialBalance float64   `json:"initial_balance"`
	CashBalance    float64   `json:"cash_balance"`
	RealizedPnL    float64   `json:"realized_pnl"`
	TradeCount     int       `json:"trade_count"`
	WinCount       int       `json:"win_count"`
	OpenPosition   *Position `json:"open_position,omitempty"`
}

// WinRate is the share of recorded trades closed at a profit.
func (s PortfolioState) WinRate() float64 {
	if s.TradeCount == 0 {
		return 0
	}
	return float64(s.WinCount) / float64(s.TradeCount)
}

// Trader runs the FLAT -> OPEN -> SETTLED -> FLAT position machine. All
// operations appear atomic to concurrent readers; every mutation persists
// the updated state (and ledger entry, when one is produced) before returning.
type Trader struct {
	mu    sync.Mutex
	log   zerolog.Logger
	store *Store
	state PortfolioState
	now   func() time.Time
}

// NewTrader builds a trader with the given bankroll, reloading persisted state
// (including a still-open position) when the store holds a prior snapshot.
func NewTrader(startingCash float64, store *Store, log zerolog.Logger) (*Trader, error) {
	t := &Trader{
		log:   log,
		store: store,
		state: PortfolioState{InitialBalance: startingCash, CashBalance: startingCash},
		now:   time.Now,
	}
	if store != nil {
		st, ok, err := store.LoadState()
		if err != nil {
			return nil, fmt.Errorf("load portfolio: %w", err)
		}
		if ok {
			t.state = st
			log.Info().
				Float64("cash", st.CashBalance).
				Int("trades", st.TradeCount).
				Bool("open_position", st.OpenPosition != nil).
				Msg("portfolio restored")
		}
	}
	return t, nil
}

// HasOpen reports whether a position is currently held.
func (t *Trader) HasOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.OpenPosition != nil
}

// State returns a copy of the portfolio aggregate.
func (t *Trader) State() PortfolioState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state
	if st.OpenPosition != nil {
		pos := *st.OpenPosition
		st.OpenPosition = &pos
	}
	return st
}

// Open reserves the stake and records a position long YES for an UP signal,
// NO for DOWN. The stake is locked, not spent: cash does not move until
// settlement. Fails with ErrPositionOpen when not flat.
func (t *Trader) Open(direction scoring.Direction, entryPrice, sizeUSD float64, marketID, question, tokenID string) (Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.OpenPosition != nil {
		return Position{}, ErrPositionOpen
	}
	if direction == scoring.DirectionNeutral {
		return Position{}, fmt.Errorf("cannot open a position on a neutral signal")
	}
	if entryPrice <= 0 || entryPrice >= 1 {
		return Position{}, fmt.Errorf("entry price %.4f outside (0,1)", entryPrice)
	}
	if sizeUSD <= 0 {
		return Position{}, fmt.Errorf("trade size %.2f must be positive", sizeUSD)
	}
	if sizeUSD > t.state.CashBalance {
		return Position{}, fmt.Errorf("%w: %.2f > %.2f", ErrInsufficientBalance, sizeUSD, t.state.CashBalance)
	}

	side := SideYes
	if direction == scoring.DirectionDown {
		side = SideNo
	}
	pos := Position{
		ID:             uuid.NewString(),
		Side:           side,
		EntryPrice:     entryPrice,
		SizeUSD:        sizeUSD,
		OpenedAt:       t.now().UTC(),
		MarketID:       marketID,
		MarketQuestion: question,
		TokenID:        tokenID,
	}
	t.state.OpenPosition = &pos

	if err := t.persistState(); err != nil {
		t.state.OpenPosition = nil
		return Position{}, err
	}

	t.log.Info().
		Str("id", pos.ID).
		Str("side", string(side)).
		Float64("entry", entryPrice).
		Float64("size", sizeUSD).
		Str("market", marketID).
		Msg("paper position opened")
	return pos, nil
}

// Settle closes the open position against the resolved market outcome using
// share accounting: shares = size/entry, proceeds = shares * payout where
// payout is 1.0 on a matching outcome and 0.0 otherwise.
func (t *Trader) Settle(resolved Side) (Trade, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := t.state.OpenPosition
	if pos == nil {
		return Trade{}, ErrNoOpenPosition
	}

	payout := 0.0
	if resolved == pos.Side {
		payout = 1.0
	}
	shares := pos.SizeUSD / pos.EntryPrice
	proceeds := shares * payout
	pnl := proceeds - pos.SizeUSD

	outcome := OutcomeLoss
	if pnl > 0 {
		outcome = OutcomeWin
	}
	tr := Trade{
		Position:  *pos,
		ExitPrice: payout,
		PnLUSD:    pnl,
		PnLPct:    pnl / pos.SizeUSD * 100,
		ClosedAt:  t.now().UTC(),
		Outcome:   outcome,
	}

	t.state.CashBalance += pnl
	t.state.RealizedPnL += pnl
	t.state.TradeCount++
	if pnl > 0 {
		t.state.WinCount++
	}
	t.state.OpenPosition = nil

	if err := t.persistTrade(tr); err != nil {
		return tr, err
	}

	t.log.Info().
		Str("id", tr.ID).
		Str("outcome", string(outcome)).
		Float64("pnl", pnl).
		Float64("cash", t.state.CashBalance).
		Msg("paper position settled")
	return tr, nil
}

// Expire closes a position whose market never resolved within the operational
// timeout. The stake is returned and the trade is recorded with zero pnl so
// the position is never silently lost.
func (t *Trader) Expire() (Trade, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := t.state.OpenPosition
	if pos == nil {
		return Trade{}, ErrNoOpenPosition
	}

	tr := Trade{
		Position:  *pos,
		ExitPrice: pos.EntryPrice,
		PnLUSD:    0,
		PnLPct:    0,
		ClosedAt:  t.now().UTC(),
		Outcome:   OutcomeExpiredUnsettled,
	}

	t.state.TradeCount++
	t.state.OpenPosition = nil

	if err := t.persistTrade(tr); err != nil {
		return tr, err
	}

	t.log.Warn().Str("id", tr.ID).Str("market", tr.MarketID).Msg("paper position expired unsettled")
	return tr, nil
}

func (t *Trader) persistTrade(tr Trade) error {
	if t.store == nil {
		return nil
	}
	if err := t.store.AppendTrade(tr); err != nil {
		return fmt.Errorf("persist trade: %w", err)
	}
	return t.persistState()
}

func (t *Trader) persistState() error {
	if t.store == nil {
		return nil
	}
	if err := t.store.SaveState(t.state); err != nil {
		return fmt.Errorf("persist portfolio: %w", err)
	}
	return nil
}
