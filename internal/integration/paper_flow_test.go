package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"btcbot-go/internal/decision"
	"btcbot-go/internal/engine"
	"btcbot-go/internal/exchange"
	"btcbot-go/internal/execution"
	"btcbot-go/internal/indicator"
	"btcbot-go/internal/market"
	"btcbot-go/internal/paper"
	"btcbot-go/internal/scoring"
)

// klineServer serves Binance-shaped kline rows with monotonically rising
// closes, which pins RSI at 100 and makes the signal deterministic.
func klineServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			http.NotFound(w, r)
			return
		}
		start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		rows := make([][]any, n)
		for i := 0; i < n; i++ {
			open := start.Add(time.Duration(i) * 15 * time.Minute)
			px := 50000.0 + float64(i)*25
			rows[i] = []any{
				open.UnixMilli(),
				fmt.Sprintf("%.2f", px-10),
				fmt.Sprintf("%.2f", px+10),
				fmt.Sprintf("%.2f", px-20),
				fmt.Sprintf("%.2f", px),
				"120.5",
				open.Add(15*time.Minute).UnixMilli() - 1,
			}
		}
		if err := json.NewEncoder(w).Encode(rows); err != nil {
			t.Errorf("encode klines: %v", err)
		}
	}))
}

// venueServer is a tiny prediction-market API whose single market can be
// flipped to resolved mid-test.
type venueServer struct {
	mu     sync.Mutex
	market market.Market
	srv    *httptest.Server
}

func newVenueServer(t *testing.T, m market.Market) *venueServer {
	t.Helper()
	v := &venueServer{market: m}
	v.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		current := v.market
		v.mu.Unlock()

		switch {
		case r.URL.Path == "/markets":
			_ = json.NewEncoder(w).Encode([]market.Market{current})
		case strings.HasPrefix(r.URL.Path, "/markets/"):
			if strings.TrimPrefix(r.URL.Path, "/markets/") != current.ID {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(current)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(v.srv.Close)
	return v
}

func (v *venueServer) resolve(outcome string) {
	v.mu.Lock()
	v.market.Resolved = true
	v.market.Outcome = outcome
	v.mu.Unlock()
}

func TestPaperFlowOpensAndSettles(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	klines := klineServer(t, 40)
	defer klines.Close()

	m := market.Market{
		ID:         "btc-3pm",
		Question:   "Bitcoin Up or Down - 3PM ET",
		YesTokenID: "tok-yes",
		NoTokenID:  "tok-no",
		YesPrice:   0.48,
		NoPrice:    0.52,
		Volume:     25000,
		Liquidity:  8000,
		EndDate:    time.Now().Add(45 * time.Minute),
	}
	venue := newVenueServer(t, m)

	source := exchange.NewCandleSource(
		exchange.ProviderBinance, "BTCUSDT", "15m", zerolog.Nop(),
		exchange.WithBaseURL(klines.URL),
	)
	discovery := market.NewDiscovery(venue.srv.URL, []string{"bitcoin up or down"}, zerolog.Nop())

	store, err := paper.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	trader, err := paper.NewTrader(1000, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("new trader: %v", err)
	}

	exec := execution.NewExecutor(execution.ModePaper, trader, nil, 96, zerolog.Nop())
	eng := engine.New(
		source,
		discovery,
		indicator.NewEngine(indicator.DefaultConfig()),
		scoring.NewScorer(scoring.Weights{RSI: 1}, scoring.DefaultRSIThresholds()),
		decision.Policy{MinConfidence: 0.6},
		trader,
		exec,
		engine.Config{TradeAmountUSD: 10, SettleGrace: time.Hour},
		zerolog.Nop(),
	)

	res, err := eng.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}
	if res.Status != engine.CycleTraded {
		t.Fatalf("cycle status = %s, want %s (reason %s)", res.Status, engine.CycleTraded, res.Reason)
	}
	if res.Direction != scoring.DirectionDown {
		t.Fatalf("direction = %s, want DOWN on an overbought market", res.Direction)
	}
	pos := trader.State().OpenPosition
	if pos == nil {
		t.Fatal("expected an open position")
	}
	if pos.Side != paper.SideNo || pos.EntryPrice != 0.52 || pos.MarketID != "btc-3pm" {
		t.Fatalf("unexpected position: %+v", pos)
	}

	// While the market is live the position stays pending.
	if tr, err := eng.CheckSettlement(ctx); err != nil || tr != nil {
		t.Fatalf("premature settlement: tr=%+v err=%v", tr, err)
	}

	venue.resolve("NO")
	tr, err := eng.CheckSettlement(ctx)
	if err != nil {
		t.Fatalf("CheckSettlement returned error: %v", err)
	}
	if tr == nil || tr.Outcome != paper.OutcomeWin {
		t.Fatalf("got %+v, want a WIN settlement", tr)
	}

	state := trader.State()
	if state.OpenPosition != nil {
		t.Fatal("position should be closed")
	}
	if got, want := state.CashBalance, state.InitialBalance+state.RealizedPnL; got != want {
		t.Fatalf("cash = %v, want initial+realized = %v", got, want)
	}
	wantPnL := 10.0/0.52 - 10.0
	if diff := state.RealizedPnL - wantPnL; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("realized pnl = %v, want %v", state.RealizedPnL, wantPnL)
	}

	ledger, err := store.Trades()
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if len(ledger) != 1 || ledger[0].Outcome != paper.OutcomeWin {
		t.Fatalf("unexpected ledger: %+v", ledger)
	}
}
