package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

const marketsResponse = `[
	{"id":"m1","question":"Will Bitcoin close above $50k?","yes_token_id":"y1","no_token_id":"n1",
	 "yes_price":0.48,"no_price":0.51,"volume":12000,"liquidity":4000,"end_date":"2026-01-01T12:00:00Z"},
	{"id":"m2","question":"Will ETH flip BTC?","yes_token_id":"y2","no_token_id":"n2",
	 "yes_price":0.10,"no_price":0.89,"volume":500,"liquidity":9000,"end_date":"2026-01-01T12:00:00Z"},
	{"id":"m3","question":"Will BTC drop below $40k?","yes_token_id":"","no_token_id":"n3",
	 "yes_price":0.30,"no_price":0.69,"volume":100,"liquidity":100,"end_date":"2026-01-01T12:00:00Z"},
	{"id":"m4","question":"Bitcoin above $60k by Friday?","yes_token_id":"y4","no_token_id":"n4",
	 "yes_price":0.25,"no_price":0.74,"volume":3000,"liquidity":8000,"end_date":"2026-01-01T12:00:00Z"}
]`

func TestActiveMarketsFiltersAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("closed") != "false" {
			t.Errorf("expected closed=false query")
		}
		_, _ = w.Write([]byte(marketsResponse))
	}))
	defer server.Close()

	d := NewDiscovery(server.URL, []string{"bitcoin", "btc"}, zerolog.Nop())
	markets, err := d.ActiveMarkets(context.Background())
	if err != nil {
		t.Fatalf("ActiveMarkets returned error: %v", err)
	}
	// m2 fails the keyword filter, m3 lacks a yes token.
	if len(markets) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(markets))
	}
	if markets[0].ID != "m4" || markets[1].ID != "m1" {
		t.Fatalf("expected liquidity-descending order m4,m1; got %s,%s", markets[0].ID, markets[1].ID)
	}
}

func TestMarketLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/m1":
			_, _ = w.Write([]byte(`{"id":"m1","question":"q","yes_token_id":"y","no_token_id":"n",
				"yes_price":0.0,"no_price":1.0,"resolved":true,"outcome":"NO","end_date":"2026-01-01T12:00:00Z"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	d := NewDiscovery(server.URL, nil, zerolog.Nop())
	m, err := d.Market(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Market returned error: %v", err)
	}
	if !m.Resolved || m.Outcome != "NO" {
		t.Fatalf("unexpected resolution state: %+v", m)
	}

	if _, err := d.Market(context.Background(), "missing"); !errors.Is(err, ErrMarketNotFound) {
		t.Fatalf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestActiveMarketsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDiscovery(server.URL, nil, zerolog.Nop())
	if _, err := d.ActiveMarkets(context.Background()); err == nil {
		t.Fatalf("expected error on 500 response")
	}
}
