// Package exchange hosts candle sources for the price venue.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"btcbot-go/internal/candle"
)

// ErrDataUnavailable reports an upstream fetch failure. Callers must skip the
// cycle rather than trade on stale or absent data.
var ErrDataUnavailable = errors.New("market data unavailable")

const (
	// ProviderStub emits deterministic synthetic candles (tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance fetches klines over the Binance REST API per cycle.
	ProviderBinance = "binance"
	// ProviderBinanceStream maintains a rolling window from the Binance
	// kline websocket stream, backfilled over REST at startup.
	ProviderBinanceStream = "binance_ws"
)

const (
	defaultBaseURL     = "https://api.binance.com"
	defaultStreamURL   = "wss://stream.binance.com:9443/ws"
	defaultWindowLimit = 100
)

// CandleSource provides ordered OHLC windows for one symbol and interval.
type CandleSource struct {
	provider    string
	symbol      string
	interval    string
	baseURL     string
	streamURL   string
	windowLimit int
	client      *http.Client
	log         zerolog.Logger

	mu        sync.RWMutex
	window    *candle.Window
	lastPrice float64
}

// Option configures CandleSource construction parameters.
type Option func(*CandleSource)

// WithBaseURL overrides the REST endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(s *CandleSource) {
		if url != "" {
			s.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithStreamURL overrides the websocket endpoint.
func WithStreamURL(url string) Option {
	return func(s *CandleSource) {
		if url != "" {
			s.streamURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *CandleSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithWindowLimit caps the rolling window held by the stream provider.
func WithWindowLimit(n int) Option {
	return func(s *CandleSource) {
		if n > 0 {
			s.windowLimit = n
		}
	}
}

// NewCandleSource constructs a source backed by the requested provider.
func NewCandleSource(provider, symbol, interval string, log zerolog.Logger, opts ...Option) *CandleSource {
	if provider == "" {
		provider = ProviderStub
	}
	s := &CandleSource{
		provider:    strings.ToLower(provider),
		symbol:      strings.ToUpper(symbol),
		interval:    interval,
		baseURL:     defaultBaseURL,
		streamURL:   defaultStreamURL,
		windowLimit: defaultWindowLimit,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Candles returns an ordered window of the most recent candles, newest last.
// Fails with ErrDataUnavailable when the provider cannot deliver.
func (s *CandleSource) Candles(ctx context.Context, limit int) (*candle.Window, error) {
	switch s.provider {
	case ProviderBinance:
		return s.fetchKlines(ctx, limit)
	case ProviderBinanceStream:
		return s.streamWindow(limit)
	default:
		return s.stubWindow(limit)
	}
}

// CurrentPrice returns the latest trade price for the symbol.
func (s *CandleSource) CurrentPrice(ctx context.Context) (float64, error) {
	switch s.provider {
	case ProviderBinance:
		return s.fetchTickerPrice(ctx)
	case ProviderBinanceStream:
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.lastPrice <= 0 {
			return 0, ErrDataUnavailable
		}
		return s.lastPrice, nil
	default:
		w, err := s.stubWindow(1)
		if err != nil {
			return 0, err
		}
		last, _ := w.Last()
		return last.Close, nil
	}
}

// Run drives the websocket providers; it returns immediately for the rest.
func (s *CandleSource) Run(ctx context.Context) error {
	if s.provider != ProviderBinanceStream {
		return nil
	}
	return s.runStream(ctx)
}

func (s *CandleSource) streamWindow(limit int) (*candle.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.window == nil || s.window.Len() == 0 {
		return nil, fmt.Errorf("%w: stream window not warmed up", ErrDataUnavailable)
	}
	candles := s.window.Candles()
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candle.NewWindow(candles, limit)
}

// stubWindow generates a deterministic synthetic series: a gentle sine ripple
// on a slow drift. Prices depend only on candle index, times end at the
// current interval boundary.
func (s *CandleSource) stubWindow(limit int) (*candle.Window, error) {
	if limit <= 0 {
		limit = s.windowLimit
	}
	step := intervalDuration(s.interval)
	end := time.Now().UTC().Truncate(step)
	candles := make([]candle.Candle, limit)
	for i := 0; i < limit; i++ {
		idx := float64(i)
		base := 50000 + 20*idx + 150*math.Sin(idx/6)
		open := end.Add(time.Duration(i-limit) * step)
		candles[i] = candle.Candle{
			OpenTime:  open,
			CloseTime: open.Add(step),
			Open:      base,
			High:      base + 25,
			Low:       base - 25,
			Close:     base + 10,
			Volume:    100,
		}
	}
	return candle.NewWindow(candles, limit)
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	default:
		return 15 * time.Minute
	}
}
