package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"btcbot-go/internal/candle"
)

type klineEvent struct {
	EventTime int64     `json:"E"`
	Kline     klineData `json:"k"`
}

type klineData struct {
	StartTime int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	Final     bool   `json:"x"`
}

// runStream backfills the rolling window over REST, then keeps it current
// from the kline websocket stream. Reconnects with linear backoff.
func (s *CandleSource) runStream(ctx context.Context) error {
	if s.symbol == "" {
		return fmt.Errorf("stream source requires a symbol")
	}

	if w, err := s.fetchKlines(ctx, s.windowLimit); err != nil {
		s.log.Warn().Err(err).Msg("kline backfill failed, stream starts cold")
	} else {
		s.mu.Lock()
		s.window = w
		if last, ok := w.Last(); ok {
			s.lastPrice = last.Close
		}
		s.mu.Unlock()
	}

	url := fmt.Sprintf("%s/%s@kline_%s", s.streamURL, strings.ToLower(s.symbol), s.interval)
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			s.log.Warn().Err(err).Dur("backoff", backoff).Msg("kline stream dial failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff += time.Second
			}
			continue
		}
		backoff = time.Second
		s.log.Info().Str("url", url).Msg("kline stream connected")

		if err := s.readStream(ctx, conn); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("kline stream read failed, reconnecting")
		}
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *CandleSource) readStream(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var event klineEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			s.log.Debug().Err(err).Msg("skipping unparseable kline event")
			continue
		}
		if err := s.applyKline(event.Kline); err != nil {
			s.log.Debug().Err(err).Msg("skipping kline")
		}
	}
}

// applyKline updates the last price on every event and appends the candle to
// the rolling window once the interval is final.
func (s *CandleSource) applyKline(k klineData) error {
	c, err := parseStreamKline(k)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrice = c.Close
	if !k.Final {
		return nil
	}
	if s.window == nil {
		w, err := candle.NewWindow(nil, s.windowLimit)
		if err != nil {
			return err
		}
		s.window = w
	}
	if last, ok := s.window.Last(); ok && !c.CloseTime.After(last.CloseTime) {
		return nil // duplicate of the backfilled tail
	}
	return s.window.Append(c)
}

func parseStreamKline(k klineData) (candle.Candle, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("parse kline field %q: %v", f, err)
		}
		vals[i] = v
	}
	return candle.Candle{
		OpenTime:  time.UnixMilli(k.StartTime).UTC(),
		CloseTime: time.UnixMilli(k.CloseTime).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}
