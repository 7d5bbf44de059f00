package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"btcbot-go/internal/candle"
)

// fetchKlines pulls recent klines over REST and assembles a window.
func (s *CandleSource) fetchKlines(ctx context.Context, limit int) (*candle.Window, error) {
	if limit <= 0 {
		limit = s.windowLimit
	}
	query := url.Values{}
	query.Set("symbol", s.symbol)
	query.Set("interval", s.interval)
	query.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", s.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build klines request: %v", ErrDataUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch klines: %v", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: klines status %d", ErrDataUnavailable, resp.StatusCode)
	}

	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decode klines: %v", ErrDataUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty kline response", ErrDataUnavailable)
	}

	candles := make([]candle.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := parseKlineRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}
		candles = append(candles, c)
	}
	w, err := candle.NewWindow(candles, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return w, nil
}

// parseKlineRow decodes one kline array:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKlineRow(row []any) (candle.Candle, error) {
	if len(row) < 7 {
		return candle.Candle{}, fmt.Errorf("kline row has %d fields, want 7+", len(row))
	}
	openMs, ok := row[0].(float64)
	if !ok {
		return candle.Candle{}, fmt.Errorf("kline open time is not numeric")
	}
	closeMs, ok := row[6].(float64)
	if !ok {
		return candle.Candle{}, fmt.Errorf("kline close time is not numeric")
	}
	prices := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		str, ok := row[i].(string)
		if !ok {
			return candle.Candle{}, fmt.Errorf("kline field %d is not a string", i)
		}
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("kline field %d: %v", i, err)
		}
		prices[i-1] = val
	}
	return candle.Candle{
		OpenTime:  time.UnixMilli(int64(openMs)).UTC(),
		CloseTime: time.UnixMilli(int64(closeMs)).UTC(),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
	}, nil
}

// fetchTickerPrice pulls the latest trade price for the symbol.
func (s *CandleSource) fetchTickerPrice(ctx context.Context) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", s.baseURL, url.QueryEscape(s.symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build ticker request: %v", ErrDataUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch ticker: %v", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: ticker status %d", ErrDataUnavailable, resp.StatusCode)
	}

	var payload struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: decode ticker: %v", ErrDataUnavailable, err)
	}
	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse ticker price: %v", ErrDataUnavailable, err)
	}
	return price, nil
}
