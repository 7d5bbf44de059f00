package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrMarketNotFound reports a resolution lookup for an unknown market id.
var ErrMarketNotFound = errors.New("market not found")

// Discovery queries the venue's market API for active candidates and
// resolution status.
type Discovery struct {
	client   *http.Client
	baseURL  string
	keywords []string
	log      zerolog.Logger
}

// NewDiscovery builds a discovery client. Keywords filter candidate markets
// by question text; an empty list accepts everything the venue returns.
func NewDiscovery(baseURL string, keywords []string, log zerolog.Logger) *Discovery {
	return &Discovery{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		keywords: append([]string(nil), keywords...),
		log:      log,
	}
}

// ActiveMarkets lists open, keyword-matching markets sorted by liquidity,
// highest first.
func (d *Discovery) ActiveMarkets(ctx context.Context) ([]Market, error) {
	query := url.Values{}
	query.Set("closed", "false")
	query.Set("limit", "100")

	var payload []Market
	if err := d.getJSON(ctx, "/markets?"+query.Encode(), &payload); err != nil {
		return nil, err
	}

	out := make([]Market, 0, len(payload))
	for _, m := range payload {
		if m.Resolved || m.ID == "" || m.YesTokenID == "" || m.NoTokenID == "" {
			continue
		}
		if !d.matches(m.Question) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Liquidity > out[j].Liquidity })
	d.log.Debug().Int("candidates", len(out)).Msg("active markets discovered")
	return out, nil
}

// Market fetches one market by id, used for settlement matching.
func (d *Discovery) Market(ctx context.Context, id string) (Market, error) {
	var m Market
	if err := d.getJSON(ctx, "/markets/"+url.PathEscape(id), &m); err != nil {
		return Market{}, err
	}
	if m.ID == "" {
		return Market{}, fmt.Errorf("%w: %s", ErrMarketNotFound, id)
	}
	return m, nil
}

func (d *Discovery) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build venue request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("query venue: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrMarketNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("venue status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode venue response: %w", err)
	}
	return nil
}

func (d *Discovery) matches(question string) bool {
	if len(d.keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(question)
	for _, kw := range d.keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
