package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"scontrino/internal/cache"
	"scontrino/internal/core"
)

// Provider fetches rate tables from an external rate service and caches them
// per base currency. Rates stay cached for an hour; any fetch failure falls
// back to the fixed table so callers always receive a usable Table.
type Provider struct {
	baseURL string
	client  *http.Client
	cache   *cache.LRUCache[Table]
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

const (
	rateTTL      = time.Hour
	maxBases     = 32
	fetchTimeout = 10 * time.Second
)

// NewProvider creates a Provider for the given rate-service endpoint, e.g.
// "https://api.exchangerate-api.com/v4/latest".
func NewProvider(baseURL string) *Provider {
	return &Provider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: fetchTimeout},
		cache:   cache.NewLRUCache[Table](maxBases, rateTTL),
	}
}

// Rates returns the rate table for the given base currency. The result is
// never nil and errors are never surfaced: a failed fetch logs a warning and
// returns the fixed fallback table.
func (p *Provider) Rates(ctx context.Context, base core.Currency) Table {
	if table, ok := p.cache.Get(string(base)); ok {
		return table
	}

	table, err := p.fetch(ctx, base)
	if err != nil {
		slog.WarnContext(ctx, "Rate fetch failed, using fallback table",
			"base", base, "error", err)
		return Fallback(base)
	}

	p.cache.Set(string(base), table)
	slog.DebugContext(ctx, "Rate table refreshed", "base", base, "entries", len(table))
	return table
}

// Invalidate drops the cached table for a base currency. Used when the
// display currency changes and a fresh table is wanted immediately.
func (p *Provider) Invalidate(base core.Currency) {
	p.cache.Delete(string(base))
}

func (p *Provider) fetch(ctx context.Context, base core.Currency) (Table, error) {
	endpoint := p.baseURL + "/" + url.PathEscape(string(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate service returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rate response for %s has no rates", base)
	}

	table := make(Table, len(body.Rates))
	for code, rate := range body.Rates {
		c := core.Currency(code)
		if c.Validate() != nil {
			continue
		}
		table[c] = rate
	}
	table[base] = 1
	return table, nil
}
