package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"scontrino/internal/core"
	"scontrino/internal/fx"
)

// RateRefresher re-warms the exchange-rate cache on a cron schedule so
// dashboard reads stay inside the staleness window without paying fetch
// latency.
type RateRefresher struct {
	rates *fx.Provider
	bases []core.Currency
	cron  *cron.Cron
}

func NewRateRefresher(rates *fx.Provider, bases []core.Currency) *RateRefresher {
	return &RateRefresher{
		rates: rates,
		bases: bases,
		cron:  cron.New(),
	}
}

// Start registers the refresh job and begins the schedule. The schedule
// uses cron syntax, including descriptors like "@hourly".
func (r *RateRefresher) Start(ctx context.Context, schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		r.RefreshAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("register rate refresh schedule %q: %w", schedule, err)
	}

	// Warm the cache immediately rather than waiting for the first tick.
	r.RefreshAll(ctx)

	r.cron.Start()
	slog.InfoContext(ctx, "Rate refresher started",
		"schedule", schedule, "bases", len(r.bases))
	return nil
}

// RefreshAll drops and re-fetches every configured base's table.
func (r *RateRefresher) RefreshAll(ctx context.Context) {
	for _, base := range r.bases {
		r.rates.Invalidate(base)
		table := r.rates.Rates(ctx, base)
		slog.DebugContext(ctx, "Refreshed rate table", "base", base, "entries", len(table))
	}
}

// Stop halts the schedule and waits for a running job to finish.
func (r *RateRefresher) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
}
