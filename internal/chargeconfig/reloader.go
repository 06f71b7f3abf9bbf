package chargeconfig

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shipgrid/backend-import/internal/obs"
	"github.com/shipgrid/backend-import/internal/pricing"
)

// Reloader keeps a TableHolder in sync with a Source.
type Reloader struct {
	Source   Source
	Holder   *pricing.TableHolder
	Interval time.Duration
	Logger   zerolog.Logger
}

// LoadOnce loads the table and swaps it in. Used at startup to fail fast.
func (r *Reloader) LoadOnce(ctx context.Context) error {
	table, err := r.Source.Load(ctx)
	if err != nil {
		obs.ObserveChargeTableReload(r.Source.Name(), "error", 0)
		return err
	}
	r.Holder.Replace(table)
	obs.ObserveChargeTableReload(r.Source.Name(), "success", table.Len())
	r.Logger.Info().
		Str("source", r.Source.Name()).
		Strs("provinces", table.Labels()).
		Msg("charge_table_loaded")
	return nil
}

// Run polls the source until ctx is cancelled. A failed reload keeps the
// current table in place.
func (r *Reloader) Run(ctx context.Context) {
	if r.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.LoadOnce(ctx); err != nil {
				r.Logger.Error().Err(err).Str("source", r.Source.Name()).Msg("charge_table_reload_failed")
			}
		}
	}
}
