package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/logger"
)

const (
	// defaultLookbackDays is the initial download window for a ticker with
	// no stored history (about three years of sessions).
	defaultLookbackDays = 756

	// delistedAfterDays: a ticker whose last bar is older than this is
	// treated as delisted and soft-deleted.
	delistedAfterDays = 15
)

// SplitsSource is a secondary corporate-action feed. Chart event data
// occasionally lags a day behind the effective date, so the syncer
// cross-checks recent splits here before trusting an empty answer.
type SplitsSource interface {
	FetchRecentSplits(ctx context.Context, since time.Time) ([]contracts.CorporateAction, error)
}

// Syncer keeps per-ticker bar history current against the price provider.
// SSOT: the corporate-action full-reload decision is made here only.
type Syncer struct {
	provider contracts.PriceProvider
	prices   contracts.PriceRepository
	tickers  contracts.TickerRepository
	logger   *logger.Logger

	splits       SplitsSource
	recentSplits map[string]time.Time
}

// NewSyncer creates a new bar syncer.
func NewSyncer(
	provider contracts.PriceProvider,
	prices contracts.PriceRepository,
	tickers contracts.TickerRepository,
	log *logger.Logger,
) *Syncer {
	return &Syncer{
		provider: provider,
		prices:   prices,
		tickers:  tickers,
		logger:   log.WithField("module", "marketdata"),
	}
}

// WithSplitsSource attaches a secondary splits feed.
func (s *Syncer) WithSplitsSource(src SplitsSource) *Syncer {
	s.splits = src
	return s
}

// PrimeSplits loads the secondary splits feed once per run. The cached
// map is read-only afterwards, so concurrent SyncTicker calls are safe.
// A scrape failure is logged and ignored: the primary feed still works.
func (s *Syncer) PrimeSplits(ctx context.Context, since time.Time) {
	if s.splits == nil {
		return
	}
	actions, err := s.splits.FetchRecentSplits(ctx, since)
	if err != nil {
		s.logger.WithError(err).Warn("Secondary splits feed unavailable")
		return
	}

	recent := make(map[string]time.Time, len(actions))
	for _, a := range actions {
		if prev, ok := recent[a.Symbol]; !ok || a.Date.After(prev) {
			recent[a.Symbol] = a.Date
		}
	}
	s.recentSplits = recent
	s.logger.WithField("count", len(recent)).Debug("Primed secondary splits feed")
}

// splitAfter reports a cross-checked split effective after last.
func (s *Syncer) splitAfter(symbol string, last time.Time) bool {
	d, ok := s.recentSplits[symbol]
	return ok && d.After(last)
}

// SyncResult describes what one ticker sync did.
type SyncResult struct {
	Symbol     string
	NewBars    int
	FullReload bool // corporate action found: series was replaced wholesale
	Delisted   bool
}

// SyncTicker brings one ticker's series up to asOf.
//
// A corporate action discovered after the stored history invalidates every
// adjusted close at once, so the answer is always: delete the series and
// reinsert the provider's freshly adjusted one. Incremental appends happen
// only on action-free days.
func (s *Syncer) SyncTicker(ctx context.Context, symbol string, asOf time.Time) (SyncResult, error) {
	result := SyncResult{Symbol: symbol}
	asOf = contracts.Day(asOf)

	last, err := s.prices.LastDate(ctx, symbol)
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		return s.initialLoad(ctx, symbol, asOf)
	case err != nil:
		return result, fmt.Errorf("last date for %s: %w", symbol, err)
	}

	if last.Equal(asOf) {
		s.logger.WithField("symbol", symbol).Debug("Bars already current")
		return result, nil
	}

	actions, err := s.provider.GetCorporateActions(ctx, symbol, last)
	if err != nil {
		return result, fmt.Errorf("corporate actions for %s: %w: %w", symbol, contracts.ErrProviderFailure, err)
	}

	if NeedsFullReload(actions, last) || s.splitAfter(symbol, last) {
		reloaded, err := s.fullReload(ctx, symbol, asOf)
		if err != nil {
			return result, err
		}
		result.NewBars = reloaded
		result.FullReload = true
		return s.finish(ctx, result, asOf)
	}

	bars, err := s.provider.GetDailyBars(ctx, symbol, last.AddDate(0, 0, 1), asOf)
	if err != nil {
		return result, fmt.Errorf("daily bars for %s: %w: %w", symbol, contracts.ErrProviderFailure, err)
	}

	series, err := NewSeries(symbol, bars)
	if err != nil {
		return result, err
	}

	if series.Len() == 0 {
		return s.checkDelisted(ctx, result, last, asOf)
	}

	if err := s.prices.SaveBatch(ctx, series.Bars); err != nil {
		return result, fmt.Errorf("save bars for %s: %w", symbol, err)
	}
	result.NewBars = series.Len()

	return s.finish(ctx, result, asOf)
}

// initialLoad downloads the default lookback window for a new ticker.
func (s *Syncer) initialLoad(ctx context.Context, symbol string, asOf time.Time) (SyncResult, error) {
	result := SyncResult{Symbol: symbol}

	bars, err := s.provider.GetDailyBars(ctx, symbol, asOf.AddDate(0, 0, -defaultLookbackDays), asOf)
	if err != nil {
		return result, fmt.Errorf("initial bars for %s: %w: %w", symbol, contracts.ErrProviderFailure, err)
	}

	series, err := NewSeries(symbol, bars)
	if err != nil {
		return result, err
	}

	if err := s.prices.SaveBatch(ctx, series.Bars); err != nil {
		return result, fmt.Errorf("save bars for %s: %w", symbol, err)
	}

	result.NewBars = series.Len()
	return s.finish(ctx, result, asOf)
}

// fullReload replaces the stored series with a freshly adjusted download.
func (s *Syncer) fullReload(ctx context.Context, symbol string, asOf time.Time) (int, error) {
	s.logger.WithField("symbol", symbol).Info("Corporate action found, reloading full series")

	bars, err := s.provider.GetDailyBars(ctx, symbol, asOf.AddDate(0, 0, -defaultLookbackDays), asOf)
	if err != nil {
		return 0, fmt.Errorf("reload bars for %s: %w: %w", symbol, contracts.ErrProviderFailure, err)
	}

	series, err := NewSeries(symbol, bars)
	if err != nil {
		return 0, err
	}

	if err := s.prices.ReplaceSeries(ctx, symbol, series.Bars); err != nil {
		return 0, fmt.Errorf("replace series for %s: %w", symbol, err)
	}
	return series.Len(), nil
}

// checkDelisted marks a ticker delisted when its history went quiet.
func (s *Syncer) checkDelisted(ctx context.Context, result SyncResult, last, asOf time.Time) (SyncResult, error) {
	if asOf.Sub(last) > delistedAfterDays*24*time.Hour {
		s.logger.WithFields(map[string]interface{}{
			"symbol":   result.Symbol,
			"last_bar": last.Format("2006-01-02"),
		}).Warn("No recent bars, marking delisted")

		if err := s.tickers.MarkDelisted(ctx, result.Symbol); err != nil {
			return result, fmt.Errorf("mark delisted %s: %w", result.Symbol, err)
		}
		result.Delisted = true
	}
	return result, nil
}

func (s *Syncer) finish(ctx context.Context, result SyncResult, asOf time.Time) (SyncResult, error) {
	if err := s.tickers.TouchBarsUpdated(ctx, result.Symbol, asOf); err != nil {
		return result, fmt.Errorf("touch %s: %w", result.Symbol, err)
	}
	return result, nil
}
