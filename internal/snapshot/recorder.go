// Package snapshot records point-in-time company analyses on NSE trading
// days and serves the latest one back.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/nsepulse/internal/domain/dto"
	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/service"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/storage"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// Version tags the layout of the stored snapshot data.
const Version = "1"

const maxParallel = 8

// Source is the subset of the market service a recording needs.
type Source interface {
	CompanyInfo(ctx context.Context, symbol string) (models.CompanyInfo, error)
	Overview(ctx context.Context, symbol string) (service.Aggregated, error)
	Prices(ctx context.Context, symbol, period, interval string) (models.PriceSeries, error)
}

// Summary counts what one Run did.
type Summary struct {
	Recorded int
	Skipped  int
	Failed   int
}

// Recorder stores overview snapshots and refreshes price history.
type Recorder struct {
	src       Source
	companies storage.CompanyRepository
	prices    storage.PriceRepository
	snaps     storage.SnapshotRepository

	parallel int
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithParallel bounds how many symbols are recorded at once (1..8).
func WithParallel(n int) Option { return func(r *Recorder) { r.parallel = n } }

// WithLocation sets the exchange timezone used to pick the trading date.
func WithLocation(loc *time.Location) Option { return func(r *Recorder) { r.loc = loc } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(r *Recorder) { r.now = now } }

func WithLogger(l zerolog.Logger) Option { return func(r *Recorder) { r.log = l } }

func NewRecorder(src Source, companies storage.CompanyRepository, prices storage.PriceRepository, snaps storage.SnapshotRepository, opts ...Option) *Recorder {
	r := &Recorder{
		src:       src,
		companies: companies,
		prices:    prices,
		snaps:     snaps,
		loc:       IST,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.parallel <= 0 {
		r.parallel = min(maxParallel, runtime.NumCPU())
	}
	r.parallel = min(r.parallel, maxParallel)
	return r
}

// TradingDate is the date snapshots recorded now are filed under.
func (r *Recorder) TradingDate() time.Time {
	return LastTradingDay(r.now().In(r.loc))
}

// Run records one snapshot per symbol for the current trading date.
//
// Symbols already recorded for that date are skipped unless force is set.
// A failing symbol never stops the others; all failures are returned joined.
func (r *Recorder) Run(ctx context.Context, symbols []string, force bool) (Summary, error) {
	day := r.TradingDate()
	r.log.Info().Int("symbols", len(symbols)).Str("date", day.Format("2006-01-02")).
		Int("max_parallel", r.parallel).Bool("force", force).Msg("snapshot run start")

	var (
		recorded, skipped atomic.Int32
		mu                sync.Mutex
		errs              []error
	)
	var g errgroup.Group
	g.SetLimit(r.parallel)

	for i, raw := range symbols {
		g.Go(func() error {
			start := time.Now()
			skip, err := r.record(ctx, raw, day, force)
			switch {
			case err != nil:
				r.log.Error().Err(err).Str("symbol", raw).Dur("elapsed", time.Since(start)).Msg("snapshot failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", raw, err))
				mu.Unlock()
			case skip:
				skipped.Add(1)
				r.log.Info().Int("idx", i+1).Int("total", len(symbols)).Str("symbol", raw).Bool("skipped", true).Msg("already recorded")
			default:
				recorded.Add(1)
				r.log.Info().Int("idx", i+1).Int("total", len(symbols)).Str("symbol", raw).Dur("elapsed", time.Since(start)).Msg("snapshot recorded")
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Recorded: int(recorded.Load()), Skipped: int(skipped.Load()), Failed: len(errs)}
	r.log.Info().Int("recorded", sum.Recorded).Int("skipped", sum.Skipped).Int("failed", sum.Failed).Msg("snapshot run done")
	return sum, errors.Join(errs...)
}

func (r *Recorder) record(ctx context.Context, raw string, day time.Time, force bool) (bool, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return false, err
	}

	company := &models.Company{Symbol: sym.Canonical, Name: sym.Base()}
	if info, err := r.src.CompanyInfo(ctx, sym.Canonical); err == nil {
		if info.Name != "" {
			company.Name = info.Name
		}
		company.Sector = info.Sector
	} else {
		r.log.Warn().Err(err).Str("symbol", sym.Canonical).Msg("company info unavailable, storing ticker as name")
	}
	if err := r.companies.Upsert(ctx, company); err != nil {
		return false, fmt.Errorf("upsert company: %w", err)
	}

	if !force {
		exists, err := r.snaps.HasSnapshotForDate(ctx, company.ID, models.SnapshotOverview, day)
		if err != nil {
			return false, fmt.Errorf("check snapshot: %w", err)
		}
		if exists {
			return true, nil
		}
	}

	agg, err := r.src.Overview(ctx, sym.Canonical)
	if err != nil {
		return false, err
	}
	resp := dto.NewAggregatedResponse(sym.Canonical, string(sym.Exchange), agg.Results, dto.PresentQuote)
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return false, fmt.Errorf("encode snapshot: %w", err)
	}

	// prices go first: the snapshot row marks the day as done
	series, err := r.src.Prices(ctx, sym.Canonical, service.DefaultPeriod, service.DefaultInterval)
	if err != nil {
		return false, fmt.Errorf("price history: %w", err)
	}
	if err := r.prices.ReplaceRange(ctx, company.ID, series.Points); err != nil {
		return false, fmt.Errorf("store prices: %w", err)
	}

	snap := &models.Snapshot{
		CompanyID: company.ID,
		Kind:      models.SnapshotOverview,
		Version:   Version,
		AsOf:      day,
		Data:      data,
		Sources:   agg.Results.Statuses(),
	}
	if err := r.snaps.Insert(ctx, snap); err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	return false, nil
}

// Latest returns the most recent overview snapshot for raw.
func (r *Recorder) Latest(ctx context.Context, raw string) (*models.Snapshot, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return nil, err
	}
	c, err := r.companies.GetBySymbol(ctx, sym.Canonical)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, source.Errorf(source.NotFound, "snapshot", "latest", "no company %s", sym.Canonical)
	}
	s, err := r.snaps.Latest(ctx, c.ID, models.SnapshotOverview)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, source.Errorf(source.NotFound, "snapshot", "latest", "no snapshot for %s", sym.Canonical)
	}
	return s, nil
}
