package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"

	"github.com/guttosm/nsepulse/internal/aggregate"
	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/service"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/storage"
	"github.com/guttosm/nsepulse/internal/symbol"
)

type fakeSource struct {
	mu        sync.Mutex
	overviews map[string]int
	failSym   string
}

var _ Source = (*fakeSource)(nil)

func (f *fakeSource) CompanyInfo(_ context.Context, sym string) (models.CompanyInfo, error) {
	if sym == "NOINFO.NS" {
		return models.CompanyInfo{}, source.Errorf(source.NotFound, "yahoo", "info", "missing")
	}
	return models.CompanyInfo{Symbol: sym, Name: "Name of " + sym, Sector: null.StringFrom("IT")}, nil
}

func (f *fakeSource) Overview(ctx context.Context, sym string) (service.Aggregated, error) {
	f.mu.Lock()
	if f.overviews == nil {
		f.overviews = map[string]int{}
	}
	f.overviews[sym]++
	f.mu.Unlock()

	g := aggregate.New(ctx, 0)
	aggregate.Go(g, service.CapQuote, func(context.Context) source.Result[models.Quote] {
		return source.OK(models.Quote{Symbol: sym, Price: 110, PreviousClose: null.FloatFrom(100)})
	})
	aggregate.Go(g, service.CapFundamentals, func(context.Context) source.Result[models.FundamentalsSeries] {
		return source.Fail[models.FundamentalsSeries]("screener", "fundamentals", source.Errorf(source.AuthExpired, "screener", "fundamentals", "cookie"))
	})
	return service.Aggregated{Symbol: symbol.MustNormalize(sym), Results: g.Wait()}, nil
}

func (f *fakeSource) Prices(_ context.Context, sym, period, interval string) (models.PriceSeries, error) {
	if sym == f.failSym {
		return models.PriceSeries{}, source.Errorf(source.UpstreamUnavailable, "yahoo", "history", "down")
	}
	return models.PriceSeries{Symbol: sym, Period: period, Interval: interval, Points: []models.PricePoint{
		{Date: "2024-03-27", Close: 100}, {Date: "2024-03-28", Close: 110},
	}}, nil
}

type fakeCompanies struct {
	mu   sync.Mutex
	rows map[string]*models.Company
}

var _ storage.CompanyRepository = (*fakeCompanies)(nil)

func (f *fakeCompanies) Upsert(_ context.Context, c *models.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = map[string]*models.Company{}
	}
	if old, ok := f.rows[c.Symbol]; ok {
		c.ID = old.ID
	} else if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	f.rows[c.Symbol] = &cp
	return nil
}

func (f *fakeCompanies) GetBySymbol(_ context.Context, sym string) (*models.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[sym], nil
}

func (f *fakeCompanies) ListBySector(context.Context, string, int, int) ([]models.Company, error) {
	return nil, nil
}

func (f *fakeCompanies) SearchByName(context.Context, string, int) ([]models.Company, error) {
	return nil, nil
}

type fakePrices struct {
	mu       sync.Mutex
	err      error
	replaced map[uuid.UUID]int
}

var _ storage.PriceRepository = (*fakePrices)(nil)

func (f *fakePrices) ReplaceRange(_ context.Context, id uuid.UUID, pts []models.PricePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.replaced == nil {
		f.replaced = map[uuid.UUID]int{}
	}
	f.replaced[id] += len(pts)
	return nil
}

func (f *fakePrices) Range(context.Context, uuid.UUID, time.Time, time.Time) ([]models.PricePoint, error) {
	return nil, nil
}

type fakeSnaps struct {
	mu   sync.Mutex
	rows []models.Snapshot
}

var _ storage.SnapshotRepository = (*fakeSnaps)(nil)

func (f *fakeSnaps) Insert(_ context.Context, s *models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = uuid.New()
	f.rows = append(f.rows, *s)
	return nil
}

func (f *fakeSnaps) HasSnapshotForDate(_ context.Context, id uuid.UUID, kind string, d time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.rows {
		if s.CompanyID == id && s.Kind == kind && sameDate(s.AsOf, d) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSnaps) Latest(_ context.Context, id uuid.UUID, kind string) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out *models.Snapshot
	for i := range f.rows {
		if f.rows[i].CompanyID == id && f.rows[i].Kind == kind {
			out = &f.rows[i]
		}
	}
	return out, nil
}

type fixture struct {
	src       *fakeSource
	companies *fakeCompanies
	prices    *fakePrices
	snaps     *fakeSnaps
	rec       *Recorder
}

// Saturday 2024-03-30, so the trading date is Thursday 2024-03-28.
var saturday = time.Date(2024, 3, 30, 18, 0, 0, 0, IST)

func newFixture(opts ...Option) *fixture {
	f := &fixture{src: &fakeSource{}, companies: &fakeCompanies{}, prices: &fakePrices{}, snaps: &fakeSnaps{}}
	opts = append([]Option{WithClock(func() time.Time { return saturday }), WithParallel(2)}, opts...)
	f.rec = NewRecorder(f.src, f.companies, f.prices, f.snaps, opts...)
	return f
}

func TestRun_RecordsSnapshotsAndPrices(t *testing.T) {
	f := newFixture()
	sum, err := f.rec.Run(context.Background(), []string{"tcs", "infy", "noinfo"}, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum != (Summary{Recorded: 3}) {
		t.Fatalf("summary %+v", sum)
	}
	if len(f.snaps.rows) != 3 {
		t.Fatalf("snapshots %d", len(f.snaps.rows))
	}

	tcs := f.companies.rows["TCS.NS"]
	if tcs == nil || tcs.Name != "Name of TCS.NS" || tcs.Sector.String != "IT" {
		t.Fatalf("company not upserted from info: %+v", tcs)
	}
	if f.companies.rows["NOINFO.NS"].Name != "NOINFO" {
		t.Fatalf("missing info must fall back to the ticker")
	}
	if f.prices.replaced[tcs.ID] != 2 {
		t.Fatalf("price history not replaced: %v", f.prices.replaced)
	}

	s := f.snaps.rows[0]
	if s.AsOf.Format("2006-01-02") != "2024-03-28" || s.Version != Version || s.Kind != models.SnapshotOverview {
		t.Fatalf("unexpected snapshot header %+v", s)
	}
	if s.Sources[service.CapQuote] != "ok" || s.Sources[service.CapFundamentals] != string(source.AuthExpired) {
		t.Fatalf("sources %v", s.Sources)
	}
	var data map[string]map[string]any
	if err := json.Unmarshal(s.Data, &data); err != nil {
		t.Fatalf("data not json: %v", err)
	}
	if data["quote"]["change_percent"] != 10.0 {
		t.Fatalf("quote not stored in api shape: %v", data["quote"])
	}
	if _, ok := data["fundamentals"]; ok {
		t.Fatalf("failed source stored as data")
	}
}

func TestRun_IdempotentUnlessForced(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.rec.Run(ctx, []string{"TCS"}, false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	sum, err := f.rec.Run(ctx, []string{"TCS"}, false)
	if err != nil || sum != (Summary{Skipped: 1}) {
		t.Fatalf("second run: %+v %v", sum, err)
	}
	if f.src.overviews["TCS.NS"] != 1 {
		t.Fatalf("skipped symbol must not be fetched again")
	}
	sum, err = f.rec.Run(ctx, []string{"TCS"}, true)
	if err != nil || sum.Recorded != 1 || f.src.overviews["TCS.NS"] != 2 {
		t.Fatalf("forced run: %+v %v", sum, err)
	}
}

func TestRun_FailuresAreJoined(t *testing.T) {
	f := newFixture()
	f.src.failSym = "INFY.NS"
	sum, err := f.rec.Run(context.Background(), []string{"TCS", "bad symbol", "INFY", "RELIANCE"}, false)
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if sum.Recorded != 2 || sum.Failed != 2 {
		t.Fatalf("summary %+v", sum)
	}
	msg := err.Error()
	if !strings.Contains(msg, "bad symbol") || !strings.Contains(msg, "INFY") {
		t.Fatalf("missing failures in %q", msg)
	}
	if !errors.Is(err, &source.Error{Kind: source.InvalidSymbol}) {
		t.Fatalf("kinds must survive joining")
	}
}

func TestRun_PriceFailureIsRetried(t *testing.T) {
	cases := []struct {
		name    string
		fail    func(f *fixture)
		restore func(f *fixture)
	}{
		{
			name:    "history fetch fails",
			fail:    func(f *fixture) { f.src.failSym = "TCS.NS" },
			restore: func(f *fixture) { f.src.failSym = "" },
		},
		{
			name:    "history store fails",
			fail:    func(f *fixture) { f.prices.err = errors.New("copy failed") },
			restore: func(f *fixture) { f.prices.err = nil },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			tc.fail(f)
			sum, err := f.rec.Run(ctx, []string{"TCS"}, false)
			if err == nil || sum.Failed != 1 {
				t.Fatalf("first run: %+v %v", sum, err)
			}
			if len(f.snaps.rows) != 0 {
				t.Fatalf("snapshot stored without its price history")
			}

			tc.restore(f)
			sum, err = f.rec.Run(ctx, []string{"TCS"}, false)
			if err != nil || sum != (Summary{Recorded: 1}) {
				t.Fatalf("retry: %+v %v", sum, err)
			}
			tcs := f.companies.rows["TCS.NS"]
			if len(f.snaps.rows) != 1 || f.prices.replaced[tcs.ID] != 2 {
				t.Fatalf("retry stored snapshots=%d prices=%v", len(f.snaps.rows), f.prices.replaced)
			}
		})
	}
}

func TestLatest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.rec.Latest(ctx, "TCS"); source.KindOf(err) != source.NotFound {
		t.Fatalf("unknown company: %v", err)
	}
	if _, err := f.rec.Run(ctx, []string{"TCS"}, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, err := f.rec.Latest(ctx, "tcs.ns")
	if err != nil || s == nil || s.CompanyID != f.companies.rows["TCS.NS"].ID {
		t.Fatalf("Latest: %+v %v", s, err)
	}
	if _, err := f.rec.Latest(ctx, ""); source.KindOf(err) != source.InvalidSymbol {
		t.Fatalf("invalid symbol: %v", err)
	}
}

func TestNewRecorder_ParallelBounds(t *testing.T) {
	if r := newFixture(WithParallel(50)).rec; r.parallel != maxParallel {
		t.Fatalf("parallel=%d", r.parallel)
	}
	if r := NewRecorder(nil, nil, nil, nil); r.parallel < 1 || r.parallel > maxParallel {
		t.Fatalf("default parallel=%d", r.parallel)
	}
	if r := newFixture(WithLocation(time.UTC)).rec; r.TradingDate().Location() != time.UTC {
		t.Fatalf("location not applied")
	}
}
