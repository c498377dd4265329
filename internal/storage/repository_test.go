package storage

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/guregu/null/v6"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

type dummyErr struct{}

func (dummyErr) Error() string { return "dummy" }

var (
	_ CompanyRepository  = (*companyRepository)(nil)
	_ PriceRepository    = (*priceRepository)(nil)
	_ SnapshotRepository = (*snapshotRepository)(nil)
)

func newMock(t *testing.T) (sqlmock.Sqlmock, func() (*companyRepository, *priceRepository, *snapshotRepository)) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return mock, func() (*companyRepository, *priceRepository, *snapshotRepository) {
		return &companyRepository{db: db}, &priceRepository{db: db}, &snapshotRepository{db: db}
	}
}

var companyCols = []string{"id", "symbol", "isin", "name", "sector", "created_at", "updated_at"}

func TestCompanyUpsert_SQLMock(t *testing.T) {
	mock, repos := newMock(t)
	companies, _, _ := repos()

	storedID := uuid.New()
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	c := &models.Company{Symbol: "TCS.NS", Name: "Tata Consultancy Services", Sector: null.StringFrom("IT")}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO companies (id, symbol, isin, name, sector)")).
		WithArgs(sqlmock.AnyArg(), "TCS.NS", nil, "Tata Consultancy Services", "IT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(storedID.String(), now, now))

	if err := companies.Upsert(context.Background(), c); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if c.ID != storedID || !c.CreatedAt.Equal(now) {
		t.Fatalf("stored id/timestamps not applied: %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyGetBySymbol_SQLMock(t *testing.T) {
	mock, repos := newMock(t)
	companies, _, _ := repos()
	ctx := context.Background()
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM companies WHERE symbol = $1")).
		WithArgs("INFY.NS").
		WillReturnRows(sqlmock.NewRows(companyCols).AddRow(id.String(), "INFY.NS", "INE009A01021", "Infosys", nil, now, now))
	got, err := companies.GetBySymbol(ctx, "INFY.NS")
	if err != nil || got == nil {
		t.Fatalf("GetBySymbol: %v %v", got, err)
	}
	if got.ID != id || got.ISIN.String != "INE009A01021" || got.Sector.Valid {
		t.Fatalf("unexpected company %+v", got)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM companies WHERE symbol = $1")).
		WithArgs("NOPE.NS").
		WillReturnRows(sqlmock.NewRows(companyCols))
	got, err = companies.GetBySymbol(ctx, "NOPE.NS")
	if err != nil || got != nil {
		t.Fatalf("want nil,nil got %v %v", got, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM companies WHERE symbol = $1")).
		WithArgs("ERR.NS").WillReturnError(dummyErr{})
	if _, err := companies.GetBySymbol(ctx, "ERR.NS"); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyListing_SQLMock(t *testing.T) {
	mock, repos := newMock(t)
	companies, _, _ := repos()
	ctx := context.Background()
	now := time.Now().UTC()

	cases := []struct {
		name      string
		skip      int
		limit     int
		wantSkip  int
		wantLimit int
	}{
		{name: "explicit page", skip: 20, limit: 10, wantSkip: 20, wantLimit: 10},
		{name: "defaults", skip: -5, limit: 0, wantSkip: 0, wantLimit: 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock.ExpectQuery(`WHERE sector = \$1\s+ORDER BY symbol\s+OFFSET \$2 LIMIT \$3`).
				WithArgs("IT", tc.wantSkip, tc.wantLimit).
				WillReturnRows(sqlmock.NewRows(companyCols).
					AddRow(uuid.NewString(), "INFY.NS", nil, "Infosys", "IT", now, now).
					AddRow(uuid.NewString(), "TCS.NS", nil, "TCS", "IT", now, now))
			got, err := companies.ListBySector(ctx, "IT", tc.skip, tc.limit)
			if err != nil || len(got) != 2 || got[1].Symbol != "TCS.NS" {
				t.Fatalf("ListBySector: %+v %v", got, err)
			}
		})
	}

	mock.ExpectQuery(`WHERE LOWER\(name\) LIKE \$1`).
		WithArgs(`%tata\_%`, 10).
		WillReturnRows(sqlmock.NewRows(companyCols))
	got, err := companies.SearchByName(ctx, " Tata_ ", 0)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("SearchByName must return an empty, non-nil slice: %v %v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func points(dates ...string) []models.PricePoint {
	out := make([]models.PricePoint, len(dates))
	for i, d := range dates {
		out[i] = models.PricePoint{Date: d, Open: 1, High: 2, Low: 0.5, Close: float64(i + 1), Volume: 100}
	}
	return out
}

func TestReplaceRange_SQLMock(t *testing.T) {
	mock, repos := newMock(t)
	_, prices, _ := repos()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM prices_ohlc WHERE company_id = $1 AND date BETWEEN $2 AND $3")).
		WithArgs(id, "2025-01-01", "2025-01-03").
		WillReturnResult(sqlmock.NewResult(0, 2))
	// pq.CopyIn is driver specific; sqlmock sees a prepared statement executed once per row.
	prep := mock.ExpectPrepare(".*")
	prep.ExpectExec().WithArgs(id, "2025-01-01", 1.0, 2.0, 0.5, 2.0, int64(100)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(".*").WithArgs(id, "2025-01-03", 1.0, 2.0, 0.5, 3.0, int64(100)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0)) // final Exec()
	mock.ExpectCommit()

	pts := points("2025-01-01", "2025-01-01", "2025-01-03")
	pts[0].Close = 9
	if err := prices.ReplaceRange(context.Background(), id, pts); err != nil {
		t.Fatalf("ReplaceRange: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceRange_Errors(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name:  "begin",
			setup: func(mock sqlmock.Sqlmock) { mock.ExpectBegin().WillReturnError(dummyErr{}) },
		},
		{
			name: "delete",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM prices_ohlc").WillReturnError(dummyErr{})
				mock.ExpectRollback()
			},
		},
		{
			name: "row exec",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM prices_ohlc").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectPrepare(".*").ExpectExec().WillReturnError(dummyErr{})
				mock.ExpectRollback()
			},
		},
		{
			name: "final exec",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM prices_ohlc").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectPrepare(".*").ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(".*").WillReturnError(dummyErr{})
				mock.ExpectRollback()
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock, repos := newMock(t)
			_, prices, _ := repos()
			tc.setup(mock)
			if err := prices.ReplaceRange(context.Background(), id, points("2025-01-01")); err == nil {
				t.Fatalf("expected error")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestReplaceRange_EmptyIsNoop(t *testing.T) {
	mock, repos := newMock(t)
	_, prices, _ := repos()
	if err := prices.ReplaceRange(context.Background(), uuid.New(), nil); err != nil {
		t.Fatalf("ReplaceRange(nil): %v", err)
	}
	if err := prices.ReplaceRange(context.Background(), uuid.New(), []models.PricePoint{{Close: 1}}); err != nil {
		t.Fatalf("undated bars are skipped: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statements expected: %v", err)
	}
}

func TestPriceRange_SQLMock(t *testing.T) {
	mock, repos := newMock(t)
	_, prices, _ := repos()
	id := uuid.New()
	from := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM prices_ohlc\s+WHERE company_id = \$1 AND date BETWEEN \$2 AND \$3`).
		WithArgs(id, "2025-01-01", "2025-01-31").
		WillReturnRows(sqlmock.NewRows([]string{"date", "open", "high", "low", "close", "volume"}).
			AddRow(day, 10.0, 12.0, 9.5, 11.0, int64(5000)))

	got, err := prices.Range(context.Background(), id, from, to)
	if err != nil || len(got) != 1 {
		t.Fatalf("Range: %+v %v", got, err)
	}
	if got[0].Date != "2025-01-02" || got[0].Close != 11 || got[0].Unix != day.Unix() {
		t.Fatalf("unexpected bar %+v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSnapshots_SQLMock(t *testing.T) {
	mock, repos := newMock(t)
	_, _, snaps := repos()
	ctx := context.Background()
	companyID := uuid.New()
	asOf := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
	created := asOf.Add(11 * time.Hour)

	s := &models.Snapshot{
		CompanyID: companyID,
		Kind:      models.SnapshotOverview,
		Version:   "1",
		AsOf:      asOf,
		Data:      json.RawMessage(`{"quote":{"price":1}}`),
		Sources:   map[string]string{"quote": "ok", "fundamentals": "auth_expired"},
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO snapshots (id, company_id, kind, version, as_of, data, sources)")).
		WithArgs(sqlmock.AnyArg(), companyID, "overview", "1", "2025-03-28", []byte(`{"quote":{"price":1}}`), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	if err := snaps.Insert(ctx, s); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if s.ID == uuid.Nil || !s.CreatedAt.Equal(created) {
		t.Fatalf("id or created_at not set: %+v", s)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM snapshots WHERE company_id = $1 AND kind = $2 AND as_of = $3)")).
		WithArgs(companyID, "overview", "2025-03-28").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := snaps.HasSnapshotForDate(ctx, companyID, models.SnapshotOverview, asOf)
	if err != nil || !ok {
		t.Fatalf("HasSnapshotForDate: ok=%v err=%v", ok, err)
	}

	mock.ExpectQuery(`FROM snapshots\s+WHERE company_id = \$1 AND kind = \$2\s+ORDER BY as_of DESC`).
		WithArgs(companyID, "overview").
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "kind", "version", "as_of", "data", "sources", "created_at"}).
			AddRow(s.ID.String(), companyID.String(), "overview", "1", asOf, []byte(`{"a":1}`), []byte(`{"quote":"ok"}`), created))
	latest, err := snaps.Latest(ctx, companyID, models.SnapshotOverview)
	if err != nil || latest == nil {
		t.Fatalf("Latest: %v %v", latest, err)
	}
	if latest.ID != s.ID || latest.Sources["quote"] != "ok" || string(latest.Data) != `{"a":1}` {
		t.Fatalf("unexpected snapshot %+v", latest)
	}

	mock.ExpectQuery("FROM snapshots").WithArgs(companyID, "overview").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	latest, err = snaps.Latest(ctx, companyID, models.SnapshotOverview)
	if err != nil || latest != nil {
		t.Fatalf("want nil,nil got %v %v", latest, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConstructors(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()
	if NewCompanyRepository(db) == nil || NewPriceRepository(db) == nil || NewSnapshotRepository(db) == nil {
		t.Fatalf("expected non-nil repositories")
	}
}
