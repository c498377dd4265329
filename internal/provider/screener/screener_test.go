package screener

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/source"
)

// buildExport writes rows into an in-memory workbook under sheet.
func buildExport(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func sampleRows() [][]any {
	return [][]any{
		{"Narration", "Mar-21", "Mar-22", "Mar-23", "Mar-24"},
		{"Sales", 100, 120.5, 150, 180},
		{"Expenses", 80, 90, 100, 120},
		{"Operating Profit", 20, 30.5, 50, 60},
		{"Net profit", 10, 15, 25, 30},
		{"Borrowings", "1,200", "1,100", "", "900"},
		{"Return on capital ROCE", "12%", "14%", "16%", "18%"},
		{"EPS in Rs", 5, 6},
		{"Total Assets", 500, 550, 600, 650},
		{"Shareholders Equity", 300, 320, 340, 360},
		{"Market Capitalization", 1000, 1100, 1200, 1300},
	}
}

func TestParseExport_AliasesAndAlignment(t *testing.T) {
	var logs bytes.Buffer
	log := zerolog.New(&logs)

	years, metrics, err := parseExport(buildExport(t, DataSheet, sampleRows()), log)
	require.NoError(t, err)
	require.Equal(t, []string{"Mar-21", "Mar-22", "Mar-23", "Mar-24"}, years)

	for name, series := range metrics {
		if len(series) != 0 {
			require.Len(t, series, len(years), "metric %s misaligned", name)
		}
	}
	require.Len(t, metrics, len(metricAliases))

	require.InDelta(t, 120.5, metrics[models.MetricRevenue][1].Float64, 1e-9)
	require.InDelta(t, 15, metrics[models.MetricNetProfit][1].Float64, 1e-9, "substring, case-insensitive")
	require.InDelta(t, 1200, metrics[models.MetricDebt][0].Float64, 1e-9, "thousands separators stripped")
	require.False(t, metrics[models.MetricDebt][2].Valid, "blank cell is absent")
	require.InDelta(t, 16, metrics[models.MetricROCE][2].Float64, 1e-9, "percent stripped")
	require.True(t, metrics[models.MetricEPS][1].Valid)
	require.False(t, metrics[models.MetricEPS][3].Valid, "short rows are padded")
	require.InDelta(t, 300, metrics[models.MetricEquity][0].Float64, 1e-9)

	require.Empty(t, metrics[models.MetricROE])
	require.Empty(t, metrics[models.MetricPERatio])
	require.Empty(t, metrics[models.MetricBookValue])
	require.Contains(t, logs.String(), "metric not found in export")
}

func TestParseExport_AmbiguousMatchIsLogged(t *testing.T) {
	var logs bytes.Buffer
	rows := [][]any{
		{"Narration", "Mar-23", "Mar-24"},
		// no "Equity" row; the equity substring lands on a debt_to_equity alias
		{"Debt to equity", 0.4, 0.3},
	}
	_, metrics, err := parseExport(buildExport(t, DataSheet, rows), zerolog.New(&logs))
	require.NoError(t, err)
	require.Len(t, metrics[models.MetricEquity], 2)
	require.Contains(t, logs.String(), "ambiguous metric label match")
	require.Contains(t, logs.String(), models.MetricDebtToEquity)
}

func TestParseExport_Malformed(t *testing.T) {
	_, _, err := parseExport([]byte("<html>login</html>"), zerolog.Nop())
	require.Error(t, err)

	_, _, err = parseExport(buildExport(t, "Profit & Loss", sampleRows()), zerolog.Nop())
	require.Error(t, err, "missing data sheet")

	_, _, err = parseExport(buildExport(t, DataSheet, [][]any{{"Narration"}}), zerolog.Nop())
	require.ErrorIs(t, err, errEmptySheet)
}

type fakeScreener struct {
	export      []byte
	contentType string
	exportCode  int
	landings    atomic.Int32
	exports     atomic.Int32
}

func (f *fakeScreener) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.landings.Add(1)
		_, _ = w.Write([]byte("<html>home</html>"))
	})
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>please log in</html>"))
	})
	mux.HandleFunc("/company/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/company/MISSING/") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><body>
			<h1 class="margin-0">  Tata Consultancy
			Services Ltd </h1>
			<p><a class="sub" href="/company/compare/00000034/">IT - Software</a></p>
			</body></html>`))
	})
	mux.HandleFunc("/api/company/", func(w http.ResponseWriter, r *http.Request) {
		f.exports.Add(1)
		c, err := r.Cookie("sessionid")
		if err != nil || c.Value != "good" {
			http.Redirect(w, r, "/login/?next="+r.URL.Path, http.StatusFound)
			return
		}
		if f.exportCode != 0 {
			w.WriteHeader(f.exportCode)
			return
		}
		w.Header().Set("Content-Type", f.contentType)
		_, _ = w.Write(f.export)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, f *fakeScreener, cookie func() string) *Client {
	t.Helper()
	srv := f.server(t)
	hc, err := httpx.NewClient(true)
	require.NoError(t, err)
	c, err := New(WithBaseURL(srv.URL), WithDoer(hc), WithTimeout(5*time.Second), WithCookie(cookie))
	require.NoError(t, err)
	return c
}

func TestFundamentals(t *testing.T) {
	f := &fakeScreener{export: buildExport(t, DataSheet, sampleRows()), contentType: xlsxAccept}
	c := newTestClient(t, f, func() string { return "good" })

	fs, err := c.Fundamentals(context.Background(), "tcs")
	require.NoError(t, err)
	require.Equal(t, "TCS", fs.Symbol)
	require.Equal(t, SourceLabel, fs.Source)
	require.Len(t, fs.Years, 4)
	require.Len(t, fs.Metric(models.MetricRevenue), 4)
}

func TestFundamentals_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		f      *fakeScreener
		cookie string
		sym    string
		want   source.Kind
	}{
		{"missing company", &fakeScreener{}, "good", "MISSING", source.NotFound},
		{"no export", &fakeScreener{exportCode: http.StatusNotFound}, "good", "TCS", source.NotFound},
		{"export down", &fakeScreener{exportCode: http.StatusBadGateway}, "good", "TCS", source.UpstreamUnavailable},
		{"html instead of xlsx", &fakeScreener{contentType: "text/html; charset=utf-8", export: []byte("<html>")}, "good", "TCS", source.UpstreamFormatError},
		{"expired cookie", &fakeScreener{}, "stale", "TCS", source.AuthExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cookie := tc.cookie
			c := newTestClient(t, tc.f, func() string { return cookie })
			_, err := c.Fundamentals(context.Background(), tc.sym)
			require.Equal(t, tc.want, source.KindOf(err), "%v", err)
		})
	}
}

func TestFundamentals_RotatedCookieIsPickedUp(t *testing.T) {
	f := &fakeScreener{export: buildExport(t, DataSheet, sampleRows()), contentType: "application/vnd.ms-excel"}
	var current atomic.Value
	current.Store("stale")
	c := newTestClient(t, f, func() string { return current.Load().(string) })

	// first bootstrap reads the stale cookie; rotate before the re-bootstrap
	resp, err := c.session.Do(context.Background(), func(ctx context.Context, token string) (*http.Request, error) {
		return c.newRequest(ctx, c.baseURL+"/company/TCS/consolidated/", token)
	})
	require.NoError(t, err)
	httpx.Drain(resp)
	current.Store("good")

	_, err = c.Fundamentals(context.Background(), "TCS")
	require.NoError(t, err)
	require.Equal(t, int32(2), f.exports.Load(), "one refused export plus one replay")
	require.Equal(t, int32(2), f.landings.Load())
}

func TestCompanyInfo(t *testing.T) {
	c := newTestClient(t, &fakeScreener{}, func() string { return "good" })

	info, err := c.CompanyInfo(context.Background(), "TCS.NS")
	require.NoError(t, err)
	require.Equal(t, "TCS", info.Symbol)
	require.Equal(t, "Tata Consultancy Services Ltd", info.Name)
	require.Equal(t, "IT - Software", info.Sector.String)

	_, err = c.CompanyInfo(context.Background(), "MISSING")
	require.Equal(t, source.NotFound, source.KindOf(err))
}

func TestScrapeCompany_Fallbacks(t *testing.T) {
	name, sector, err := scrapeCompany(strings.NewReader(`<html><a class="nav">x</a></html>`))
	require.NoError(t, err)
	require.Empty(t, name)
	require.Empty(t, sector)
}
