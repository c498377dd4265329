package screener

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// DataSheet is the export sheet holding metrics as rows and years as columns.
const DataSheet = "Data Sheet"

var errEmptySheet = errors.New("data sheet has no header row")

const xlsxAccept = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// metricAliases lists, per canonical metric, the row labels tried in order.
var metricAliases = []struct {
	metric  string
	aliases []string
}{
	{models.MetricRevenue, []string{"Sales", "Revenue"}},
	{models.MetricExpenses, []string{"Expenses", "Operating Expenses"}},
	{models.MetricOperatingProfit, []string{"Operating Profit", "EBIT", "OPM"}},
	{models.MetricNetProfit, []string{"Net Profit", "Profit"}},
	{models.MetricROCE, []string{"ROCE %", "ROCE"}},
	{models.MetricROE, []string{"ROE %", "ROE"}},
	{models.MetricDebt, []string{"Debt", "Borrowings"}},
	{models.MetricDebtToEquity, []string{"Debt to equity", "D/E", "Debt/Equity"}},
	{models.MetricAssets, []string{"Total Assets", "Assets"}},
	{models.MetricEquity, []string{"Equity", "Shareholders Equity"}},
	{models.MetricEPS, []string{"EPS in Rs", "EPS"}},
	{models.MetricBookValue, []string{"Book Value", "BVPS", "Book Value Per Share"}},
	{models.MetricPERatio, []string{"PE Ratio", "P/E", "Stock P/E"}},
	{models.MetricMarketCap, []string{"Market Cap", "Market Capitalization"}},
}

// Fundamentals downloads and parses the consolidated export for raw.
func (c *Client) Fundamentals(ctx context.Context, raw string) (models.FundamentalsSeries, error) {
	sym, err := symbol.Normalize(raw, symbol.NSE)
	if err != nil {
		return models.FundamentalsSeries{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.exists(ctx, sym); err != nil {
		return models.FundamentalsSeries{}, err
	}

	const op = "fundamentals"
	resp, err := c.fetch(ctx, op, "/api/company/"+sym.Base()+"/export/", xlsxAccept)
	if err != nil {
		return models.FundamentalsSeries{}, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		httpx.Drain(resp)
		return models.FundamentalsSeries{}, source.Errorf(source.NotFound, Name, op, "no consolidated export for %s", sym.Base())
	default:
		httpx.Drain(resp)
		return models.FundamentalsSeries{}, source.Errorf(source.UpstreamUnavailable, Name, op, "export returned status %d", resp.StatusCode)
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ct, "spreadsheet") && !strings.Contains(ct, "excel") {
		httpx.Drain(resp)
		return models.FundamentalsSeries{}, source.Errorf(source.UpstreamFormatError, Name, op, "unexpected content type %q", ct)
	}
	body, err := httpx.ReadBody(resp)
	if err != nil {
		return models.FundamentalsSeries{}, source.ClassifyTransport(Name, op, err)
	}

	log := c.log.With().Str("symbol", sym.Base()).Logger()
	years, metrics, err := parseExport(body, log)
	if err != nil {
		return models.FundamentalsSeries{}, source.New(source.UpstreamFormatError, Name, op, err)
	}
	return models.FundamentalsSeries{Symbol: sym.Base(), Years: years, Metrics: metrics, Source: SourceLabel}, nil
}

// exists checks the company page so a missing company is NotFound before
// the export is attempted.
func (c *Client) exists(ctx context.Context, sym symbol.NormalizedSymbol) error {
	resp, err := c.fetch(ctx, "company", companyPath(sym), "")
	if err != nil {
		return err
	}
	httpx.Drain(resp)
	if resp.StatusCode != http.StatusOK {
		return source.StatusError(Name, "company", resp.StatusCode)
	}
	return nil
}

// parseExport reads the data sheet of an xlsx export into aligned series.
func parseExport(data []byte, log zerolog.Logger) ([]string, map[string][]null.Float, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(DataSheet)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, nil, errEmptySheet
	}

	years := append([]string(nil), rows[0][1:]...)
	t := newTable(rows[1:])

	metrics := make(map[string][]null.Float, len(metricAliases))
	for _, m := range metricAliases {
		label, exact, ok := t.find(m.aliases)
		if !ok {
			log.Warn().Str("metric", m.metric).Strs("aliases", m.aliases).Msg("metric not found in export")
			metrics[m.metric] = []null.Float{}
			continue
		}
		if !exact {
			if other := aliasOwner(label, m.metric); other != "" {
				log.Warn().Str("metric", m.metric).Str("label", label).Str("also_alias_of", other).
					Msg("ambiguous metric label match")
			}
		}
		metrics[m.metric] = align(t.values[label], len(years))
	}
	return years, metrics, nil
}

type table struct {
	labels []string // sheet order
	values map[string][]null.Float
}

func newTable(rows [][]string) table {
	t := table{values: make(map[string][]null.Float, len(rows))}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		label := strings.TrimSpace(row[0])
		if label == "" {
			continue
		}
		if _, dup := t.values[label]; dup {
			continue
		}
		vals := make([]null.Float, 0, len(row)-1)
		for _, cell := range row[1:] {
			vals = append(vals, parseNumber(cell))
		}
		t.labels = append(t.labels, label)
		t.values[label] = vals
	}
	return t
}

// find tries each alias in order, exact label first and then a
// case-insensitive substring of any label.
func (t table) find(aliases []string) (label string, exact bool, ok bool) {
	for _, alias := range aliases {
		if _, hit := t.values[alias]; hit {
			return alias, true, true
		}
		needle := strings.ToLower(alias)
		for _, l := range t.labels {
			if strings.Contains(strings.ToLower(l), needle) {
				return l, false, true
			}
		}
	}
	return "", false, false
}

// aliasOwner returns another metric that lists label as one of its aliases.
func aliasOwner(label, self string) string {
	for _, m := range metricAliases {
		if m.metric == self {
			continue
		}
		for _, a := range m.aliases {
			if strings.EqualFold(a, label) {
				return m.metric
			}
		}
	}
	return ""
}

func align(vals []null.Float, n int) []null.Float {
	out := make([]null.Float, n)
	copy(out, vals)
	return out
}

func parseNumber(cell string) null.Float {
	s := strings.TrimSpace(cell)
	s = strings.NewReplacer(",", "", "%", "", " ", "").Replace(s)
	if s == "" {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(f)
}
