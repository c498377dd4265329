package yahoo

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/symbol"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol               string   `json:"symbol"`
	LongName             string   `json:"longName"`
	ShortName            string   `json:"shortName"`
	ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	RegularMarketTime    int64    `json:"regularMarketTime"`
	PreviousClose        *float64 `json:"previousClose"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
	RegularMarketVolume  *int64   `json:"regularMarketVolume"`
	FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      *float64 `json:"fiftyTwoWeekLow"`
}

func (m chartMeta) name() null.String {
	if m.LongName != "" {
		return null.StringFrom(m.LongName)
	}
	return null.NewString(m.ShortName, m.ShortName != "")
}

// ist is used when the exchange zone cannot be loaded from the host's tzdata.
var ist = time.FixedZone("IST", 5*3600+30*60)

func (m chartMeta) location() *time.Location {
	if m.ExchangeTimezoneName == "" {
		return ist
	}
	loc, err := time.LoadLocation(m.ExchangeTimezoneName)
	if err != nil {
		return ist
	}
	return loc
}

func (c *Client) chart(ctx context.Context, op string, sym symbol.NormalizedSymbol, period, interval string) (chartResult, error) {
	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", interval)
	q.Set("includePrePost", "false")

	body, err := c.get(ctx, op, "/v8/finance/chart/"+url.PathEscape(sym.Canonical), q)
	if err != nil {
		return chartResult{}, err
	}
	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return chartResult{}, source.New(source.UpstreamFormatError, Name, op, err)
	}
	if e := cr.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return chartResult{}, source.Errorf(source.NotFound, Name, op, "%s: %s", sym, e.Description)
		}
		return chartResult{}, source.Errorf(source.UpstreamFormatError, Name, op, "%s: %s", e.Code, e.Description)
	}
	if len(cr.Chart.Result) == 0 {
		return chartResult{}, source.Errorf(source.NotFound, Name, op, "no chart data for %s", sym)
	}
	return cr.Chart.Result[0], nil
}

// points converts the parallel chart arrays into an ascending, de-duplicated
// series. Bars without a close are skipped.
func (r chartResult) points() []models.PricePoint {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	loc := r.Meta.location()

	byTime := make(map[int64]models.PricePoint, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		cl := at(q.Close, i)
		if cl == nil {
			continue
		}
		t := time.Unix(ts, 0).In(loc)
		p := models.PricePoint{
			Time:  t,
			Date:  t.Format(time.DateOnly),
			Unix:  ts,
			Open:  orElse(at(q.Open, i), *cl),
			High:  orElse(at(q.High, i), *cl),
			Low:   orElse(at(q.Low, i), *cl),
			Close: *cl,
		}
		if v := at(q.Volume, i); v != nil {
			p.Volume = *v
		}
		byTime[ts] = p
	}

	out := make([]models.PricePoint, 0, len(byTime))
	for _, p := range byTime {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unix < out[j].Unix })
	return out
}

// Quote returns the latest quote for raw, enriched with market cap and P/E
// when the crumb-protected summary endpoint cooperates.
func (c *Client) Quote(ctx context.Context, raw string) (models.Quote, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return models.Quote{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	r, err := c.chart(ctx, "quote", sym, "5d", "1d")
	if err != nil {
		return models.Quote{}, err
	}
	pts := r.points()
	m := r.Meta

	price := m.RegularMarketPrice
	if price == nil && len(pts) > 0 {
		price = &pts[len(pts)-1].Close
	}
	if price == nil {
		return models.Quote{}, source.Errorf(source.NotFound, Name, "quote", "no price for %s", sym)
	}

	q := models.Quote{
		Symbol:        sym.Canonical,
		Name:          m.name(),
		Price:         *price,
		PreviousClose: null.FloatFromPtr(firstNonNil(m.PreviousClose, m.ChartPreviousClose)),
		DayHigh:       null.FloatFromPtr(m.RegularMarketDayHigh),
		DayLow:        null.FloatFromPtr(m.RegularMarketDayLow),
		Volume:        null.IntFromPtr(m.RegularMarketVolume),
		Week52High:    null.FloatFromPtr(m.FiftyTwoWeekHigh),
		Week52Low:     null.FloatFromPtr(m.FiftyTwoWeekLow),
		AsOf:          time.Now().UTC(),
	}
	if m.RegularMarketTime > 0 {
		q.AsOf = time.Unix(m.RegularMarketTime, 0).UTC()
	}
	if n := len(pts); n > 0 {
		last := pts[n-1]
		q.Open = null.FloatFrom(last.Open)
		if !q.DayHigh.Valid {
			q.DayHigh = null.FloatFrom(last.High)
		}
		if !q.DayLow.Valid {
			q.DayLow = null.FloatFrom(last.Low)
		}
		if !q.Volume.Valid {
			q.Volume = null.IntFrom(last.Volume)
		}
		if !q.PreviousClose.Valid && n > 1 {
			q.PreviousClose = null.FloatFrom(pts[n-2].Close)
		}
	}

	sum, err := c.summary(ctx, "quote", sym, "summaryDetail")
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", sym.Canonical).Msg("quote enrichment failed")
		return q, nil
	}
	q.MarketCap = sum.SummaryDetail.MarketCap.float()
	q.PERatio = sum.SummaryDetail.TrailingPE.float()
	return q, nil
}

// History returns the OHLCV series for raw over period at interval.
func (c *Client) History(ctx context.Context, raw, period, interval string) (models.PriceSeries, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return models.PriceSeries{}, err
	}
	if err := ValidateRange(period, interval); err != nil {
		return models.PriceSeries{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	r, err := c.chart(ctx, "history", sym, period, interval)
	if err != nil {
		return models.PriceSeries{}, err
	}
	pts := r.points()
	if pts == nil {
		pts = []models.PricePoint{}
	}
	return models.PriceSeries{Symbol: sym.Canonical, Period: period, Interval: interval, Points: pts}, nil
}

// Search probes the exchange-suffixed forms of query and returns those that
// resolve to a named instrument, at most limit of them.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	out := []models.SymbolMatch{}
	if len(strings.TrimSpace(query)) < 2 {
		return out, nil
	}
	if limit <= 0 {
		limit = 10
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var lastErr error
	for _, cand := range symbol.Candidates(query) {
		if len(out) >= limit {
			break
		}
		r, err := c.chart(ctx, "search", cand, "1d", "1d")
		if err != nil {
			if source.KindOf(err) != source.NotFound {
				lastErr = err
			}
			continue
		}
		name := r.Meta.name()
		if !name.Valid {
			continue
		}
		out = append(out, models.SymbolMatch{Symbol: cand.Canonical, Name: name.String, Exchange: string(cand.Exchange)})
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func orElse(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func firstNonNil(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}
