package yahoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/guregu/null/v6"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/httpx"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// rawValue is Yahoo's {"raw": 1.0, "fmt": "1.00"} wrapper.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v rawValue) float() null.Float { return null.FloatFromPtr(v.Raw) }

type summaryResult struct {
	Price struct {
		LongName  string   `json:"longName"`
		ShortName string   `json:"shortName"`
		MarketCap rawValue `json:"marketCap"`
	} `json:"price"`
	SummaryDetail struct {
		MarketCap  rawValue `json:"marketCap"`
		TrailingPE rawValue `json:"trailingPE"`
	} `json:"summaryDetail"`
	AssetProfile struct {
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
		LongBusinessSummary string `json:"longBusinessSummary"`
	} `json:"assetProfile"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"quoteSummary"`
}

// summary fetches quoteSummary modules through the crumb session.
func (c *Client) summary(ctx context.Context, op string, sym symbol.NormalizedSymbol, modules ...string) (summaryResult, error) {
	endpoint := c.baseURL + "/v10/finance/quoteSummary/" + url.PathEscape(sym.Canonical)
	resp, err := c.session.Do(ctx, func(ctx context.Context, crumb string) (*http.Request, error) {
		q := url.Values{}
		q.Set("modules", strings.Join(modules, ","))
		q.Set("crumb", crumb)
		return c.newRequest(ctx, endpoint, q)
	})
	if err != nil {
		return summaryResult{}, err
	}
	body, err := readOK(resp, op)
	if err != nil {
		return summaryResult{}, err
	}
	var sr summaryResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return summaryResult{}, source.New(source.UpstreamFormatError, Name, op, err)
	}
	if e := sr.QuoteSummary.Error; e != nil {
		kind := source.UpstreamFormatError
		if strings.EqualFold(e.Code, "Not Found") {
			kind = source.NotFound
		}
		return summaryResult{}, source.Errorf(kind, Name, op, "%s: %s", e.Code, e.Description)
	}
	if len(sr.QuoteSummary.Result) == 0 {
		return summaryResult{}, source.Errorf(source.NotFound, Name, op, "no summary for %s", sym)
	}
	return sr.QuoteSummary.Result[0], nil
}

// Info returns descriptive company data for raw.
func (c *Client) Info(ctx context.Context, raw string) (models.CompanyInfo, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return models.CompanyInfo{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	s, err := c.summary(ctx, "info", sym, "price", "summaryDetail", "assetProfile")
	if err != nil {
		return models.CompanyInfo{}, err
	}
	name := s.Price.LongName
	if name == "" {
		name = s.Price.ShortName
	}
	if name == "" {
		name = sym.Canonical
	}
	mcap := s.Price.MarketCap.float()
	if !mcap.Valid {
		mcap = s.SummaryDetail.MarketCap.float()
	}
	return models.CompanyInfo{
		Symbol:      sym.Canonical,
		Name:        name,
		Sector:      nonEmpty(s.AssetProfile.Sector),
		Industry:    nonEmpty(s.AssetProfile.Industry),
		MarketCap:   mcap,
		Description: nonEmpty(s.AssetProfile.LongBusinessSummary),
		Source:      Name,
	}, nil
}

// Ping checks the chart endpoint is reachable, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := c.newRequest(ctx, c.baseURL+"/v8/finance/chart/%5ENSEI", url.Values{"range": {"1d"}, "interval": {"1d"}})
	if err != nil {
		return err
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return source.ClassifyTransport(Name, "ping", err)
	}
	httpx.Drain(resp)
	if resp.StatusCode >= 500 {
		return source.StatusError(Name, "ping", resp.StatusCode)
	}
	return nil
}

func nonEmpty(s string) null.String {
	s = strings.TrimSpace(s)
	return null.NewString(s, s != "")
}
