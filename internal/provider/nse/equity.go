package nse

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// number accepts both JSON numbers and numeric strings; NSE mixes the two.
type number struct {
	v     float64
	valid bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" || s == "-" {
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	n.v, n.valid = f, true
	return nil
}

func (n *number) float() null.Float {
	if n == nil {
		return null.Float{}
	}
	return null.NewFloat(n.v, n.valid)
}

func (n *number) int() null.Int {
	if n == nil {
		return null.Int{}
	}
	return null.NewInt(int64(n.v), n.valid)
}

type highLow struct {
	Min *number `json:"min"`
	Max *number `json:"max"`
}

type shareholdingPattern struct {
	Date     string  `json:"date"`
	Promoter *number `json:"promoterAndPromoterGroup"`
	FII      *number `json:"fii"`
	DII      *number `json:"dii"`
	Public   *number `json:"public"`

	PromoterShares *number `json:"promoterAndPromoterGroupShares"`
	FIIShares      *number `json:"fiiShares"`
	DIIShares      *number `json:"diiShares"`
	PublicShares   *number `json:"publicShares"`
}

type quoteEquity struct {
	Info struct {
		Symbol      string `json:"symbol"`
		CompanyName string `json:"companyName"`
	} `json:"info"`
	Metadata struct {
		Industry string `json:"industry"`
	} `json:"metadata"`
	PriceInfo struct {
		LastPrice       *number `json:"lastPrice"`
		PreviousClose   *number `json:"previousClose"`
		Open            *number `json:"open"`
		IntraDayHighLow highLow `json:"intraDayHighLow"`
		WeekHighLow     highLow `json:"weekHighLow"`
	} `json:"priceInfo"`
	PreOpenMarket struct {
		TotalTradedVolume *number `json:"totalTradedVolume"`
	} `json:"preOpenMarket"`
	SecurityWiseDP *struct {
		ShareholdingPatterns []shareholdingPattern `json:"shareholdingPatterns"`
		PromoterEncumbrance  *struct {
			PledgePct    *number `json:"promoterPledgePercentage"`
			PledgeShares *number `json:"promoterPledgeShares"`
		} `json:"promoterEncumbrance"`
	} `json:"securityWiseDP"`
}

// Shareholding returns the latest quarter's ownership split for raw. A
// company with no reported patterns yields an all-absent snapshot.
func (c *Client) Shareholding(ctx context.Context, raw string) (models.ShareholdingSnapshot, error) {
	sym, err := symbol.Normalize(raw, symbol.NSE)
	if err != nil {
		return models.ShareholdingSnapshot{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	qe, err := c.quoteEquity(ctx, "shareholding", sym)
	if err != nil {
		return models.ShareholdingSnapshot{}, err
	}
	return qe.shareholding(), nil
}

func (qe quoteEquity) shareholding() models.ShareholdingSnapshot {
	var out models.ShareholdingSnapshot
	dp := qe.SecurityWiseDP
	if dp == nil {
		return out
	}
	if len(dp.ShareholdingPatterns) > 0 {
		latest := dp.ShareholdingPatterns[0]
		out.PromoterPct = latest.Promoter.float()
		out.FIIPct = latest.FII.float()
		out.DIIPct = latest.DII.float()
		out.PublicPct = latest.Public.float()
		out.PromoterShares = latest.PromoterShares.int()
		out.FIIShares = latest.FIIShares.int()
		out.DIIShares = latest.DIIShares.int()
		out.PublicShares = latest.PublicShares.int()
		out.AsOfDate = null.NewString(latest.Date, latest.Date != "")
	}
	if dp.PromoterEncumbrance != nil {
		out.PromoterPledgedPct = dp.PromoterEncumbrance.PledgePct.float()
		out.PromoterPledgedShares = dp.PromoterEncumbrance.PledgeShares.int()
	}
	return out
}

// Quote returns the exchange's live quote for raw.
func (c *Client) Quote(ctx context.Context, raw string) (models.Quote, error) {
	sym, err := symbol.Normalize(raw, symbol.NSE)
	if err != nil {
		return models.Quote{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	qe, err := c.quoteEquity(ctx, "quote", sym)
	if err != nil {
		return models.Quote{}, err
	}
	return qe.quote(sym)
}

func (qe quoteEquity) quote(sym symbol.NormalizedSymbol) (models.Quote, error) {
	pi := qe.PriceInfo
	last := pi.LastPrice.float()
	if !last.Valid {
		return models.Quote{}, errMissingPrice(sym)
	}
	q := models.Quote{
		Symbol:        sym.Canonical,
		Name:          null.NewString(qe.Info.CompanyName, qe.Info.CompanyName != ""),
		Price:         last.Float64,
		PreviousClose: pi.PreviousClose.float(),
		Open:          pi.Open.float(),
		DayHigh:       pi.IntraDayHighLow.Max.float(),
		DayLow:        pi.IntraDayHighLow.Min.float(),
		Week52High:    pi.WeekHighLow.Max.float(),
		Week52Low:     pi.WeekHighLow.Min.float(),
		AsOf:          time.Now().UTC(),
	}
	if v := qe.PreOpenMarket.TotalTradedVolume.float(); v.Valid {
		q.Volume = null.IntFrom(int64(v.Float64))
	}
	return q, nil
}
