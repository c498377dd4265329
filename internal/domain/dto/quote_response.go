package dto

import (
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

// QuoteResponse is the API shape of a quote. Change and ChangePercent are
// derived from price and previous close and are null when the previous close
// is unknown or zero.
type QuoteResponse struct {
	models.Quote
	Change        null.Float `json:"change" swaggertype:"number" example:"12.35"`
	ChangePercent null.Float `json:"change_percent" swaggertype:"number" example:"0.42"`
}

// NewQuoteResponse derives the change figures, rounded to two places.
func NewQuoteResponse(q models.Quote) QuoteResponse {
	resp := QuoteResponse{Quote: q}
	if !q.PreviousClose.Valid || q.PreviousClose.Float64 == 0 {
		return resp
	}
	price := decimal.NewFromFloat(q.Price)
	prev := decimal.NewFromFloat(q.PreviousClose.Float64)
	change := price.Sub(prev)
	pct := change.Div(prev).Mul(decimal.NewFromInt(100))

	resp.Change = null.FloatFrom(change.Round(2).InexactFloat64())
	resp.ChangePercent = null.FloatFrom(pct.Round(2).InexactFloat64())
	return resp
}
