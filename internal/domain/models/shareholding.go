package models

import "github.com/guregu/null/v6"

// ShareholdingSnapshot is the latest reported ownership split. Every field is
// independently optional; partial data from the exchange is valid.
type ShareholdingSnapshot struct {
	PromoterPct        null.Float  `json:"promoter_percentage" swaggertype:"number"`
	FIIPct             null.Float  `json:"fii_percentage" swaggertype:"number"`
	DIIPct             null.Float  `json:"dii_percentage" swaggertype:"number"`
	PublicPct          null.Float  `json:"public_percentage" swaggertype:"number"`
	PromoterPledgedPct null.Float  `json:"promoter_pledged_percentage" swaggertype:"number"`
	AsOfDate           null.String `json:"date" swaggertype:"string" example:"31-Dec-2024"`

	// share counts behind the percentages
	PromoterShares        null.Int `json:"promoter_shares" swaggertype:"integer"`
	FIIShares             null.Int `json:"fii_shares" swaggertype:"integer"`
	DIIShares             null.Int `json:"dii_shares" swaggertype:"integer"`
	PublicShares          null.Int `json:"public_shares" swaggertype:"integer"`
	PromoterPledgedShares null.Int `json:"promoter_pledged_shares" swaggertype:"integer"`
}

// Empty reports whether no field was populated.
func (s ShareholdingSnapshot) Empty() bool {
	return !s.PromoterPct.Valid && !s.FIIPct.Valid && !s.DIIPct.Valid &&
		!s.PublicPct.Valid && !s.PromoterPledgedPct.Valid && !s.AsOfDate.Valid &&
		!s.PromoterShares.Valid && !s.FIIShares.Valid && !s.DIIShares.Valid &&
		!s.PublicShares.Valid && !s.PromoterPledgedShares.Valid
}
