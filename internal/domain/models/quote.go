package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// Quote is a point-in-time price view of one instrument.
//
// Only raw observed values are carried; change and percent change are
// derived at the presentation edge.
//
// swagger:model Quote
type Quote struct {
	Symbol        string      `json:"symbol" example:"RELIANCE.NS"`
	Name          null.String `json:"name" swaggertype:"string" example:"Reliance Industries Limited"`
	Price         float64     `json:"price" example:"2950.55"`
	PreviousClose null.Float  `json:"previous_close" swaggertype:"number"`
	Open          null.Float  `json:"open" swaggertype:"number"`
	DayHigh       null.Float  `json:"day_high" swaggertype:"number"`
	DayLow        null.Float  `json:"day_low" swaggertype:"number"`
	Volume        null.Int    `json:"volume" swaggertype:"integer"`
	MarketCap     null.Float  `json:"market_cap" swaggertype:"number"`
	PERatio       null.Float  `json:"pe_ratio" swaggertype:"number"`
	Week52High    null.Float  `json:"week_52_high" swaggertype:"number"`
	Week52Low     null.Float  `json:"week_52_low" swaggertype:"number"`
	AsOf          time.Time   `json:"as_of"`
}

// SymbolMatch is one hit returned by symbol search.
type SymbolMatch struct {
	Symbol   string      `json:"symbol" example:"TCS.NS"`
	Name     string      `json:"name" example:"Tata Consultancy Services Limited"`
	Exchange string      `json:"exchange" example:"NSE"`
	Sector   null.String `json:"sector" swaggertype:"string"`
	Industry null.String `json:"industry" swaggertype:"string"`
}

// CompanyInfo is descriptive data about a listed company.
type CompanyInfo struct {
	Symbol      string      `json:"symbol"`
	Name        string      `json:"name"`
	Sector      null.String `json:"sector" swaggertype:"string"`
	Industry    null.String `json:"industry" swaggertype:"string"`
	MarketCap   null.Float  `json:"market_cap" swaggertype:"number"`
	Description null.String `json:"description" swaggertype:"string"`
	Source      string      `json:"source"`
}
