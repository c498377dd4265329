package models

import "github.com/guregu/null/v6"

// Trend labels.
const (
	TrendStrongUp   = "strong_uptrend"
	TrendUp         = "uptrend"
	TrendStrongDown = "strong_downtrend"
	TrendDown       = "downtrend"
	TrendSideways   = "sideways"
)

// RSI signal labels.
const (
	SignalOverbought = "overbought"
	SignalOversold   = "oversold"
	SignalNeutral    = "neutral"
)

// TechnicalSnapshot is the indicator summary computed over a price series.
type TechnicalSnapshot struct {
	Symbol       string     `json:"symbol,omitempty"`
	CurrentPrice float64    `json:"current_price"`
	SMA20        null.Float `json:"sma_20" swaggertype:"number"`
	SMA50        null.Float `json:"sma_50" swaggertype:"number"`
	SMA200       null.Float `json:"sma_200" swaggertype:"number"`
	RSI14        null.Float `json:"rsi_14" swaggertype:"number"`
	MomentumPct  null.Float `json:"momentum_percent" swaggertype:"number"`
	Trend        string     `json:"trend" example:"uptrend"`
	RSISignal    string     `json:"rsi_signal" example:"neutral"`
}
