package models

import "time"

// PricePoint is a single OHLCV bar.
type PricePoint struct {
	Time   time.Time `json:"-"`
	Date   string    `json:"date" example:"2024-03-28"`
	Unix   int64     `json:"timestamp" example:"1711597500"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is an ordered OHLCV history, strictly ascending by time.
// An empty Points slice is a valid result.
type PriceSeries struct {
	Symbol   string       `json:"symbol"`
	Period   string       `json:"period" example:"1y"`
	Interval string       `json:"interval" example:"1d"`
	Points   []PricePoint `json:"prices"`
}

// Closes returns the closing prices in series order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}
