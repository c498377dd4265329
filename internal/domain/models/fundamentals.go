package models

import "github.com/guregu/null/v6"

// Canonical fundamentals metric names.
const (
	MetricRevenue         = "revenue"
	MetricExpenses        = "expenses"
	MetricOperatingProfit = "operating_profit"
	MetricNetProfit       = "net_profit"
	MetricROCE            = "roce"
	MetricROE             = "roe"
	MetricDebt            = "debt"
	MetricDebtToEquity    = "debt_to_equity"
	MetricAssets          = "assets"
	MetricEquity          = "equity"
	MetricEPS             = "eps"
	MetricBookValue       = "book_value"
	MetricPERatio         = "pe_ratio"
	MetricMarketCap       = "market_cap"
)

// FundamentalsSeries is a long-horizon table of yearly metrics.
//
// Every non-empty metric has exactly len(Years) entries and index i refers to
// Years[i] across all metrics. A metric the export did not carry is an empty
// slice.
type FundamentalsSeries struct {
	Symbol  string                  `json:"symbol"`
	Years   []string                `json:"years"`
	Metrics map[string][]null.Float `json:"metrics" swaggertype:"object"`
	Source  string                  `json:"source" example:"screener.in"`
}

// Metric returns the series for name, or nil when it is not present.
func (f FundamentalsSeries) Metric(name string) []null.Float {
	return f.Metrics[name]
}
