package dto

import (
	"github.com/guttosm/nsepulse/internal/aggregate"
	"github.com/guttosm/nsepulse/internal/domain/models"
)

// SourceStatus reports how one constituent of an aggregated view fared.
type SourceStatus struct {
	Status    string `json:"status" example:"ok"`
	ErrorType string `json:"error_type,omitempty" example:"timeout"`
}

// AggregatedResponse is the body of multi-source endpoints. A failing
// source leaves its entry out of Data and is reported in Sources; the
// request itself still succeeds.
type AggregatedResponse struct {
	Symbol   string                  `json:"symbol" example:"TCS.NS"`
	Exchange string                  `json:"exchange" example:"NSE"`
	Data     map[string]any          `json:"data" swaggertype:"object"`
	Sources  map[string]SourceStatus `json:"sources"`
}

// NewAggregatedResponse splits aggregated results into data and status maps.
// present can replace a value with its API shape before it is serialized.
func NewAggregatedResponse(symbol, exchange string, rs aggregate.Results, present func(name string, v any) any) AggregatedResponse {
	resp := AggregatedResponse{
		Symbol:   symbol,
		Exchange: exchange,
		Data:     make(map[string]any, len(rs)),
		Sources:  make(map[string]SourceStatus, len(rs)),
	}
	for name, r := range rs {
		if !r.Ok() {
			resp.Sources[name] = SourceStatus{Status: "error", ErrorType: string(r.Kind())}
			continue
		}
		v := r.Value
		if present != nil {
			v = present(name, v)
		}
		resp.Data[name] = v
		resp.Sources[name] = SourceStatus{Status: "ok"}
	}
	return resp
}

// PresentQuote is a present func for NewAggregatedResponse that renders
// quotes with their derived change figures and passes other values through.
func PresentQuote(_ string, v any) any {
	if q, ok := v.(models.Quote); ok {
		return NewQuoteResponse(q)
	}
	return v
}
