package service

import (
	"context"

	"github.com/guttosm/nsepulse/internal/aggregate"
	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/source"
	"github.com/guttosm/nsepulse/internal/symbol"
)

// Capability names used as keys in aggregated results.
const (
	CapQuote        = "quote"
	CapShareholding = "shareholding"
	CapTechnicals   = "technicals"
	CapFundamentals = "fundamentals"
	CapNews         = "news"
)

const overviewNewsLimit = 5

// Aggregated is the outcome of a multi-source view: the symbol it was
// resolved to and one result per capability.
type Aggregated struct {
	Symbol  symbol.NormalizedSymbol
	Results aggregate.Results
}

// ExchangeOverview fetches NSE shareholding and the NSE quote concurrently.
func (s *marketService) ExchangeOverview(ctx context.Context, raw string) (Aggregated, error) {
	sym, err := symbol.Normalize(raw, symbol.NSE)
	if err != nil {
		return Aggregated{}, err
	}
	g := aggregate.New(ctx, s.aggTimeout)
	aggregate.Go(g, CapShareholding, func(ctx context.Context) source.Result[models.ShareholdingSnapshot] {
		v, err := s.Shareholding(ctx, sym.Canonical)
		return source.From("nse", CapShareholding, v, err)
	})
	aggregate.Go(g, CapQuote, func(ctx context.Context) source.Result[models.Quote] {
		v, err := s.p.Exchange.Quote(ctx, sym.Canonical)
		return source.From("nse", CapQuote, v, err)
	})
	return s.finish(sym, g), nil
}

// Overview gathers everything known about one company in a single fan-out.
func (s *marketService) Overview(ctx context.Context, raw string) (Aggregated, error) {
	sym, err := symbol.Normalize(raw, symbol.Unknown)
	if err != nil {
		return Aggregated{}, err
	}
	g := aggregate.New(ctx, s.aggTimeout)
	aggregate.Go(g, CapQuote, func(ctx context.Context) source.Result[models.Quote] {
		v, err := s.Quote(ctx, sym.Canonical)
		return source.From("yahoo", CapQuote, v, err)
	})
	aggregate.Go(g, CapShareholding, func(ctx context.Context) source.Result[models.ShareholdingSnapshot] {
		v, err := s.Shareholding(ctx, sym.Canonical)
		return source.From("nse", CapShareholding, v, err)
	})
	aggregate.Go(g, CapTechnicals, func(ctx context.Context) source.Result[models.TechnicalSnapshot] {
		v, err := s.Technicals(ctx, sym.Canonical, DefaultPeriod)
		return source.From("yahoo", CapTechnicals, v, err)
	})
	aggregate.Go(g, CapFundamentals, func(ctx context.Context) source.Result[models.FundamentalsSeries] {
		v, err := s.Fundamentals(ctx, sym.Canonical)
		return source.From("screener", CapFundamentals, v, err)
	})
	aggregate.Go(g, CapNews, func(ctx context.Context) source.Result[models.NewsFeed] {
		v, err := s.SymbolNews(ctx, sym.Canonical, overviewNewsLimit)
		return source.From("news", CapNews, v, err)
	})
	return s.finish(sym, g), nil
}

func (s *marketService) finish(sym symbol.NormalizedSymbol, g *aggregate.Group) Aggregated {
	rs := g.Wait()
	for name, r := range rs {
		if !r.Ok() {
			s.log.Warn().Str("symbol", sym.Canonical).Str("capability", name).
				Str("kind", string(r.Kind())).Err(r.Err).Msg("source failed in aggregated view")
		}
	}
	return Aggregated{Symbol: sym, Results: rs}
}
