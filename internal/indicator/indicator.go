// Package indicator computes technical indicators over a closing-price series.
// Everything here is pure and safe for concurrent use.
package indicator

import (
	"fmt"

	"github.com/guregu/null/v6"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/source"
)

// MinPoints is the shortest series Compute accepts; SMA200 needs it.
const MinPoints = 200

// RSIPeriod is the number of deltas RSI averages over.
const RSIPeriod = 14

const (
	overboughtLevel = 70
	oversoldLevel   = 30
)

// Compute builds a TechnicalSnapshot from series, which must be ordered
// ascending and hold at least MinPoints points.
func Compute(series models.PriceSeries) (models.TechnicalSnapshot, error) {
	closes := series.Closes()
	if len(closes) < MinPoints {
		return models.TechnicalSnapshot{}, source.Errorf(source.InsufficientData, "indicator", "compute",
			"need %d points, got %d", MinPoints, len(closes))
	}

	price := closes[len(closes)-1]
	snap := models.TechnicalSnapshot{
		Symbol:       series.Symbol,
		CurrentPrice: price,
		SMA20:        optional(SMA(closes, 20)),
		SMA50:        optional(SMA(closes, 50)),
		SMA200:       optional(SMA(closes, 200)),
		RSI14:        optional(RSI(closes, RSIPeriod)),
		MomentumPct:  optional(Momentum(closes)),
	}
	snap.Trend = ClassifyTrend(price, snap.SMA20.Float64, snap.SMA50.Float64, snap.SMA200.Float64)
	snap.RSISignal = ClassifyRSI(snap.RSI14.Float64)
	return snap, nil
}

// SMA returns the mean of the trailing window closes.
func SMA(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window {
		return 0, false
	}
	var sum float64
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window), true
}

// RSI returns the relative strength index over the trailing period deltas.
// Gains and losses are simple means; zero average loss yields 100.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	tail := closes[len(closes)-period-1:]
	var gains, losses float64
	for i := 1; i < len(tail); i++ {
		d := tail[i] - tail[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rsi := 100 - 100/(1+avgGain/avgLoss)
	return clamp(rsi, 0, 100), true
}

// Momentum returns the percentage change from the first to the last close.
func Momentum(closes []float64) (float64, bool) {
	if len(closes) < 2 || closes[0] == 0 {
		return 0, false
	}
	first, last := closes[0], closes[len(closes)-1]
	return (last - first) / first * 100, true
}

// ClassifyTrend orders price against the three moving averages. Every input
// maps to exactly one label; ties fall through to sideways.
func ClassifyTrend(price, sma20, sma50, sma200 float64) string {
	switch {
	case price > sma20 && sma20 > sma50 && sma50 > sma200:
		return models.TrendStrongUp
	case price > sma50 && sma50 > sma200:
		return models.TrendUp
	case price < sma20 && sma20 < sma50 && sma50 < sma200:
		return models.TrendStrongDown
	case price < sma50 && sma50 < sma200:
		return models.TrendDown
	default:
		return models.TrendSideways
	}
}

// ClassifyRSI labels an RSI reading.
func ClassifyRSI(rsi float64) string {
	switch {
	case rsi > overboughtLevel:
		return models.SignalOverbought
	case rsi < oversoldLevel:
		return models.SignalOversold
	default:
		return models.SignalNeutral
	}
}

// Describe renders a one-line human summary, used in logs.
func Describe(s models.TechnicalSnapshot) string {
	return fmt.Sprintf("%s price=%.2f trend=%s rsi=%.1f (%s)", s.Symbol, s.CurrentPrice, s.Trend, s.RSI14.Float64, s.RSISignal)
}

func optional(v float64, ok bool) null.Float {
	return null.NewFloat(v, ok)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
