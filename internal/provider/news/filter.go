package news

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

// Sentiment selects articles by keyword tone.
type Sentiment string

const (
	SentimentAll      Sentiment = "all"
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment reads a sentiment name; ok is false for unknown values.
func ParseSentiment(s string) (Sentiment, bool) {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case "", SentimentAll:
		return SentimentAll, true
	case SentimentPositive, SentimentNegative:
		return v, true
	default:
		return "", false
	}
}

var (
	positiveWords = []string{
		"profit", "growth", "surge", "gain", "rally", "high", "beat",
		"upgrade", "bullish", "positive", "strong", "record", "up",
	}
	negativeWords = []string{
		"loss", "decline", "fall", "drop", "crash", "low", "miss",
		"downgrade", "bearish", "negative", "weak", "concern", "down",
	}
	stopWords = map[string]struct{}{}
)

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by from as is was
		are were been be have has had do does did will would could should may might can this that these those`) {
		stopWords[w] = struct{}{}
	}
}

// FilterBySentiment keeps items whose title or summary contains one of the
// sentiment's keywords. Matching is by substring, so "up" also hits "upbeat".
func FilterBySentiment(items []models.NewsItem, s Sentiment) []models.NewsItem {
	var words []string
	switch s {
	case SentimentPositive:
		words = positiveWords
	case SentimentNegative:
		words = negativeWords
	default:
		return items
	}
	out := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		text := strings.ToLower(it.Title + " " + it.Summary.String)
		for _, w := range words {
			if strings.Contains(text, w) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// Since keeps items published at or after cutoff, at most limit of them
// (no cap when limit <= 0).
func Since(items []models.NewsItem, cutoff time.Time, limit int) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		if it.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Keywords returns the topN most frequent words of text that are longer
// than three letters and not stop words. Ties keep first-seen order.
func Keywords(text string, topN int) []string {
	counts := map[string]int{}
	var order []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, `.,!?;:"()[]{}`)
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if topN >= 0 && len(order) > topN {
		order = order[:topN]
	}
	return order
}
