package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// NewsItem is one article from a news feed.
type NewsItem struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title"`
	Link        string      `json:"link"`
	Source      string      `json:"source"`
	PublishedAt time.Time   `json:"published"`
	Summary     null.String `json:"summary" swaggertype:"string"`
}

// NewsFeed is the ordered result of one news query.
type NewsFeed struct {
	Query string     `json:"query"`
	Items []NewsItem `json:"articles"`
}
