package news

import (
	"strconv"
	"time"
)

// Category classifies a news item for display grouping
type Category string

const (
	CategoryMarkets  Category = "Markets"
	CategoryCrypto   Category = "Crypto"
	CategoryEquities Category = "Equities"
	CategoryPolicy   Category = "Policy"
)

// Sentiment is the editorial tone attached to a news item
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// Item is a single news entry as served to consumers. Items are immutable
// once written into a cache entry; PublishedLabel is computed exactly once
// at fetch time and never recomputed.
type Item struct {
	Title          string    `json:"title"`
	Source         string    `json:"source"`
	PublishedLabel string    `json:"published_label"`
	Category       Category  `json:"category"`
	Sentiment      Sentiment `json:"sentiment"`
	Summary        string    `json:"summary"`
}

// Entry is a wholesale cache snapshot. Items keep their fetch order, which is
// the display order. Generation is a monotonic fetch counter used to reject
// out-of-order writes when two fetches race.
type Entry struct {
	Items      []Item    `json:"items"`
	WrittenAt  time.Time `json:"written_at"`
	Generation uint64    `json:"generation"`
	Degraded   bool      `json:"degraded"`
}

// Fresh reports whether the entry is still inside its freshness window.
func (e *Entry) Fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.WrittenAt) < ttl
}

// normalizeCategory maps raw feed categories onto the display enum,
// defaulting to Markets when the feed omits or invents one.
func normalizeCategory(raw string) Category {
	switch Category(raw) {
	case CategoryMarkets, CategoryCrypto, CategoryEquities, CategoryPolicy:
		return Category(raw)
	default:
		return CategoryMarkets
	}
}

// normalizeSentiment defaults to neutral for anything the feed does not tag.
func normalizeSentiment(raw string) Sentiment {
	switch Sentiment(raw) {
	case SentimentBullish, SentimentBearish, SentimentNeutral:
		return Sentiment(raw)
	default:
		return SentimentNeutral
	}
}

// RelativeLabel renders a human-readable "N hours ago" style label for a
// publish time. Labels are display-only and computed once at fetch time.
func RelativeLabel(published, now time.Time) string {
	d := now.Sub(published)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return strconv.Itoa(m) + " minutes ago"
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return strconv.Itoa(h) + " hours ago"
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return strconv.Itoa(days) + " days ago"
	}
}
