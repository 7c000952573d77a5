package categorize

import (
	"regexp"
	"strings"

	"signalhub/internal/domain"
)

// Entry pairs one category with its literal keyword set. Matching is
// case-insensitive substring containment.
type Entry struct {
	Category domain.Category
	Keywords []string
}

// Taxonomy is the fixed, ordered category table. The order is part of the
// contract: score ties resolve to the earliest entry, so reordering changes
// classification output.
var Taxonomy = []Entry{
	{domain.CategoryTrends, []string{
		"trend", "trending", "viral", "popular", "momentum", "surge",
		"rally", "pump", "moon", "bullish", "bearish", "sentiment",
	}},
	{domain.CategoryLiquidity, []string{
		"liquidity", "volume", "tvl", "trading volume", "market depth",
		"liquidation", "liquidity pool", "dex", "swap", "exchange",
	}},
	{domain.CategoryAgents, []string{
		"agent", "ai", "bot", "automation", "virtual", "autonomous",
		"ai agent", "llm", "chatbot", "game", "virtuals",
	}},
	{domain.CategoryMacroEvents, []string{
		"fed", "interest rate", "inflation", "regulation", "sec", "government",
		"policy", "ban", "law", "compliance", "legal", "etf", "institutional",
		"blackrock", "fidelity", "election",
	}},
	{domain.CategoryProofOfWork, []string{
		"mining", "miner", "hashrate", "difficulty", "pow", "proof of work",
		"asic", "gpu", "energy", "bitcoin mining", "ethereum mining",
	}},
}

// DefaultCategory is assigned when every category scores zero.
const DefaultCategory = domain.CategoryTrends

// searchKeywords drive the social-post search for each non-trends category.
var searchKeywords = map[domain.Category][]string{
	domain.CategoryLiquidity:   {"liquidity", "volume", "dex", "trading", "swap", "pool"},
	domain.CategoryAgents:      {"ai", "agent", "bot", "llm", "autonomous", "virtual"},
	domain.CategoryMacroEvents: {"regulation", "sec", "fed", "etf", "government", "policy", "institutional"},
	domain.CategoryProofOfWork: {"mining", "hashrate", "miner", "pow", "difficulty", "asic"},
}

// SearchKeywords returns the pinned social-search terms for a category, or
// nil for categories served from the plain account feeds.
func SearchKeywords(category domain.Category) []string {
	return searchKeywords[category]
}

// Item scores the item's text against every taxonomy entry and returns the
// category with the strictly highest keyword count. Ties keep the earliest
// entry; an all-zero score falls back to the default category.
func Item(it domain.Item) domain.Category {
	text := it.SearchText()

	best := DefaultCategory
	bestScore := 0
	for _, entry := range Taxonomy {
		score := 0
		for _, kw := range entry.Keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best = entry.Category
			bestScore = score
		}
	}

	return best
}

// All assigns a category to every item and returns the items together with a
// stable partition: each bucket preserves the items' relative order from the
// input sequence.
func All(items []domain.Item) ([]domain.Item, map[domain.Category][]domain.Item) {
	buckets := make(map[domain.Category][]domain.Item, len(Taxonomy))
	for _, entry := range Taxonomy {
		buckets[entry.Category] = nil
	}

	out := make([]domain.Item, len(items))
	for i, it := range items {
		it.Category = Item(it)
		out[i] = it
		buckets[it.Category] = append(buckets[it.Category], it)
	}
	return out, buckets
}

var wordRe = regexp.MustCompile(`\b\w+\b`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "is": {}, "are": {}, "was": {}, "were": {},
}

var cryptoStems = []string{"crypto", "token", "coin", "blockchain", "defi"}

// ExtractKeywords pulls searchable terms from free text, crypto terms first,
// stop words and short words dropped.
func ExtractKeywords(text string, limit int) []string {
	words := wordRe.FindAllString(strings.ToLower(text), -1)

	var cryptoTerms, otherTerms []string
	for _, w := range words {
		if _, stop := stopWords[w]; stop || len(w) <= 3 {
			continue
		}
		isCrypto := false
		for _, stem := range cryptoStems {
			if strings.Contains(w, stem) {
				isCrypto = true
				break
			}
		}
		if isCrypto {
			cryptoTerms = append(cryptoTerms, w)
		} else {
			otherTerms = append(otherTerms, w)
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, w := range append(cryptoTerms, otherTerms...) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == limit {
			break
		}
	}
	return out
}
