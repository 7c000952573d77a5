package merge

import (
	"regexp"
	"strings"

	"signalhub/internal/domain"
)

const shortContextLimit = 280

var tokenRe = regexp.MustCompile(`\$[A-Za-z][A-Za-z0-9]{1,9}`)

// ToSignals projects categorized items into their durable signal form.
func ToSignals(items []domain.Item) []domain.SignalRecord {
	records := make([]domain.SignalRecord, 0, len(items))
	for _, it := range items {
		switch {
		case it.News != nil:
			records = append(records, newsSignal(it))
		case it.Social != nil:
			records = append(records, socialSignal(it))
		}
	}
	return records
}

func newsSignal(it domain.Item) domain.SignalRecord {
	n := it.News
	return domain.SignalRecord{
		Source:         domain.SourceNews,
		Signal:         n.Title,
		Sentiment:      sentimentLabel(n.Sentiment),
		SentimentValue: sentimentValue(n.Sentiment),
		Timestamp:      instantUnix(it),
		Categories:     []string{string(it.Category)},
		ShortContext:   truncate(n.Content, shortContextLimit),
		LongContext:    n.Content,
		Sources:        []string{it.URL},
		Author:         n.SourceName,
		Tokens:         extractTokens(n.Title + " " + n.Content),
		SourceURL:      it.URL,
	}
}

func socialSignal(it domain.Item) domain.SignalRecord {
	s := it.Social
	return domain.SignalRecord{
		ID:             s.ID,
		Source:         domain.SourceSocial,
		Signal:         s.Text,
		Sentiment:      "neutral",
		SentimentValue: 0.5,
		Timestamp:      instantUnix(it),
		Categories:     []string{string(it.Category)},
		ShortContext:   truncate(s.Text, shortContextLimit),
		LongContext:    s.Text,
		Sources:        []string{it.URL},
		Author:         s.Username,
		Tokens:         extractTokens(s.Text),
		SourceURL:      it.URL,
	}
}

func instantUnix(it domain.Item) float64 {
	if it.Instant.IsZero() {
		return 0
	}
	return float64(it.Instant.UnixNano()) / 1e9
}

func sentimentLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "neutral"
	}
	return s
}

func sentimentValue(s string) float64 {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "bullish":
		return 0.75
	case "negative", "bearish":
		return 0.25
	default:
		return 0.5
	}
}

func extractTokens(text string) []string {
	matches := tokenRe.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		upper := strings.ToUpper(m)
		if _, dup := seen[upper]; dup {
			continue
		}
		seen[upper] = struct{}{}
		out = append(out, upper)
	}
	return out
}
