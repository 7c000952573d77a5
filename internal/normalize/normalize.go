package normalize

import (
	"log/slog"
	"slices"
	"time"

	"signalhub/internal/domain"
)

// layouts are tried in order for free-form timestamp strings. RFC3339 comes
// first so a trailing Z is read as a UTC offset; RubyDate covers the classic
// social-post format.
var layouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RubyDate,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalizer converts heterogeneous upstream timestamps to canonical UTC
// instants. Parse failures never propagate: the current instant is substituted
// and a warning logged.
type Normalizer struct {
	logger *slog.Logger
	now    func() time.Time
}

// New builds a normalizer; logger may be nil.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger, now: time.Now}
}

// Instant normalizes a single timestamp value: an already-canonical time
// passes through, numeric values are read as unix seconds, strings are parsed
// against the layout list.
func (n *Normalizer) Instant(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v.UTC()
	case int:
		return time.Unix(int64(v), 0).UTC()
	case int64:
		return time.Unix(v, 0).UTC()
	case float64:
		sec := int64(v)
		nsec := int64((v - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC()
	case string:
		if v != "" {
			for _, layout := range layouts {
				if t, err := time.Parse(layout, v); err == nil {
					return t.UTC()
				}
			}
		}
	}

	n.logger.Warn("could not parse date, using current time", "value", value)
	return n.now().UTC()
}

// Item attaches the canonical instant derived from the item's raw timestamp,
// falling back to the current instant when the upstream sent none.
func (n *Normalizer) Item(it domain.Item) domain.Item {
	raw := it.RawTimestamp()
	if raw == "" {
		it.Instant = n.now().UTC()
		return it
	}
	it.Instant = n.Instant(raw)
	return it
}

// Items normalizes a whole batch, preserving order.
func (n *Normalizer) Items(items []domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	for i, it := range items {
		out[i] = n.Item(it)
	}
	return out
}

// SortByDate stable-sorts items by canonical instant. Stability is the sole
// tie-break for items sharing a timestamp. Items with a zero instant behave
// as the oldest possible instant and land last in descending order.
func SortByDate(items []domain.Item, descending bool) {
	slices.SortStableFunc(items, func(a, b domain.Item) int {
		c := a.Instant.Compare(b.Instant)
		if descending {
			return -c
		}
		return c
	})
}
