package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"
)

// SignalRecord is the durable projection of one categorized feed item.
type SignalRecord struct {
	ID             string
	Source         Source
	Signal         string
	Sentiment      string
	SentimentValue float64
	Timestamp      float64
	Categories     []string
	ShortContext   string
	LongContext    string
	Sources        []string
	Author         string
	Tokens         []string
	SourceURL      string
	CreatedAt      time.Time
}

// NaturalKey returns the record's stable identity: the upstream id when one
// exists, otherwise a digest of url+source.
func (r SignalRecord) NaturalKey() string {
	if r.ID != "" {
		return r.ID
	}
	sum := sha1.Sum([]byte(r.SourceURL + "|" + string(r.Source)))
	return hex.EncodeToString(sum[:])
}

// CategorySnapshot is a durable, time-windowed aggregate of signal items for
// one category. A snapshot younger than the merge window is overwritten in
// place; older ones are left behind as history.
type CategorySnapshot struct {
	ID          int64
	Category    Category
	Items       json.RawMessage
	ItemCount   int
	LastUpdated time.Time
	CreatedAt   time.Time
}
