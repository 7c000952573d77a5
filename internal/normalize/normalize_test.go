package normalize

import (
	"testing"
	"time"

	"signalhub/internal/domain"
	"signalhub/internal/logging"
)

func TestInstantLayouts(t *testing.T) {
	t.Parallel()

	n := New(logging.Discard())
	want := time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		name  string
		value string
	}{
		{"rfc3339", "2026-03-05T14:30:00Z"},
		{"rfc3339 offset", "2026-03-05T16:30:00+02:00"},
		{"rfc1123z", "Thu, 05 Mar 2026 14:30:00 +0000"},
		{"ruby date", "Thu Mar 05 14:30:00 +0000 2026"},
		{"sql datetime", "2026-03-05 14:30:00"},
		{"datetime no zone", "2026-03-05T14:30:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := n.Instant(tc.value)
			if !got.Equal(want) {
				t.Fatalf("Instant(%q) = %v, want %v", tc.value, got, want)
			}
		})
	}
}

func TestInstantDateOnly(t *testing.T) {
	t.Parallel()

	n := New(logging.Discard())
	got := n.Instant("2026-03-05")
	want := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Instant = %v, want %v", got, want)
	}
}

func TestInstantNumeric(t *testing.T) {
	t.Parallel()

	n := New(logging.Discard())
	want := time.Unix(1767225600, 0).UTC()

	if got := n.Instant(int64(1767225600)); !got.Equal(want) {
		t.Fatalf("int64 instant = %v, want %v", got, want)
	}
	if got := n.Instant(1767225600); !got.Equal(want) {
		t.Fatalf("int instant = %v, want %v", got, want)
	}
	if got := n.Instant(1767225600.5); got.Unix() != want.Unix() {
		t.Fatalf("float instant = %v, want second %d", got, want.Unix())
	}
}

func TestInstantPassthrough(t *testing.T) {
	t.Parallel()

	n := New(logging.Discard())
	loc := time.FixedZone("plus2", 2*3600)
	in := time.Date(2026, time.March, 5, 16, 30, 0, 0, loc)

	got := n.Instant(in)
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if !got.Equal(in) {
		t.Fatalf("instant changed: %v vs %v", got, in)
	}
}

func TestInstantFallback(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	n := New(logging.Discard())
	n.now = func() time.Time { return fixed }

	if got := n.Instant("not a date at all"); !got.Equal(fixed) {
		t.Fatalf("garbage string: got %v, want %v", got, fixed)
	}
	if got := n.Instant(nil); !got.Equal(fixed) {
		t.Fatalf("nil value: got %v, want %v", got, fixed)
	}
	if got := n.Instant(""); !got.Equal(fixed) {
		t.Fatalf("empty string: got %v, want %v", got, fixed)
	}
}

func TestItemMissingTimestamp(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	n := New(logging.Discard())
	n.now = func() time.Time { return fixed }

	it := n.Item(domain.FromNews(domain.NewsItem{Title: "no date"}))
	if !it.Instant.Equal(fixed) {
		t.Fatalf("expected fallback instant %v, got %v", fixed, it.Instant)
	}
}

func TestSortByDateStable(t *testing.T) {
	t.Parallel()

	at := func(ts string) time.Time {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			t.Fatalf("parse %q: %v", ts, err)
		}
		return parsed
	}

	items := []domain.Item{
		{URL: "old", Instant: at("2026-03-01T00:00:00Z")},
		{URL: "tie-first", Instant: at("2026-03-05T00:00:00Z")},
		{URL: "tie-second", Instant: at("2026-03-05T00:00:00Z")},
		{URL: "newest", Instant: at("2026-03-09T00:00:00Z")},
	}

	SortByDate(items, true)

	wantOrder := []string{"newest", "tie-first", "tie-second", "old"}
	for i, want := range wantOrder {
		if items[i].URL != want {
			t.Fatalf("position %d: got %s, want %s", i, items[i].URL, want)
		}
	}

	SortByDate(items, false)
	if items[0].URL != "old" || items[3].URL != "newest" {
		t.Fatalf("ascending order wrong: %s ... %s", items[0].URL, items[3].URL)
	}
}

func TestSortByDateZeroInstantLast(t *testing.T) {
	t.Parallel()

	items := []domain.Item{
		{URL: "zero"},
		{URL: "real", Instant: time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)},
	}

	SortByDate(items, true)
	if items[0].URL != "real" || items[1].URL != "zero" {
		t.Fatalf("zero instant should sort last descending, got %s, %s", items[0].URL, items[1].URL)
	}
}
