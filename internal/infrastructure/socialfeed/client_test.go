package socialfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signalhub/internal/config"
	"signalhub/internal/logging"
	"signalhub/internal/retry"
)

func testClient(baseURL string, accounts ...string) *Client {
	c := NewClient(config.SocialConfig{
		BaseURL:      baseURL,
		APIKey:       "key",
		AccessToken:  "token",
		Accounts:     accounts,
		FetchTimeout: config.Duration(time.Second),
	}, logging.Discard())
	c.retry = retry.Config{MaxAttempts: 1}
	return c
}

func postJSON(id, text string) string {
	return fmt.Sprintf(`{"id":%q,"text":%q,"author_id":"a1","created_at":"2026-03-05T00:00:00Z",
		"public_metrics":{"like_count":2,"retweet_count":1,"reply_count":0,"quote_count":0}}`, id, text)
}

func TestLatestPosts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected authorization: %s", got)
		}
		if got := r.Header.Get("X-API-Key"); got != "key" {
			t.Errorf("unexpected api key: %s", got)
		}

		switch {
		case strings.HasPrefix(r.URL.Path, "/user/alpha/"):
			if got := r.URL.Query().Get("max_results"); got != "5" {
				t.Errorf("unexpected max_results: %s", got)
			}
			_, _ = w.Write([]byte(`{"data":[` + postJSON("1", "post from alpha") + `]}`))
		case strings.HasPrefix(r.URL.Path, "/user/beta/"):
			_, _ = w.Write([]byte(`{"data":[` + postJSON("2", "post from beta") + `]}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	posts, err := testClient(server.URL, "alpha", "beta").LatestPosts(context.Background(), 10)
	if err != nil {
		t.Fatalf("LatestPosts error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}

	first := posts[0]
	if first.ID != "1" || first.Username != "alpha" {
		t.Fatalf("unexpected post: %+v", first)
	}
	if first.URL != "https://twitter.com/alpha/status/1" {
		t.Fatalf("unexpected url: %s", first.URL)
	}
	if first.Likes != 2 || first.Retweets != 1 {
		t.Fatalf("unexpected metrics: %+v", first)
	}
}

func TestLatestPostsToleratesDeadAccount(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/user/dead/") {
			http.Error(w, "suspended", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"data":[` + postJSON("1", "still here") + `]}`))
	}))
	defer server.Close()

	posts, err := testClient(server.URL, "dead", "alive").LatestPosts(context.Background(), 10)
	if err != nil {
		t.Fatalf("one dead account must not fail the fetch: %v", err)
	}
	if len(posts) != 1 || posts[0].Text != "still here" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
}

func TestLatestPostsAllAccountsDown(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := testClient(server.URL, "a", "b").LatestPosts(context.Background(), 10); err == nil {
		t.Fatal("expected error when every account fails")
	}
}

func TestSearchPosts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/search":
			if got := r.URL.Query().Get("query"); got != "mining OR hashrate" {
				t.Errorf("unexpected query: %s", got)
			}
			_, _ = w.Write([]byte(`{"data":[` + postJSON("10", "mining update") + `]}`))
		case strings.HasPrefix(r.URL.Path, "/user/alpha/"):
			// One duplicate of the search result, one new match, one
			// off-topic post.
			_, _ = w.Write([]byte(`{"data":[` +
				postJSON("10", "mining update") + `,` +
				postJSON("11", "Hashrate hits a new high") + `,` +
				postJSON("12", "lunch was great") + `]}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	posts, err := testClient(server.URL, "alpha").SearchPosts(context.Background(), []string{"mining", "hashrate"}, 10)
	if err != nil {
		t.Fatalf("SearchPosts error: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("expected 2 posts after dedupe and filter, got %+v", posts)
	}
	if posts[0].ID != "10" || posts[1].ID != "11" {
		t.Fatalf("unexpected post ids: %s, %s", posts[0].ID, posts[1].ID)
	}
}

func TestSearchPostsSurvivesRecentPassFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			_, _ = w.Write([]byte(`{"data":[` + postJSON("10", "mining update") + `]}`))
			return
		}
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	posts, err := testClient(server.URL, "alpha").SearchPosts(context.Background(), []string{"mining"}, 10)
	if err != nil {
		t.Fatalf("recent pass failure must not fail the search: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "10" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
}

func TestMatchesAny(t *testing.T) {
	t.Parallel()

	if !matchesAny("Bitcoin MINING is back", []string{"mining"}) {
		t.Fatal("expected case-insensitive match")
	}
	if matchesAny("nothing relevant", []string{"mining", "hashrate"}) {
		t.Fatal("expected no match")
	}
}

func TestPostURL(t *testing.T) {
	t.Parallel()

	if got := postURL("alpha", "1"); got != "https://twitter.com/alpha/status/1" {
		t.Fatalf("unexpected url: %s", got)
	}
	if got := postURL("", "1"); got != "" {
		t.Fatalf("expected empty url without username, got %s", got)
	}
}
