package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
<title>Founders</title>
<item>
<title>#42 Steve Jobs</title>
<description>&lt;p&gt;David Senra&amp;#39;s episode is entirely based on Walter Isaacson&amp;#39;s &amp;#39;Steve Jobs&amp;#39; biography.&lt;/p&gt;</description>
<pubDate>Thu, 14 Aug 2025 10:00:00 +0000</pubDate>
<link>https://example.com/episodes/42</link>
<guid isPermaLink="false">ep-42</guid>
</item>
<item>
<title>#43 The Lean Startup</title>
<description></description>
<content:encoded>&lt;p&gt;Short one-book episode about The Lean Startup by Eric Ries.&lt;/p&gt;</content:encoded>
<pubDate>Thu, 21 Aug 2025 10:00:00 +0000</pubDate>
<link>https://example.com/episodes/43</link>
<guid></guid>
</item>
</channel>
</rss>`

func TestParseRSS(t *testing.T) {
	episodes, err := ParseRSS([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("ParseRSS: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("len = %d, want 2", len(episodes))
	}

	first := episodes[0]
	if first.ID != "ep-42" {
		t.Errorf("ID = %q, want guid", first.ID)
	}
	if first.Title != "#42 Steve Jobs" {
		t.Errorf("Title = %q", first.Title)
	}
	want := "David Senra's episode is entirely based on Walter Isaacson's 'Steve Jobs' biography."
	if first.Description != want {
		t.Errorf("Description = %q, want %q", first.Description, want)
	}

	second := episodes[1]
	if second.ID != "https://example.com/episodes/43" {
		t.Errorf("ID = %q, want link fallback", second.ID)
	}
	if second.Description != "Short one-book episode about The Lean Startup by Eric Ries." {
		t.Errorf("content:encoded fallback not used: %q", second.Description)
	}
}

func TestParseRSSInvalid(t *testing.T) {
	if _, err := ParseRSS([]byte("not xml at all <<<")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"plain text", "plain text"},
		{"a &amp; b", "a & b"},
		{"  lots\n\nof   space  ", "lots of space"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := StripHTML(tc.in); got != tc.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFetchEpisodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "podshelf/1.0" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	episodes, err := client.FetchEpisodes(context.Background())
	if err != nil {
		t.Fatalf("FetchEpisodes: %v", err)
	}
	if len(episodes) != 2 {
		t.Errorf("len = %d, want 2", len(episodes))
	}
}

func TestFetchEpisodesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	if _, err := client.FetchEpisodes(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
