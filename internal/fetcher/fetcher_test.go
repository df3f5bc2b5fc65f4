package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"execbrief/internal/core"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Vendor Blog</title>
  <item>
    <title>New model &lt;b&gt;launch&lt;/b&gt;</title>
    <link>https://example.com/launch</link>
    <description>&lt;p&gt;A new model shipped today.&lt;/p&gt;</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <title>Second story</title>
    <link>https://example.com/second</link>
    <description>More detail here.</description>
    <pubDate>Mon, 02 Jan 2006 12:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Research Feed</title>
  <entry>
    <title>Attention study</title>
    <link href="https://arxiv.example.com/abs/1"/>
    <summary>We study attention mechanisms.</summary>
    <updated>2026-08-29T10:00:00Z</updated>
  </entry>
</feed>`

const sampleList = `[
  {"title": "Listing one", "url": "https://example.com/l1", "summary": "First listing item.", "published": "2026-08-29T08:00:00Z"},
  {"title": "Listing two", "link": "https://example.com/l2", "abstract": "Second listing item via abstract.", "published": "2026-08-28T08:00:00Z"}
]`

func feedServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAllRSS(t *testing.T) {
	srv := feedServer(t, sampleRSS)
	f := New()

	src := core.Source{Name: "vendor-blog", URL: srv.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryTechnical, Rank: 1}
	result := f.FetchAll(context.Background(), []core.Source{src})

	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result.Items))
	}
	first := result.Items[0]
	if first.Title != "New model launch" {
		t.Errorf("Expected markup stripped from title, got %q", first.Title)
	}
	if first.Summary != "A new model shipped today." {
		t.Errorf("Expected markup stripped from summary, got %q", first.Summary)
	}
	if first.URL != "https://example.com/launch" {
		t.Errorf("Unexpected URL %q", first.URL)
	}
	if first.Published.IsZero() {
		t.Error("Expected pubDate to parse")
	}
	if first.SourceName != "vendor-blog" || first.Category != core.CategoryTechnical {
		t.Errorf("Source attribution lost: %q / %q", first.SourceName, first.Category)
	}
	if len(result.SourcesUsed) != 1 || result.SourcesUsed[0] != "vendor-blog" {
		t.Errorf("Unexpected sourcesUsed %v", result.SourcesUsed)
	}
}

func TestFetchAllAtom(t *testing.T) {
	srv := feedServer(t, sampleAtom)
	f := New()

	src := core.Source{Name: "research-feed", URL: srv.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryTechnical, Research: true, Rank: 1}
	result := f.FetchAll(context.Background(), []core.Source{src})

	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result.Items))
	}
	item := result.Items[0]
	if item.Title != "Attention study" {
		t.Errorf("Unexpected title %q", item.Title)
	}
	if item.URL != "https://arxiv.example.com/abs/1" {
		t.Errorf("Unexpected URL %q", item.URL)
	}
	if !item.Research {
		t.Error("Expected research flag carried from source")
	}
}

func TestFetchAllJSONList(t *testing.T) {
	srv := feedServer(t, sampleList)
	f := New()

	src := core.Source{Name: "listing", URL: srv.URL, Format: core.FormatList, MaxItems: 10, Category: core.CategoryGeneral, Rank: 1}
	result := f.FetchAll(context.Background(), []core.Source{src})

	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result.Items))
	}
	if result.Items[1].URL != "https://example.com/l2" {
		t.Errorf("Expected link fallback, got %q", result.Items[1].URL)
	}
	if result.Items[1].Summary != "Second listing item via abstract." {
		t.Errorf("Expected abstract fallback, got %q", result.Items[1].Summary)
	}
}

func TestFetchAllPartialFailure(t *testing.T) {
	good := feedServer(t, sampleRSS)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)

	f := New()
	sources := []core.Source{
		{Name: "good", URL: good.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryGeneral, Rank: 1},
		{Name: "bad", URL: bad.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryGeneral, Rank: 2},
	}
	result := f.FetchAll(context.Background(), sources)

	if len(result.Items) != 2 {
		t.Errorf("Expected items from the healthy source, got %d", len(result.Items))
	}
	if result.Failed != 1 {
		t.Errorf("Expected 1 failed source, got %d", result.Failed)
	}
	if len(result.SourcesUsed) != 1 || result.SourcesUsed[0] != "good" {
		t.Errorf("Expected only the healthy source in sourcesUsed, got %v", result.SourcesUsed)
	}
}

func TestFetchAllTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, sampleRSS)
	}))
	t.Cleanup(slow.Close)

	f := New(WithSourceTimeout(50 * time.Millisecond))
	src := core.Source{Name: "slow", URL: slow.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryGeneral, Rank: 1}
	result := f.FetchAll(context.Background(), []core.Source{src})

	if result.Failed != 1 {
		t.Errorf("Expected timed-out source counted as failed, got %d", result.Failed)
	}
	if len(result.Items) != 0 {
		t.Errorf("Expected no items from a timed-out source, got %d", len(result.Items))
	}
}

func TestFetchSourceCapsItems(t *testing.T) {
	srv := feedServer(t, sampleRSS)
	f := New()

	src := core.Source{Name: "capped", URL: srv.URL, Format: core.FormatFeed, MaxItems: 1, Category: core.CategoryGeneral, Rank: 1}
	result := f.FetchAll(context.Background(), []core.Source{src})

	if len(result.Items) != 1 {
		t.Fatalf("Expected item cap of 1 applied, got %d", len(result.Items))
	}
}

func TestFetchAllSourcesUsedFollowsRank(t *testing.T) {
	a := feedServer(t, sampleRSS)
	b := feedServer(t, sampleAtom)

	f := New()
	sources := []core.Source{
		{Name: "second", URL: b.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryGeneral, Rank: 2},
		{Name: "first", URL: a.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryGeneral, Rank: 1},
	}
	result := f.FetchAll(context.Background(), sources)

	if len(result.SourcesUsed) != 2 {
		t.Fatalf("Expected 2 sources used, got %d", len(result.SourcesUsed))
	}
	if result.SourcesUsed[0] != "first" || result.SourcesUsed[1] != "second" {
		t.Errorf("Expected rank order, got %v", result.SourcesUsed)
	}
}

func TestGenerateItemIDDeterministic(t *testing.T) {
	a := generateItemID("src", "https://example.com/x")
	b := generateItemID("src", "https://example.com/x")
	if a != b {
		t.Errorf("Expected deterministic ID, got %q and %q", a, b)
	}
	if a == generateItemID("other", "https://example.com/x") {
		t.Error("Expected ID to vary by source name")
	}
}

func TestParseDateFormats(t *testing.T) {
	cases := []string{
		"Mon, 02 Jan 2006 15:04:05 GMT",
		"2026-08-29T10:00:00Z",
	}
	for _, c := range cases {
		if parseDate(c).IsZero() {
			t.Errorf("Expected %q to parse", c)
		}
	}
	if !parseDate("not a date").IsZero() {
		t.Error("Expected unparseable date to yield zero time")
	}
}
