package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"execbrief/internal/core"
	"execbrief/internal/fetcher"
	"execbrief/internal/filter"
	"execbrief/internal/scorer"
	"execbrief/internal/store"
)

func testWeights() scorer.Weights {
	return scorer.Weights{
		BaseScore:        5,
		KeywordIncrement: 1,
		MaxScore:         10,
		MinScore:         6,
		PriorityKeywords: []string{"launch", "regulation"},
		TopicGroups: map[core.Category]core.TopicGroup{
			core.CategoryStrategic:   core.TopicStrategy,
			core.CategoryOperational: core.TopicOperations,
			core.CategoryTechnical:   core.TopicTechnology,
			core.CategoryRisk:        core.TopicRisk,
			core.CategoryGeneral:     core.TopicOperations,
		},
	}
}

// feedXML builds an RSS payload whose items all carry a recent timestamp.
func feedXML(entries []map[string]string) string {
	published := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	body := `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>t</title>`
	for _, e := range entries {
		body += fmt.Sprintf(
			"<item><title>%s</title><link>%s</link><description>%s</description><pubDate>%s</pubDate></item>",
			e["title"], e["link"], e["desc"], published,
		)
	}
	return body + "</channel></rss>"
}

func staticServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// degradedRunPipeline builds the three-source scenario used across tests:
// source A healthy with a duplicate URL, source B unreachable, source C
// healthy but contributing only a sub-threshold item.
func degradedRunPipeline(t *testing.T, st *store.Store) *Pipeline {
	t.Helper()

	srvA := staticServer(t, feedXML([]map[string]string{
		{"title": "Model launch one", "link": "https://a.example.com/1", "desc": "A launch with details."},
		{"title": "Model launch two", "link": "https://a.example.com/2", "desc": "Another launch story."},
		{"title": "Model launch three", "link": "https://a.example.com/3", "desc": "A third launch update."},
		{"title": "Model launch four", "link": "https://a.example.com/4", "desc": "A fourth launch report."},
		{"title": "Model launch one again", "link": "https://a.example.com/1", "desc": "Same launch, syndicated."},
	}))
	srvB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srvB.Close)
	srvC := staticServer(t, feedXML([]map[string]string{
		{"title": "Quiet industry note", "link": "https://c.example.com/1", "desc": "Nothing pressing happened."},
	}))

	sources := []core.Source{
		{Name: "source-a", URL: srvA.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryTechnical, Rank: 1},
		{Name: "source-b", URL: srvB.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryStrategic, Rank: 2},
		{Name: "source-c", URL: srvC.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryGeneral, Rank: 3},
	}

	weights := testWeights()
	return New(
		sources,
		fetcher.New(fetcher.WithSourceTimeout(5*time.Second)),
		filter.New(nil),
		scorer.NewRuleScorer(weights),
		st,
		weights.MinScore,
		time.Hour,
	)
}

func TestGenerateDegradedRun(t *testing.T) {
	p := degradedRunPipeline(t, nil)

	brief, err := p.Generate(context.Background(), Options{TimeRange: "24h"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// 5 items from A minus one URL duplicate; C's item scores 5 < 6.
	if len(brief.Items) != 4 {
		t.Errorf("Expected 4 items, got %d", len(brief.Items))
	}
	if brief.RejectedCount != 1 {
		t.Errorf("Expected 1 rejected item, got %d", brief.RejectedCount)
	}
	if len(brief.SourcesUsed) != 2 || brief.SourcesUsed[0] != "source-a" || brief.SourcesUsed[1] != "source-c" {
		t.Errorf("Expected sourcesUsed [source-a source-c], got %v", brief.SourcesUsed)
	}
	for _, item := range brief.Items {
		if item.SourceName == "source-b" {
			t.Error("Unreachable source contributed an item")
		}
	}
}

func TestGenerateAllSourcesDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	weights := testWeights()
	p := New(
		[]core.Source{{Name: "down", URL: srv.URL, Format: core.FormatFeed, MaxItems: 5, Category: core.CategoryGeneral, Rank: 1}},
		fetcher.New(),
		filter.New(nil),
		scorer.NewRuleScorer(weights),
		nil,
		weights.MinScore,
		time.Hour,
	)

	if _, err := p.Generate(context.Background(), Options{TimeRange: "24h"}); !errors.Is(err, ErrNoSources) {
		t.Errorf("Expected ErrNoSources, got %v", err)
	}
}

func TestGetOrGenerateServesCachedBrief(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, feedXML([]map[string]string{
			{"title": "Model launch", "link": "https://a.example.com/1", "desc": "A launch with details."},
		}))
	}))
	t.Cleanup(srv.Close)

	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	weights := testWeights()
	p := New(
		[]core.Source{{Name: "s", URL: srv.URL, Format: core.FormatFeed, MaxItems: 5, Category: core.CategoryTechnical, Rank: 1}},
		fetcher.New(),
		filter.New(nil),
		scorer.NewRuleScorer(weights),
		st,
		weights.MinScore,
		time.Hour,
	)

	first, err := p.GetOrGenerate(context.Background(), Options{TimeRange: "24h"})
	if err != nil {
		t.Fatalf("First GetOrGenerate failed: %v", err)
	}
	second, err := p.GetOrGenerate(context.Background(), Options{TimeRange: "24h"})
	if err != nil {
		t.Fatalf("Second GetOrGenerate failed: %v", err)
	}

	if hits.Load() != 1 {
		t.Errorf("Expected one upstream fetch, got %d", hits.Load())
	}
	if first.ID != second.ID {
		t.Errorf("Expected identical cached brief, got IDs %q and %q", first.ID, second.ID)
	}

	// Force bypasses the cache and refetches.
	if _, err := p.GetOrGenerate(context.Background(), Options{TimeRange: "24h", Force: true}); err != nil {
		t.Fatalf("Forced GetOrGenerate failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected forced regeneration to refetch, got %d fetches", hits.Load())
	}
}

func TestGetOrGenerateDistinctParameterSets(t *testing.T) {
	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	p := degradedRunPipeline(t, st)

	day, err := p.GetOrGenerate(context.Background(), Options{TimeRange: "24h"})
	if err != nil {
		t.Fatalf("GetOrGenerate 24h failed: %v", err)
	}
	week, err := p.GetOrGenerate(context.Background(), Options{TimeRange: "7d"})
	if err != nil {
		t.Fatalf("GetOrGenerate 7d failed: %v", err)
	}

	if day.TimeRange != "24h" || week.TimeRange != "7d" {
		t.Errorf("Parameter sets crossed cache entries: %q / %q", day.TimeRange, week.TimeRange)
	}
}

func TestGenerateMaxItemsKeepsTopScores(t *testing.T) {
	srv := staticServer(t, feedXML([]map[string]string{
		{"title": "Launch and regulation news", "link": "https://a.example.com/hi", "desc": "Covers a launch and new regulation."},
		{"title": "Model launch", "link": "https://a.example.com/mid", "desc": "Just a launch."},
		{"title": "Another model launch", "link": "https://a.example.com/mid2", "desc": "Another launch story."},
	}))

	weights := testWeights()
	p := New(
		[]core.Source{{Name: "s", URL: srv.URL, Format: core.FormatFeed, MaxItems: 10, Category: core.CategoryTechnical, Rank: 1}},
		fetcher.New(),
		filter.New(nil),
		scorer.NewRuleScorer(weights),
		nil,
		weights.MinScore,
		time.Hour,
	)

	brief, err := p.Generate(context.Background(), Options{TimeRange: "24h", MaxItems: 1})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(brief.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(brief.Items))
	}
	if brief.Items[0].URL != "https://a.example.com/hi" {
		t.Errorf("Expected highest-scoring item kept, got %q", brief.Items[0].URL)
	}
}

func TestGenerateTagFilter(t *testing.T) {
	p := degradedRunPipeline(t, nil)

	brief, err := p.Generate(context.Background(), Options{TimeRange: "24h", Tag: "technical"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, item := range brief.Items {
		if item.Category != core.CategoryTechnical {
			t.Errorf("Tag filter leaked category %q", item.Category)
		}
	}
	if len(brief.Items) == 0 {
		t.Error("Expected technical items to survive the tag filter")
	}
}

func TestOptionsNormalize(t *testing.T) {
	opts := Options{}
	if err := opts.Normalize(); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if opts.TimeRange != "24h" {
		t.Errorf("Expected default range 24h, got %q", opts.TimeRange)
	}

	bad := Options{TimeRange: "48h"}
	if err := bad.Normalize(); err == nil {
		t.Error("Expected invalid range to fail")
	}
	negative := Options{MaxItems: -1}
	if err := negative.Normalize(); err == nil {
		t.Error("Expected negative max to fail")
	}
	badTag := Options{Tag: "gossip"}
	if err := badTag.Normalize(); err == nil {
		t.Error("Expected unknown tag to fail")
	}
	allTag := Options{Tag: "All"}
	if err := allTag.Normalize(); err != nil {
		t.Errorf("Expected All tag accepted, got %v", err)
	}
}

func TestCacheKeyNormalizesTag(t *testing.T) {
	date := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	a := CacheKey(date, Options{TimeRange: "24h"})
	b := CacheKey(date, Options{TimeRange: "24h", Tag: "All"})
	if a != b {
		t.Errorf("Expected empty and All tags to share a key, got %q and %q", a, b)
	}
	c := CacheKey(date, Options{TimeRange: "24h", Tag: "risk"})
	if a == c {
		t.Error("Expected distinct keys for distinct tags")
	}
}
