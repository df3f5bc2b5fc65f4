// Package fetcher retrieves raw candidate items from configured sources.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"execbrief/internal/core"
	"execbrief/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

const defaultUserAgent = "ExecBrief Aggregator/1.0"

// Fetcher fetches items from external sources. Each source is fetched
// independently; a failing source never aborts the run.
type Fetcher struct {
	client        *http.Client
	userAgent     string
	sourceTimeout time.Duration
	concurrency   int
	log           *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSourceTimeout sets the per-source fetch timeout.
func WithSourceTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.sourceTimeout = d }
}

// WithConcurrency sets how many sources are fetched at once.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client (used by tests).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New creates a fetcher with sane defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:        &http.Client{Timeout: 30 * time.Second},
		userAgent:     defaultUserAgent,
		sourceTimeout: 20 * time.Second,
		concurrency:   5,
		log:           logger.Get(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Result holds the outcome of fetching every configured source.
type Result struct {
	Items       []core.RawItem // All fetched items, capped per source
	SourcesUsed []string       // Names of sources that contributed without error
	Failed      int            // Number of sources that failed
}

// FetchAll fetches every source concurrently and merges the results.
// Per-source failures are logged and counted; they never propagate.
// SourcesUsed follows configuration order so output is deterministic
// regardless of fetch completion order.
func (f *Fetcher) FetchAll(ctx context.Context, sources []core.Source) *Result {
	result := &Result{}
	if len(sources) == 0 {
		return result
	}

	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	usedByRank := make(map[int]string)

	for _, src := range sources {
		select {
		case <-ctx.Done():
			f.log.Warn("Fetch cancelled", "reason", ctx.Err())
			wg.Wait()
			return result
		default:
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(s core.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			items, err := f.fetchSource(ctx, s)
			if err != nil {
				f.log.Error("Source fetch failed", "source", s.Name, "error", err.Error())
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return
			}

			mu.Lock()
			result.Items = append(result.Items, items...)
			usedByRank[s.Rank] = s.Name
			mu.Unlock()
		}(src)
	}

	wg.Wait()

	ranks := make([]int, 0, len(usedByRank))
	for rank := range usedByRank {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	for _, rank := range ranks {
		result.SourcesUsed = append(result.SourcesUsed, usedByRank[rank])
	}

	f.log.Info("Fetch completed",
		"sources", len(sources),
		"used", len(result.SourcesUsed),
		"failed", result.Failed,
		"items", len(result.Items),
	)

	return result
}

// fetchSource fetches and parses a single source, applying its item cap.
func (f *Fetcher) fetchSource(ctx context.Context, src core.Source) ([]core.RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.sourceTimeout)
	defer cancel()

	body, err := f.get(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	var items []core.RawItem
	switch src.Format {
	case core.FormatList:
		items, err = parseList(body, src)
	default:
		items, err = parseFeed(body, src)
	}
	if err != nil {
		return nil, err
	}

	if src.MaxItems > 0 && len(items) > src.MaxItems {
		items = items[:src.MaxItems]
	}
	return items, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	// 4 MB cap keeps a misbehaving endpoint from exhausting memory.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// listEntry is one element of a structured JSON listing.
type listEntry struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Link      string `json:"link"` // Some listings use "link" instead of "url"
	Summary   string `json:"summary"`
	Abstract  string `json:"abstract"` // Research listings use "abstract"
	Published string `json:"published"`
}

// parseList decodes a structured JSON listing into raw items.
func parseList(body []byte, src core.Source) ([]core.RawItem, error) {
	var entries []listEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		// Some listings wrap the array in an "items" envelope.
		var envelope struct {
			Items []listEntry `json:"items"`
		}
		if err2 := json.Unmarshal(body, &envelope); err2 != nil || envelope.Items == nil {
			return nil, fmt.Errorf("failed to parse listing: %w", err)
		}
		entries = envelope.Items
	}

	var items []core.RawItem
	for _, entry := range entries {
		url := entry.URL
		if url == "" {
			url = entry.Link
		}
		summary := entry.Summary
		if summary == "" {
			summary = entry.Abstract
		}
		items = append(items, newRawItem(src, entry.Title, url, summary, parseDate(entry.Published)))
	}
	return items, nil
}

// newRawItem builds a RawItem from fetched fields, cleaning summary HTML
// and deriving the deterministic item ID.
func newRawItem(src core.Source, title, url, summary string, published time.Time) core.RawItem {
	return core.RawItem{
		ID:         generateItemID(src.Name, url),
		Title:      strings.TrimSpace(stripHTML(title)),
		URL:        strings.TrimSpace(url),
		SourceName: src.Name,
		Published:  published,
		Summary:    strings.TrimSpace(stripHTML(summary)),
		Category:   src.Category,
		Research:   src.Research,
		SourceRank: src.Rank,
	}
}

// stripHTML flattens markup in feed text to plain text. Feed descriptions
// routinely embed HTML; downstream stages expect text only.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	text := doc.Text()
	return strings.Join(strings.Fields(text), " ")
}

// generateItemID creates a deterministic ID for an item based on its origin.
func generateItemID(sourceName, url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceName+url)).String()
}
