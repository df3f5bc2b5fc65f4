// Package filter reduces fetched items to relevant, unique candidates.
package filter

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"execbrief/internal/core"
)

// Engine applies relevance filtering and deduplication to raw items.
type Engine struct {
	terms map[core.Category][]string
}

// New creates a filter engine with per-category relevance term lists.
// Categories without a term list are treated as specialized feeds and
// pass the relevance check unconditionally.
func New(terms map[core.Category][]string) *Engine {
	return &Engine{terms: terms}
}

// Result summarizes one filtering pass.
type Result struct {
	Kept              []core.RawItem // Items surviving relevance, dedup, and quality checks
	DroppedIrrelevant int            // Items with no relevance term match
	DroppedDuplicate  int            // Items collapsed into a duplicate
	DroppedEmpty      int            // Items with no summary text
	DroppedStale      int            // Items published before the requested cutoff
}

// Apply filters items fetched from possibly many sources. The cutoff, when
// non-zero, drops items published before it; items with no parseable
// timestamp are kept regardless. The result is deterministic for a given
// item set independent of input order.
func (e *Engine) Apply(items []core.RawItem, cutoff time.Time) *Result {
	result := &Result{}
	byKey := make(map[string]core.RawItem)
	var order []string

	for _, item := range items {
		// Summary is required for downstream scoring.
		if strings.TrimSpace(item.Summary) == "" {
			result.DroppedEmpty++
			continue
		}

		if !cutoff.IsZero() && !item.Published.IsZero() && item.Published.Before(cutoff) {
			result.DroppedStale++
			continue
		}

		if !e.relevant(item) {
			result.DroppedIrrelevant++
			continue
		}

		key := DedupKey(item)
		existing, seen := byKey[key]
		if !seen {
			byKey[key] = item
			order = append(order, key)
			continue
		}

		result.DroppedDuplicate++
		if preferOver(item, existing) {
			byKey[key] = item
		}
	}

	for _, key := range order {
		result.Kept = append(result.Kept, byKey[key])
	}
	return result
}

// relevant reports whether the item matches its category's term list.
func (e *Engine) relevant(item core.RawItem) bool {
	terms, ok := e.terms[item.Category]
	if !ok || len(terms) == 0 {
		return true
	}

	haystack := strings.ToLower(item.Title + " " + item.Summary)
	for _, term := range terms {
		if strings.Contains(haystack, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// preferOver reports whether candidate should replace existing when both
// share a dedup key. The comparison is symmetric in the sense that for a
// given pair the same winner is chosen whichever arrives first:
// research-flagged sources win, then the earlier published timestamp
// (zero timestamps lose), then the source appearing first in configuration.
func preferOver(candidate, existing core.RawItem) bool {
	if candidate.Research != existing.Research {
		return candidate.Research
	}

	cz, ez := candidate.Published.IsZero(), existing.Published.IsZero()
	switch {
	case cz && !ez:
		return false
	case !cz && ez:
		return true
	case !cz && !ez && !candidate.Published.Equal(existing.Published):
		return candidate.Published.Before(existing.Published)
	}

	return candidate.SourceRank < existing.SourceRank
}

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// DedupKey returns the key used to detect duplicate items: the normalized
// origin URL, or a normalized-title fallback when the URL is absent.
func DedupKey(item core.RawItem) string {
	if u := normalizeURL(item.URL); u != "" {
		return "u:" + u
	}
	return "t:" + NormalizeTitle(item.Title)
}

// normalizeURL canonicalizes a URL so trivially different forms of the same
// origin URL collapse: scheme and tracking parameters are dropped, host is
// case-folded, trailing slashes removed.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}

	query := u.Query()
	for param := range query {
		if strings.HasPrefix(param, "utm_") || param == "ref" || param == "source" {
			query.Del(param)
		}
	}
	u.RawQuery = query.Encode()
	u.Scheme = ""
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")

	return strings.TrimPrefix(u.String(), "//")
}

// NormalizeTitle case-folds a title and strips punctuation and extra
// whitespace, producing the fallback dedup key.
func NormalizeTitle(title string) string {
	title = strings.ToLower(title)
	title = punctuation.ReplaceAllString(title, "")
	return strings.Join(strings.Fields(title), " ")
}
