// Package pipeline composes the brief generation stages: fetch, filter,
// score, assemble, with a same-day cache in front.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"execbrief/internal/core"
	"execbrief/internal/fetcher"
	"execbrief/internal/filter"
	"execbrief/internal/logger"
	"execbrief/internal/report"
	"execbrief/internal/scorer"
	"execbrief/internal/store"
)

// ErrNoSources indicates that no configured source was reachable, so no
// brief could be assembled at all. Callers should suggest a retry.
var ErrNoSources = errors.New("no sources reachable; try again later")

// TimeRanges enumerates the accepted time-range parameters.
var TimeRanges = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"14d": 14 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// Options are the per-request pipeline parameters.
type Options struct {
	TimeRange string // One of the TimeRanges keys; defaults to "24h"
	MaxItems  int    // Cap on items in the brief; 0 means no cap
	Tag       string // Category filter; empty or "All" keeps everything
	Force     bool   // Skip the cache and regenerate
}

// Normalize fills defaults and validates the options.
func (o *Options) Normalize() error {
	if o.TimeRange == "" {
		o.TimeRange = "24h"
	}
	if _, ok := TimeRanges[o.TimeRange]; !ok {
		return fmt.Errorf("invalid range %q (want 24h, 7d, 14d, or 30d)", o.TimeRange)
	}
	if o.MaxItems < 0 {
		return fmt.Errorf("invalid max %d", o.MaxItems)
	}
	if o.Tag != "" && !strings.EqualFold(o.Tag, "All") && !validCategory(o.Tag) {
		return fmt.Errorf("invalid tag %q", o.Tag)
	}
	return nil
}

func validCategory(tag string) bool {
	for _, cat := range core.Categories {
		if string(cat) == tag {
			return true
		}
	}
	return false
}

// Pipeline owns the stages of one brief generation run. RawItems and
// ScoredItems never escape a run; only the Brief crosses the run boundary
// via the store.
type Pipeline struct {
	sources  []core.Source
	fetcher  *fetcher.Fetcher
	filter   *filter.Engine
	scorer   scorer.Scorer
	store    *store.Store
	minScore int
	cacheTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// New creates a pipeline. The store may be nil, in which case every request
// recomputes.
func New(sources []core.Source, f *fetcher.Fetcher, eng *filter.Engine, sc scorer.Scorer, st *store.Store, minScore int, cacheTTL time.Duration) *Pipeline {
	return &Pipeline{
		sources:  sources,
		fetcher:  f,
		filter:   eng,
		scorer:   sc,
		store:    st,
		minScore: minScore,
		cacheTTL: cacheTTL,
		log:      logger.Get(),
		now:      time.Now,
	}
}

// CacheKey derives the cache key for a set of options on a given date.
// One brief exists per distinct (date, parameter-set).
func CacheKey(date time.Time, opts Options) string {
	tag := opts.Tag
	if tag == "" || strings.EqualFold(tag, "All") {
		tag = "all"
	}
	return fmt.Sprintf("%s|%s|%d|%s", date.UTC().Format("2006-01-02"), opts.TimeRange, opts.MaxItems, tag)
}

// GetOrGenerate returns the cached brief for today's (date, parameter-set)
// key when present, generating and caching otherwise.
func (p *Pipeline) GetOrGenerate(ctx context.Context, opts Options) (*core.Brief, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	key := CacheKey(p.now(), opts)
	if p.store != nil && !opts.Force {
		cached, err := p.store.GetBrief(key, p.cacheTTL)
		if err != nil {
			p.log.Warn("Brief cache read failed, regenerating", "error", err.Error())
		} else if cached != nil {
			p.log.Debug("Brief cache hit", "key", key)
			return cached, nil
		}
	}

	brief, err := p.Generate(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Never persist a partial result for a cancelled request; the brief is
	// written whole or not at all.
	if p.store != nil && ctx.Err() == nil {
		if err := p.store.UpsertBrief(key, brief); err != nil {
			p.log.Warn("Brief cache write failed", "error", err.Error())
		}
	}

	return brief, nil
}

// Generate runs the four stages once: fetch every source, filter and
// dedup, score, assemble. Source and item failures degrade the result;
// only a run with zero reachable sources fails outright.
func (p *Pipeline) Generate(ctx context.Context, opts Options) (*core.Brief, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	fetched := p.fetcher.FetchAll(ctx, p.sources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(fetched.SourcesUsed) == 0 {
		return nil, ErrNoSources
	}

	cutoff := p.now().Add(-TimeRanges[opts.TimeRange])
	filtered := p.filter.Apply(fetched.Items, cutoff)

	scored, err := scorer.ScoreAll(ctx, p.scorer, filtered.Kept, p.minScore)
	if err != nil {
		return nil, err
	}

	items := scored.Items
	if opts.Tag != "" && !strings.EqualFold(opts.Tag, "All") {
		items = filterByCategory(items, core.Category(opts.Tag))
	}
	if opts.MaxItems > 0 && len(items) > opts.MaxItems {
		items = topByScore(items, opts.MaxItems)
	}

	brief := report.Assemble(items, opts.TimeRange, fetched.SourcesUsed, scored.Rejected)

	p.log.Info("Brief generated",
		"range", opts.TimeRange,
		"fetched", len(fetched.Items),
		"kept", len(filtered.Kept),
		"items", len(brief.Items),
		"rejected", brief.RejectedCount,
		"sources_used", len(brief.SourcesUsed),
	)

	return brief, nil
}

func filterByCategory(items []core.ScoredItem, cat core.Category) []core.ScoredItem {
	var kept []core.ScoredItem
	for _, item := range items {
		if item.Category == cat {
			kept = append(kept, item)
		}
	}
	return kept
}

// topByScore keeps the n highest-scoring items, ties broken by recency.
func topByScore(items []core.ScoredItem, n int) []core.ScoredItem {
	ranked := make([]core.ScoredItem, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ImportanceScore != ranked[j].ImportanceScore {
			return ranked[i].ImportanceScore > ranked[j].ImportanceScore
		}
		return ranked[i].Published.After(ranked[j].Published)
	})
	return ranked[:n]
}
