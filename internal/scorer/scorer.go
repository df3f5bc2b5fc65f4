// Package scorer assigns importance scores and topic groups to filtered items.
package scorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"execbrief/internal/core"
)

// Scorer turns a surviving raw item into a scored item. Implementations
// must return scores within [0, Weights.MaxScore] and a topic group from
// the fixed set.
type Scorer interface {
	ScoreItem(ctx context.Context, item core.RawItem) (core.ScoredItem, error)
}

// Weights is the configurable rule-based scoring model.
type Weights struct {
	BaseScore        int                               // Starting midpoint score
	KeywordIncrement int                               // Added per distinct priority keyword match
	CategoryBonus    int                               // Added for categories in BonusCategories
	RecencyBonus     int                               // Added for items published within RecencyWindow
	MaxScore         int                               // Upper bound of the score range
	MinScore         int                               // Items below this are rejected
	PriorityKeywords []string                          // Signals that raise importance
	BonusCategories  map[core.Category]bool            // Categories receiving the category bonus
	TopicGroups      map[core.Category]core.TopicGroup // Total category to group mapping
	RecencyWindow    time.Duration                     // Window for the recency bonus
}

// DefaultRecencyWindow is used when Weights.RecencyWindow is zero.
const DefaultRecencyWindow = 24 * time.Hour

// RuleScorer is the deterministic keyword-weighted scoring model. It is
// always available and serves as the fallback for the oracle path.
type RuleScorer struct {
	weights Weights
	now     func() time.Time
}

// NewRuleScorer creates a rule-based scorer from configured weights.
func NewRuleScorer(weights Weights) *RuleScorer {
	if weights.RecencyWindow <= 0 {
		weights.RecencyWindow = DefaultRecencyWindow
	}
	return &RuleScorer{weights: weights, now: time.Now}
}

// ScoreItem computes the rule-based score: base midpoint, plus an increment
// per distinct priority keyword in title+summary, plus category and recency
// bonuses, clamped to [0, MaxScore]. It never fails.
func (rs *RuleScorer) ScoreItem(_ context.Context, item core.RawItem) (core.ScoredItem, error) {
	matched := rs.matchedKeywords(item)

	score := rs.weights.BaseScore
	score += len(matched) * rs.weights.KeywordIncrement
	if rs.weights.BonusCategories[item.Category] {
		score += rs.weights.CategoryBonus
	}
	if !item.Published.IsZero() && rs.now().Sub(item.Published) <= rs.weights.RecencyWindow {
		score += rs.weights.RecencyBonus
	}

	if score > rs.weights.MaxScore {
		score = rs.weights.MaxScore
	}
	if score < 0 {
		score = 0
	}

	group, ok := rs.weights.TopicGroups[item.Category]
	if !ok || !core.ValidTopicGroup(group) {
		// Validate at config load guarantees totality; this is the
		// in-process backstop so an unmapped category can never reach
		// the assembler.
		return core.ScoredItem{}, fmt.Errorf("category %q has no topic group mapping", item.Category)
	}

	return core.ScoredItem{
		RawItem:         item,
		ImportanceScore: score,
		TopicGroup:      group,
		Synthesis:       synthesize(item.Summary),
		WhyItMatters:    whyItMatters(item.Category, matched),
		ScoredBy:        "rules",
	}, nil
}

// matchedKeywords returns the distinct priority keywords present in the
// item's title or summary.
func (rs *RuleScorer) matchedKeywords(item core.RawItem) []string {
	haystack := strings.ToLower(item.Title + " " + item.Summary)

	var matched []string
	for _, keyword := range rs.weights.PriorityKeywords {
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			matched = append(matched, keyword)
		}
	}
	return matched
}

// synthesize produces a display summary from raw summary text: the first
// two sentences, bounded in length.
func synthesize(summary string) string {
	const maxLen = 400

	sentences := strings.SplitAfterN(summary, ". ", 3)
	synthesis := summary
	if len(sentences) >= 2 {
		synthesis = sentences[0] + sentences[1]
	}
	synthesis = strings.TrimSpace(synthesis)

	if len(synthesis) > maxLen {
		cut := synthesis[:maxLen]
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		synthesis = cut + "…"
	}
	return synthesis
}

// whyItMatters produces the deterministic relevance note used when the
// oracle is unavailable.
func whyItMatters(category core.Category, matched []string) string {
	var angle string
	switch category {
	case core.CategoryStrategic:
		angle = "Signals a shift worth factoring into AI strategy."
	case core.CategoryRisk:
		angle = "Touches regulatory or safety exposure for AI deployments."
	case core.CategoryTechnical:
		angle = "Marks a capability change teams may want to evaluate."
	default:
		angle = "Relevant to how organizations are putting AI to work."
	}

	if len(matched) == 0 {
		return angle
	}
	shown := matched
	if len(shown) > 3 {
		shown = shown[:3]
	}
	return fmt.Sprintf("%s Priority signals: %s.", angle, strings.Join(shown, ", "))
}

// Result is the outcome of scoring a filtered item set.
type Result struct {
	Items    []core.ScoredItem // Items at or above the minimum score, input order preserved
	Rejected int               // Items scored below the minimum threshold
}

// ScoreAll scores every item and applies the minimum-score threshold.
// Items below the threshold never become output; they are counted as
// rejected. A per-item scoring failure also rejects just that item.
func ScoreAll(ctx context.Context, scorer Scorer, items []core.RawItem, minScore int) (*Result, error) {
	result := &Result{}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		scored, err := scorer.ScoreItem(ctx, item)
		if err != nil {
			result.Rejected++
			continue
		}
		if scored.ImportanceScore < minScore {
			result.Rejected++
			continue
		}
		result.Items = append(result.Items, scored)
	}
	return result, nil
}
