// Package report assembles scored items into a Brief and renders exports.
package report

import (
	"fmt"
	"sort"
	"time"

	"execbrief/internal/core"

	"github.com/google/uuid"
)

// MaxExportItems caps how many items an export request may carry. Larger
// payloads are rejected rather than rendered.
const MaxExportItems = 100

// ValidationError marks a brief that fails structural validation. Callers
// map it to a 400 response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Assemble builds a Brief from scored items: items are bucketed by topic
// group, each bucket sorted by score descending with ties broken by
// published timestamp descending (zero timestamps last). The flat Items
// list follows the fixed group order, so assembly is reproducible for a
// given scored-item set.
func Assemble(items []core.ScoredItem, timeRange string, sourcesUsed []string, rejected int) *core.Brief {
	grouped := make(map[core.TopicGroup][]core.ScoredItem)
	for _, item := range items {
		grouped[item.TopicGroup] = append(grouped[item.TopicGroup], item)
	}

	var ordered []core.ScoredItem
	for _, group := range core.TopicGroupOrder {
		bucket := grouped[group]
		sortBucket(bucket)
		grouped[group] = bucket
		ordered = append(ordered, bucket...)
	}

	generatedAt := time.Now().UTC()
	if sourcesUsed == nil {
		sourcesUsed = []string{}
	}

	return &core.Brief{
		ID:            generateBriefID(generatedAt, timeRange),
		GeneratedAt:   generatedAt,
		TimeRange:     timeRange,
		Items:         ordered,
		RejectedCount: rejected,
		SourcesUsed:   sourcesUsed,
		GroupedItems:  grouped,
	}
}

// sortBucket orders one topic bucket: score descending, then published
// descending, then URL for a stable total order.
func sortBucket(bucket []core.ScoredItem) {
	sort.SliceStable(bucket, func(i, j int) bool {
		a, b := bucket[i], bucket[j]
		if a.ImportanceScore != b.ImportanceScore {
			return a.ImportanceScore > b.ImportanceScore
		}
		az, bz := a.Published.IsZero(), b.Published.IsZero()
		switch {
		case az && !bz:
			return false
		case !az && bz:
			return true
		case !a.Published.Equal(b.Published):
			return a.Published.After(b.Published)
		}
		return a.URL < b.URL
	})
}

// Validate checks that a brief (typically one posted back for export) has
// the expected shape and is within the export size cap.
func Validate(brief *core.Brief) error {
	if brief == nil {
		return &ValidationError{Message: "Missing brief"}
	}
	if len(brief.Items) > MaxExportItems {
		return &ValidationError{Message: fmt.Sprintf("Too many items (max %d)", MaxExportItems)}
	}
	for i, item := range brief.Items {
		if !core.ValidTopicGroup(item.TopicGroup) {
			return &ValidationError{Message: fmt.Sprintf("Item %d has unknown topic group", i)}
		}
		if item.Title == "" {
			return &ValidationError{Message: fmt.Sprintf("Item %d has no title", i)}
		}
	}
	return nil
}

func generateBriefID(generatedAt time.Time, timeRange string) string {
	key := generatedAt.Format("2006-01-02") + "/" + timeRange
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
