package core

import "time"

// SourceFormat identifies how a source's endpoint is parsed.
type SourceFormat string

const (
	// FormatFeed is a syndicated RSS/Atom feed.
	FormatFeed SourceFormat = "feed"
	// FormatList is a structured JSON listing (research indexes, curated lists).
	FormatList SourceFormat = "list"
)

// Category is the editorial category assigned to a source and its items.
type Category string

const (
	CategoryStrategic   Category = "strategic"
	CategoryOperational Category = "operational"
	CategoryTechnical   Category = "technical"
	CategoryRisk        Category = "risk"
	CategoryGeneral     Category = "general"
)

// Categories lists every valid category value.
var Categories = []Category{
	CategoryStrategic,
	CategoryOperational,
	CategoryTechnical,
	CategoryRisk,
	CategoryGeneral,
}

// TopicGroup is the report section an item is bucketed into.
type TopicGroup string

const (
	TopicStrategy   TopicGroup = "strategy"
	TopicRisk       TopicGroup = "risk"
	TopicOperations TopicGroup = "operations"
	TopicTechnology TopicGroup = "technology"
)

// TopicGroupOrder is the fixed section order used when rendering a brief.
var TopicGroupOrder = []TopicGroup{
	TopicStrategy,
	TopicRisk,
	TopicOperations,
	TopicTechnology,
}

// ValidTopicGroup reports whether g is one of the fixed topic groups.
func ValidTopicGroup(g TopicGroup) bool {
	for _, known := range TopicGroupOrder {
		if g == known {
			return true
		}
	}
	return false
}

// Source describes one configured external feed of candidate items.
// The source list is loaded once at startup and is immutable for a run.
type Source struct {
	Name     string       `json:"name"`     // Unique name within the configuration
	URL      string       `json:"url"`      // Endpoint to fetch
	Format   SourceFormat `json:"format"`   // How the endpoint is parsed
	MaxItems int          `json:"maxItems"` // Per-fetch item cap
	Category Category     `json:"category"` // Category inherited by fetched items
	Research bool         `json:"research"` // Research listings win dedup conflicts
	Rank     int          `json:"rank"`     // Position in configuration, used as a dedup tie-break
}

// RawItem is an item as fetched from a source, before filtering and scoring.
// RawItems live only for the duration of one pipeline run.
type RawItem struct {
	ID         string    `json:"id"`         // Deterministic ID derived from the origin URL
	Title      string    `json:"title"`      // Item title as published
	URL        string    `json:"url"`        // Origin URL, the primary dedup key
	SourceName string    `json:"sourceName"` // Name of the source that produced the item
	Published  time.Time `json:"published"`  // Publication timestamp; zero if unparseable
	Summary    string    `json:"summary"`    // Raw summary text, HTML stripped
	Category   Category  `json:"category"`   // Category inherited from the source
	Research   bool      `json:"research"`   // Whether the source is research-flagged
	SourceRank int       `json:"sourceRank"` // Source position in configuration
}

// ScoredItem is a RawItem that survived filtering and was assigned an
// importance score and topic group.
type ScoredItem struct {
	RawItem
	ImportanceScore int        `json:"importanceScore"` // Bounded integer score, 0..max
	TopicGroup      TopicGroup `json:"topicGroup"`      // Report section bucket
	Synthesis       string     `json:"synthesis"`       // Synthesized summary for display
	WhyItMatters    string     `json:"whyItMatters"`    // Short relevance note
	ScoredBy        string     `json:"scoredBy"`        // "rules" or "oracle"
}

// Brief is the assembled output of one pipeline run.
type Brief struct {
	ID            string                      `json:"id"`            // Deterministic ID derived from the cache key
	GeneratedAt   time.Time                   `json:"generatedAt"`   // When the brief was assembled
	TimeRange     string                      `json:"timeRange"`     // Requested range, e.g. "24h", "7d"
	Items         []ScoredItem                `json:"items"`         // All items, ordered by group, score, recency
	RejectedCount int                         `json:"rejectedCount"` // Items dropped below the score threshold
	SourcesUsed   []string                    `json:"sourcesUsed"`   // Sources that contributed without error
	GroupedItems  map[TopicGroup][]ScoredItem `json:"groupedItems"`  // Items bucketed by topic group
}

// CacheStats reports what is currently held in the brief cache.
type CacheStats struct {
	BriefCount  int       `json:"briefCount"`  // Number of cached briefs
	CacheSize   int64     `json:"cacheSize"`   // Cache file size in bytes
	LastUpdated time.Time `json:"lastUpdated"` // Last cache write time
}
