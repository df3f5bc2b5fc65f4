package scorer

import (
	"context"
	"log/slog"

	"execbrief/internal/core"
	"execbrief/internal/llm"
	"execbrief/internal/logger"
)

// Oracle is the external text-scoring capability. llm.Client satisfies it.
type Oracle interface {
	AssessItem(ctx context.Context, title, text string, maxScore int) (*llm.Assessment, error)
}

// OracleScorer wraps the rule-based scorer with an external scoring oracle.
// The oracle refines the score and synthesizes summary text; any oracle
// failure falls back to the deterministic rule-based result for that item,
// so "oracle fails" never means "no score".
type OracleScorer struct {
	rules  *RuleScorer
	oracle Oracle
	log    *slog.Logger
}

// NewOracleScorer creates an oracle-backed scorer over the rule-based
// fallback.
func NewOracleScorer(rules *RuleScorer, oracle Oracle) *OracleScorer {
	return &OracleScorer{
		rules:  rules,
		oracle: oracle,
		log:    logger.Get(),
	}
}

// ScoreItem scores one item via the oracle, falling back to the rule-based
// score on any failure. The fallback is logged with the item's source only;
// item text is untrusted and stays out of logs.
func (os *OracleScorer) ScoreItem(ctx context.Context, item core.RawItem) (core.ScoredItem, error) {
	scored, err := os.rules.ScoreItem(ctx, item)
	if err != nil {
		return core.ScoredItem{}, err
	}

	assessment, err := os.oracle.AssessItem(ctx, item.Title, item.Summary, os.rules.weights.MaxScore)
	if err != nil {
		os.log.Warn("Oracle assessment failed, using rule-based score",
			"source", item.SourceName,
			"item_id", item.ID,
			"error", err.Error(),
		)
		return scored, nil
	}

	scored.ImportanceScore = assessment.Score
	scored.Synthesis = assessment.Summary
	if assessment.WhyItMatters != "" {
		scored.WhyItMatters = assessment.WhyItMatters
	}
	scored.ScoredBy = "oracle"
	return scored, nil
}
