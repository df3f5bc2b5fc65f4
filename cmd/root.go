// Package cmd wires the CLI commands for the executive brief service.
package cmd

import (
	"fmt"
	"os"
	"time"

	"execbrief/internal/config"
	"execbrief/internal/core"
	"execbrief/internal/fetcher"
	"execbrief/internal/filter"
	"execbrief/internal/llm"
	"execbrief/internal/logger"
	"execbrief/internal/pipeline"
	"execbrief/internal/scorer"
	"execbrief/internal/store"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "execbrief",
	Short: "execbrief aggregates AI news and research into executive briefs",
	Long: `execbrief pulls candidate items from configured news and research
sources, filters and deduplicates them, scores their importance, and
assembles a topic-grouped executive brief.

Run 'execbrief generate' for a one-shot brief, or 'execbrief serve' to
expose the pipeline over HTTP.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .execbrief.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newSourcesCmd())
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// buildPipeline assembles the pipeline stages from loaded configuration.
// withCache controls whether the brief store is opened.
func buildPipeline(cfg *config.Config, withCache bool) (*pipeline.Pipeline, *store.Store, error) {
	f := fetcher.New(
		fetcher.WithSourceTimeout(cfg.Server.FetchTimeout),
	)
	eng := filter.New(cfg.TermLists())

	sc, err := buildScorer(cfg)
	if err != nil {
		return nil, nil, err
	}

	var st *store.Store
	if withCache {
		st, err = store.NewStore(cfg.Cache.Directory)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open brief cache: %w", err)
		}
	}

	p := pipeline.New(cfg.SourceList(), f, eng, sc, st, cfg.Scoring.MinScore, cfg.CacheTTL())
	return p, st, nil
}

// buildScorer selects the scoring implementation: rule-based always, with
// the oracle layered on top when configured and a key is available.
func buildScorer(cfg *config.Config) (scorer.Scorer, error) {
	rules := scorer.NewRuleScorer(scoringWeights(cfg))

	if !cfg.Scoring.UseOracle {
		return rules, nil
	}

	client, err := llm.NewClient(cfg.AI.Gemini.Model)
	if err != nil {
		logger.Warn("Oracle scoring requested but unavailable, using rule-based scoring", "reason", err.Error())
		return rules, nil
	}
	return scorer.NewOracleScorer(rules, client), nil
}

func scoringWeights(cfg *config.Config) scorer.Weights {
	bonus := make(map[core.Category]bool, len(cfg.Scoring.BonusCategories))
	for _, cat := range cfg.Scoring.BonusCategories {
		bonus[core.Category(cat)] = true
	}

	return scorer.Weights{
		BaseScore:        cfg.Scoring.BaseScore,
		KeywordIncrement: cfg.Scoring.KeywordIncrement,
		CategoryBonus:    cfg.Scoring.CategoryBonus,
		RecencyBonus:     cfg.Scoring.RecencyBonus,
		MaxScore:         cfg.Scoring.MaxScore,
		MinScore:         cfg.Scoring.MinScore,
		PriorityKeywords: cfg.Scoring.PriorityKeywords,
		BonusCategories:  bonus,
		TopicGroups:      cfg.TopicGroupMap(),
		RecencyWindow:    24 * time.Hour,
	}
}
