package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"execbrief/internal/pipeline"
	"execbrief/internal/report"

	"github.com/spf13/cobra"
)

// newGenerateCmd creates the generate command for one-shot brief generation
func newGenerateCmd() *cobra.Command {
	var (
		timeRange string
		maxItems  int
		tag       string
		force     bool
		noCache   bool
		htmlOut   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an executive brief and print it as JSON",
		Long: `Generate one executive brief from the configured sources.

The brief is printed to stdout as JSON. Use --html to also write the
exportable document to a file. Same-day results are served from the
cache unless --force is given.

Examples:
  # Daily brief over the last 24 hours
  execbrief generate

  # Weekly brief, top 20 items, with an HTML export
  execbrief generate --range 7d --max 20 --html brief.html

  # Only risk items, bypassing the cache
  execbrief generate --tag risk --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, pipeline.Options{
				TimeRange: timeRange,
				MaxItems:  maxItems,
				Tag:       tag,
				Force:     force,
			}, noCache, htmlOut)
		},
	}

	cmd.Flags().StringVar(&timeRange, "range", "24h", "time range: 24h, 7d, 14d, or 30d")
	cmd.Flags().IntVar(&maxItems, "max", 0, "cap on brief items (0 = no cap)")
	cmd.Flags().StringVar(&tag, "tag", "", "category filter (strategic, operational, technical, risk, general)")
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even if a same-day brief is cached")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not read or write the brief cache")
	cmd.Flags().StringVar(&htmlOut, "html", "", "also write the exportable HTML document to this file")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts pipeline.Options, noCache bool, htmlOut string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, st, err := buildPipeline(cfg, !noCache)
	if err != nil {
		return err
	}
	defer func() {
		if st != nil {
			_ = st.Close()
		}
	}()

	brief, err := p.GetOrGenerate(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("failed to generate brief: %w", err)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(brief); err != nil {
		return fmt.Errorf("failed to encode brief: %w", err)
	}

	if htmlOut != "" {
		document, err := report.RenderHTML(brief)
		if err != nil {
			return fmt.Errorf("failed to render document: %w", err)
		}
		if err := os.WriteFile(htmlOut, []byte(document), 0644); err != nil {
			return fmt.Errorf("failed to write document %s: %w", htmlOut, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", htmlOut)
	}

	return nil
}
