package cmd

import (
	"fmt"
	"text/tabwriter"

	"execbrief/internal/core"
	"execbrief/internal/fetcher"

	"github.com/spf13/cobra"
)

// newSourcesCmd creates the sources command for inspecting configuration
func newSourcesCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List configured sources",
		Long: `List every configured source with its format, category, and cap.

With --check, each source is fetched once and the item count (or failure)
is reported. A failing source does not fail the command; it degrades a
brief the same way at generation time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(cmd, check)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "fetch each source once and report the result")

	return cmd
}

func runSources(cmd *cobra.Command, check bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sources := cfg.SourceList()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	if !check {
		fmt.Fprintln(w, "NAME\tFORMAT\tCATEGORY\tCAP\tRESEARCH\tURL")
		for _, src := range sources {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\t%s\n",
				src.Name, src.Format, src.Category, src.MaxItems, src.Research, src.URL)
		}
		return nil
	}

	f := fetcher.New(fetcher.WithSourceTimeout(cfg.Server.FetchTimeout))

	fmt.Fprintln(w, "NAME\tSTATUS\tITEMS")
	for _, src := range sources {
		result := f.FetchAll(cmd.Context(), []core.Source{src})
		if len(result.SourcesUsed) == 0 {
			fmt.Fprintf(w, "%s\tFAILED\t0\n", src.Name)
			continue
		}
		fmt.Fprintf(w, "%s\tok\t%d\n", src.Name, len(result.Items))
	}

	return nil
}
