package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jolt.dev/pkg/jolt/internal/domain"
	m "jolt.dev/pkg/jolt/internal/model"
	"jolt.dev/pkg/jolt/pkg"
)

var mergeOutFlag string

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <report>...",
		Short: "Merge run reports into one",
		Long: `Merge two or more saved run reports into a single report, for runs sharded
across machines. Counts add up and records concatenate in argument order.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := mergeReportFiles(parsePaths(args))
			if err != nil {
				return err
			}

			path := m.Path(mergeOutFlag)
			if path != "" {
				if err := reportStore.SaveAs(path, merged); err != nil {
					return err
				}
			} else {
				path, err = reportStore.Save(m.Path(viper.GetString(outputFlagName)), merged)
				if err != nil {
					return err
				}
			}

			cmd.Printf("Merged %d report(s) into %s\n", len(args), path)

			return nil
		},
	}

	configureMergeFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func configureMergeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&mergeOutFlag, "out", "", "write the merged report to this file instead of the output directory")
}

// mergeReportFiles loads each report, spilling record streams to disk so
// merging many large shards never holds every record twice in memory.
func mergeReportFiles(paths []m.Path) (m.RunReport, error) {
	spill, err := pkg.NewSpill[m.ExecutionRecord]()
	if err != nil {
		return m.RunReport{}, err
	}

	defer func() {
		if err := spill.Close(); err != nil {
			slog.Warn("closing record spill", "error", err)
		}
	}()

	summaries := make([]m.RunSummary, 0, len(paths))

	var catalog m.Catalog

	for _, path := range paths {
		report, err := reportStore.Load(path)
		if err != nil {
			return m.RunReport{}, err
		}

		if err := spill.AppendBatch(report.Summary.Records); err != nil {
			return m.RunReport{}, err
		}

		report.Summary.Records = nil
		summaries = append(summaries, report.Summary)
		catalog = append(catalog, report.Catalog...)
	}

	merged := domain.MergeSummaries(summaries)

	merged.Records = make([]m.ExecutionRecord, 0, int(spill.Len()))

	err = spill.Range(func(_ uint64, record m.ExecutionRecord) error {
		merged.Records = append(merged.Records, record)
		return nil
	})
	if err != nil {
		return m.RunReport{}, err
	}

	return m.RunReport{Version: m.ReportVersion, Summary: merged, Catalog: catalog}, nil
}
