package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jolt.dev/pkg/jolt/internal/controller"
	m "jolt.dev/pkg/jolt/internal/model"
)

var reportRunIDFlag string
var reportCompareFlag bool

// reportCmd represents the report command.
var reportCmd = newReportCmd()

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [file] | report --compare OLD NEW",
		Short: "Show a stored run report",
		Long: `Show a previously saved run report: the latest one by default, a specific
run selected with --run, or an explicit report file. With --compare, print a
unified diff of the failing-test lists of two report files instead.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reportsDir := m.Path(viper.GetString(outputFlagName))

			if reportCompareFlag {
				return compareReports(cmd, args)
			}

			report, err := resolveReport(reportsDir, args)
			if err != nil {
				return err
			}

			if err := ui.Start(ctx, controller.WithListMode()); err != nil {
				return err
			}

			return ui.DisplayReport(ctx, report)
		},
	}

	configureReportFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func configureReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reportRunIDFlag, "run", "", "show the report with this run id")
	cmd.Flags().BoolVar(&reportCompareFlag, "compare", false, "diff the failing tests of two report files")
}

// resolveReport picks the report to show: an explicit file argument wins,
// then --run, then the latest report in the output directory.
func resolveReport(dir m.Path, args []string) (m.RunReport, error) {
	if len(args) == 1 {
		return reportStore.Load(m.Path(args[0]))
	}

	if len(args) > 1 {
		return m.RunReport{}, errors.New("pass a single report file, or two with --compare")
	}

	if reportRunIDFlag != "" {
		return findReportByID(dir, reportRunIDFlag)
	}

	report, _, err := reportStore.Latest(dir)

	return report, err
}

func findReportByID(dir m.Path, runID string) (m.RunReport, error) {
	paths, err := reportStore.List(dir)
	if err != nil {
		return m.RunReport{}, err
	}

	for _, path := range paths {
		report, err := reportStore.Load(path)
		if err != nil {
			slog.Warn("skipping unreadable report", "path", path, "error", err)
			continue
		}

		if report.Summary.RunID == runID {
			return report, nil
		}
	}

	return m.RunReport{}, fmt.Errorf("no report with run id %q under %s", runID, dir)
}

func compareReports(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return errors.New("--compare needs two report files: OLD NEW")
	}

	before, err := reportStore.Load(m.Path(args[0]))
	if err != nil {
		return err
	}

	after, err := reportStore.Load(m.Path(args[1]))
	if err != nil {
		return err
	}

	diff, err := renderFailureDiff(before, after)
	if err != nil {
		return err
	}

	if diff == "" {
		cmd.Printf("No failure changes between %s and %s\n", before.Summary.RunID, after.Summary.RunID)
		return nil
	}

	cmd.Print(diff)

	return nil
}

// renderFailureDiff diffs the failing-test lists of two runs so regressions
// and fixes stand out without reading either report in full.
func renderFailureDiff(before, after m.RunReport) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        failureLines(before),
		B:        failureLines(after),
		FromFile: before.Summary.RunID,
		ToFile:   after.Summary.RunID,
		Context:  3,
	}

	return difflib.GetUnifiedDiffString(diff)
}

func failureLines(report m.RunReport) []string {
	ids := report.FailingIDs()

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, id+"\n")
	}

	return lines
}
