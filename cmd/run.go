package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jolt.dev/pkg/jolt/internal/adapter"
	"jolt.dev/pkg/jolt/internal/controller"
	"jolt.dev/pkg/jolt/internal/domain"
	m "jolt.dev/pkg/jolt/internal/model"
)

var runWorkersFlag int
var runBatchSizeFlag int
var runFilterFlag string
var runSuiteFlag string
var runQuietFlag bool
var runWatchFlag bool
var runStrictFlag bool
var runMethodTimeoutFlag time.Duration
var runBatchTimeoutFlag time.Duration
var runMaxRespawnsFlag int
var runClassPrefixFlag string
var runMethodPrefixFlag string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "run [paths...]",
		Short:        "Discover and execute tests",
		Long:         runLongDescription,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			options := runOptionsFromConfig(args)

			if runWatchFlag {
				return watchAndRun(ctx, cmd, options)
			}

			return runOnce(ctx, cmd, options)
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runWorkersFlag, workersFlagName, "w", viper.GetInt(workersConfigKey), "number of worker processes (1 runs in-process)")
	bindFlagToConfig(cmd.Flags().Lookup(workersFlagName), workersConfigKey)

	cmd.Flags().IntVarP(&runBatchSizeFlag, batchSizeFlagName, "b", viper.GetInt(batchSizeConfigKey), "files per dispatched batch")
	bindFlagToConfig(cmd.Flags().Lookup(batchSizeFlagName), batchSizeConfigKey)

	cmd.Flags().StringVarP(&runFilterFlag, filterFlagName, "f", "", "only run tests matching FILE.CLASS.METHOD (* wildcards)")
	cmd.Flags().StringVar(&runSuiteFlag, suiteFlagName, "", "only run tests whose class matches the given suite")

	cmd.Flags().BoolVarP(&runQuietFlag, quietFlagName, "q", viper.GetBool(quietConfigKey), "suppress per-file output")
	bindFlagToConfig(cmd.Flags().Lookup(quietFlagName), quietConfigKey)

	cmd.Flags().BoolVar(&runWatchFlag, watchFlagName, false, "rerun on file changes until interrupted")

	cmd.Flags().DurationVar(&runMethodTimeoutFlag, methodTimeoutFlagName, viper.GetDuration(methodTimeoutKey), "timeout for a single test method")
	bindFlagToConfig(cmd.Flags().Lookup(methodTimeoutFlagName), methodTimeoutKey)

	cmd.Flags().DurationVar(&runBatchTimeoutFlag, batchTimeoutFlagName, viper.GetDuration(batchTimeoutKey), "timeout for one batch on a worker process")
	bindFlagToConfig(cmd.Flags().Lookup(batchTimeoutFlagName), batchTimeoutKey)

	cmd.Flags().IntVar(&runMaxRespawnsFlag, maxRespawnsFlagName, viper.GetInt(maxRespawnsKey), "replacement workers allowed after crashes")
	bindFlagToConfig(cmd.Flags().Lookup(maxRespawnsFlagName), maxRespawnsKey)

	cmd.Flags().BoolVar(&runStrictFlag, strictFlagName, viper.GetBool(strictConfigKey), "fail the run when any file is unparsable or unreadable")
	bindFlagToConfig(cmd.Flags().Lookup(strictFlagName), strictConfigKey)

	cmd.Flags().StringVar(&runClassPrefixFlag, classPrefixFlagName, viper.GetString(classPrefixKey), "name prefix marking test classes")
	bindFlagToConfig(cmd.Flags().Lookup(classPrefixFlagName), classPrefixKey)

	cmd.Flags().StringVar(&runMethodPrefixFlag, methodPrefixFlagName, viper.GetString(methodPrefixKey), "name prefix marking test methods")
	bindFlagToConfig(cmd.Flags().Lookup(methodPrefixFlagName), methodPrefixKey)
}

func runOptionsFromConfig(args []string) domain.EngineOptions {
	return domain.EngineOptions{
		Roots:        resolveRoots(args),
		Include:      viper.GetStringSlice(includeConfigKey),
		Exclude:      viper.GetStringSlice(excludeConfigKey),
		ClassPrefix:  viper.GetString(classPrefixKey),
		MethodPrefix: viper.GetString(methodPrefixKey),
		Parallelism:  viper.GetInt(discoverParallelKey),
		BatchSize:    viper.GetInt(batchSizeConfigKey),
		Pool: domain.PoolOptions{
			Workers:      viper.GetInt(workersConfigKey),
			MaxRespawns:  viper.GetInt(maxRespawnsKey),
			BatchTimeout: viper.GetDuration(batchTimeoutKey),
			Executor: domain.ExecutorOptions{
				Filter:        m.ParseFilter(runFilterFlag, runSuiteFlag),
				MethodTimeout: viper.GetDuration(methodTimeoutKey),
			},
		},
	}
}

// runOnce executes one full pipeline pass and renders its results. The run
// itself uses a child context so the UI's quit key can abort execution while
// the summary still prints on the outer context afterwards.
func runOnce(ctx context.Context, cmd *cobra.Command, options domain.EngineOptions) error {
	quiet := viper.GetBool(quietConfigKey)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := ui.Start(runCtx,
		controller.WithRunMode(),
		controller.WithQuiet(quiet),
		controller.WithAbort(cancel),
	)
	if err != nil {
		return err
	}

	options.OnPlan = func(catalog m.Catalog, batches int) {
		ui.DisplayRunPlan(runCtx, catalog, options.Pool.Workers, batches)
	}
	options.OnResult = func(result m.FileResult) {
		ui.DisplayFileResult(runCtx, result)
	}

	var launcher adapter.WorkerLauncher

	if options.Pool.Workers > 1 {
		local, err := adapter.NewLocalWorkerLauncher(workerArgs())
		if err != nil {
			ui.Close(runCtx)
			return err
		}

		launcher = local
	}

	summary, catalog, runErr := engine.Run(runCtx, launcher, options)

	ui.Close(runCtx)

	// Render on the outer context so an aborted run still shows its partial
	// summary.
	if err := ui.DisplaySummary(ctx, summary); err != nil {
		return err
	}

	if path, err := saveRunReport(summary, catalog); err != nil {
		slog.Error("saving run report", "error", err)
	} else if !quiet {
		cmd.Printf("Report written to %s\n", path)
	}

	if runErr != nil {
		return runErr
	}

	if !summary.Clean(viper.GetBool(strictConfigKey)) {
		return ErrTestsFailed
	}

	return nil
}

func saveRunReport(summary m.RunSummary, catalog m.Catalog) (m.Path, error) {
	report := m.RunReport{
		Version: m.ReportVersion,
		Summary: summary,
		Catalog: catalog,
	}

	return reportStore.Save(m.Path(viper.GetString(outputFlagName)), report)
}

// workerArgs builds the argv for spawned worker processes, forwarding the
// settings the executor needs on the far side of the protocol.
func workerArgs() []string {
	args := []string{workerCommandName}

	if runFilterFlag != "" {
		args = append(args, "--"+filterFlagName, runFilterFlag)
	}

	if runSuiteFlag != "" {
		args = append(args, "--"+suiteFlagName, runSuiteFlag)
	}

	if timeout := viper.GetDuration(methodTimeoutKey); timeout > 0 {
		args = append(args, "--"+methodTimeoutFlagName, timeout.String())
	}

	return args
}

// watchAndRun runs once immediately, then reruns on every settled change
// burst until interrupted. Failing tests never stop the watch; the next save
// gets another chance.
func watchAndRun(ctx context.Context, cmd *cobra.Command, options domain.EngineOptions) error {
	rerun := func(runCtx context.Context) {
		if err := runOnce(runCtx, cmd, options); err != nil && !errors.Is(err, ErrTestsFailed) {
			slog.Error("watch run failed", "error", err)
		}
	}

	rerun(ctx)

	watcher := domain.NewWatcher(watchAdapter, 0)

	err := watcher.Watch(ctx, options.Roots, options.Include, options.Exclude, rerun)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
