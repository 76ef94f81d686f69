// Package cmd provides the root command and CLI setup for jolt.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"jolt.dev/pkg/jolt/internal/adapter"
	"jolt.dev/pkg/jolt/internal/controller"
	"jolt.dev/pkg/jolt/internal/domain"
	m "jolt.dev/pkg/jolt/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var scriptAdapter adapter.ScriptFileAdapter
var reportStore adapter.ReportStore
var watchAdapter adapter.WatchAdapter
var engine *domain.Engine
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// includePatterns and excludePatterns filter which files the scanner keeps.
var includePatterns []string
var excludePatterns []string

// verboseFlag raises the log level to debug.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	scriptAdapter = adapter.NewLocalScriptFileAdapter()
	reportStore = adapter.NewReportStore()
	watchAdapter = adapter.NewLocalWatchAdapter()
	engine = domain.NewEngine(fsAdapter, scriptAdapter)
}

const pathPatternsHelp = `Paths may be directories or single files:
  - .                 scan the current directory tree
  - ./src ./lib       scan multiple directories
  - sum.test.js       use one file directly`

const rootLongDescription = `Jolt discovers JavaScript test classes without importing the files, then
executes them in batches on a pool of persistent worker processes. A test
file declares classes named Test* whose test* methods run in declaration
order; files that fail to parse are reported instead of aborting the run.

` + pathPatternsHelp

const runLongDescription = `Discover and execute tests under the given paths (default: current directory).

` + pathPatternsHelp

const listLongDescription = `List test files with their discovered classes, methods, and imports,
without executing anything.

` + pathPatternsHelp

// ErrTestsFailed marks a completed run whose outcome was not clean: failing
// or errored tests, or discovery problems under --strict-discovery. Execute
// maps it to exit code 1; any other error exits 2.
var ErrTestsFailed = errors.New("tests failed")

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jolt",
		Short: "Batched test runner for JavaScript test classes",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for run reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringArrayVarP(&includePatterns, includeFlagName, "i", viper.GetStringSlice(includeConfigKey), "include files matching glob (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(includeFlagName), includeConfigKey)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching glob (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().BoolVar(&verboseFlag, verboseFlagName, viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Exit codes: 0 clean run, 1 failing tests, 2 tool fault.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	if errors.Is(err, ErrTestsFailed) {
		os.Exit(1)
	}

	os.Exit(2)
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

// resolveRoots defaults to the current directory when no paths were given.
func resolveRoots(args []string) []m.Path {
	roots := parsePaths(args)
	if len(roots) == 0 {
		roots = append(roots, m.Path("."))
	}

	return roots
}
