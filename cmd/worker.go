package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"jolt.dev/pkg/jolt/internal/adapter"
	"jolt.dev/pkg/jolt/internal/domain"
	m "jolt.dev/pkg/jolt/internal/model"
)

const workerCommandName = "worker"

var workerFilterFlag string
var workerSuiteFlag string
var workerMethodTimeoutFlag time.Duration

// workerCmd represents the hidden worker command. The pool spawns it as a
// subprocess; users never invoke it directly. Stdout carries protocol frames,
// so nothing here may print.
var workerCmd = newWorkerCmd()

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    workerCommandName,
		Short:  "Serve batch execution over stdio",
		Hidden: true,
		Args:   cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			executor := domain.NewExecutor(domain.ExecutorOptions{
				Filter:        m.ParseFilter(workerFilterFlag, workerSuiteFlag),
				MethodTimeout: workerMethodTimeoutFlag,
			})

			stdio := adapter.NewWorkerStdio(os.Stdin, os.Stdout)

			return domain.ServeWorker(cmd.Context(), stdio, executor)
		},
	}

	configureWorkerFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func configureWorkerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&workerFilterFlag, filterFlagName, "", "only run tests matching FILE.CLASS.METHOD (* wildcards)")
	cmd.Flags().StringVar(&workerSuiteFlag, suiteFlagName, "", "only run tests whose class matches the given suite")
	cmd.Flags().DurationVar(&workerMethodTimeoutFlag, methodTimeoutFlagName, 0, "timeout for a single test method")
}
