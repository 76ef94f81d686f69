package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jolt.dev/pkg/jolt/internal/controller"
	"jolt.dev/pkg/jolt/internal/domain"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List discovered test classes and methods",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			options := domain.EngineOptions{
				Roots:        resolveRoots(args),
				Include:      viper.GetStringSlice(includeConfigKey),
				Exclude:      viper.GetStringSlice(excludeConfigKey),
				ClassPrefix:  viper.GetString(classPrefixKey),
				MethodPrefix: viper.GetString(methodPrefixKey),
				Parallelism:  viper.GetInt(discoverParallelKey),
			}

			if err := ui.Start(ctx, controller.WithListMode()); err != nil {
				return err
			}

			catalog, err := engine.Discover(ctx, options)
			if err != nil {
				return err
			}

			return ui.DisplayCatalog(ctx, catalog)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
