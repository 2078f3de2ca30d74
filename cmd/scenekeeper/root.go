package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var dryRunFlag bool
	var applyFlag bool

	ctx := newCommandContext(&configFlag, &logLevelFlag, &dryRunFlag, &applyFlag)

	rootCmd := &cobra.Command{
		Use:           "scenekeeper",
		Short:         "Stash library maintenance: duplicates, matching and cleanup",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")
	flags.BoolVar(&dryRunFlag, "dry-run", false, "Log mutations instead of applying them")
	flags.BoolVar(&applyFlag, "apply", false, "Apply mutations even when workflow.dry_run is set")
	rootCmd.MarkFlagsMutuallyExclusive("dry-run", "apply")

	rootCmd.AddCommand(newDuplicatesCommand(ctx))
	rootCmd.AddCommand(newMatchesCommand(ctx))
	rootCmd.AddCommand(newCleanupCommand(ctx))
	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
