package cmd

import (
	"context"

	"github.com/m45t3r/google-cloud-bench/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full benchmark cycle",
	Long: `Create the configured batch of instances, wait for every create
operation to finish, then delete the whole batch again. Any error
terminates the run.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		manager := mustManager(ctx)

		if err := manager.CreateAll(ctx); err != nil {
			logging.Logger().Fatal("Failed to create instances", zap.Error(err))
		}
		if err := manager.DeleteAll(ctx); err != nil {
			logging.Logger().Fatal("Failed to delete instances", zap.Error(err))
		}

		logging.Logger().Info("benchmark cycle finished")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
