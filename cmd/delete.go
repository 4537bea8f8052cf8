package cmd

import (
	"context"

	"github.com/m45t3r/google-cloud-bench/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete every instance in the fleet",
	Long: `List the instances currently in the configured project and zone,
issue a delete for each one and wait for every delete operation to
finish.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		manager := mustManager(ctx)

		if err := manager.Refresh(ctx); err != nil {
			logging.Logger().Fatal("Failed to list instances", zap.Error(err))
		}
		if err := manager.DeleteAll(ctx); err != nil {
			logging.Logger().Fatal("Failed to delete instances", zap.Error(err))
		}

		logging.Logger().Info("all instances deleted")
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
