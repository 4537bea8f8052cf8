package cmd

import (
	"context"
	"fmt"

	"github.com/m45t3r/google-cloud-bench/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the configured instance batch",
	Long: `Create the configured number of instances and wait for every create
operation to finish. Instances are left running; use delete to tear
them down.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		manager := mustManager(ctx)

		if err := manager.CreateAll(ctx); err != nil {
			logging.Logger().Fatal("Failed to create instances", zap.Error(err))
		}

		for _, instance := range manager.Roster() {
			fmt.Printf("%s\t%s\t%s\n", instance.Name, instance.Status, instance.Zone)
		}
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
