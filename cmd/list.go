package cmd

import (
	"context"
	"fmt"

	"github.com/m45t3r/google-cloud-bench/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the instances in the fleet",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		manager := mustManager(ctx)

		instances, err := manager.ListInstances(ctx)
		if err != nil {
			logging.Logger().Fatal("Failed to list instances", zap.Error(err))
		}

		for _, instance := range instances {
			fmt.Printf("%s\t%s\t%s\n", instance.Name, instance.Status, instance.Zone)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
