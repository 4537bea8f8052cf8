package cmd

import (
	"context"
	"os"

	"github.com/m45t3r/google-cloud-bench/internal/config"
	"github.com/m45t3r/google-cloud-bench/internal/fleet"
	"github.com/m45t3r/google-cloud-bench/internal/logging"
	"github.com/m45t3r/google-cloud-bench/internal/provisioning"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "google-cloud-bench",
	Short: "Provision and tear down benchmark VM fleets",
	Long: `google-cloud-bench provisions a homogeneous batch of virtual machines
on a cloud provider, boots each one with a startup script, waits for the
asynchronous provider operations to settle and later deletes the whole
batch again.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config YAML file")
}

// mustManager loads the configuration and wires the provider, waiter
// and fleet manager. Any failure is fatal.
func mustManager(ctx context.Context) *fleet.Manager {
	logging.Logger().Info("Loading configuration")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
	}

	cloud, err := provisioning.NewCompute(ctx, cfg)
	if err != nil {
		logging.Logger().Fatal("Failed to create provider client", zap.Error(err))
	}

	waiter := fleet.NewWaiter(cloud, cfg.PollInterval(), cfg.MaxPolls, logging.Logger())
	return fleet.NewManager(cfg, cloud, waiter, logging.Logger())
}
