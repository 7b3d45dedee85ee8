package main

import (
	"fmt"

	"arenahub/pkg/config"

	"github.com/spf13/cobra"
)

var configFile string

// Searched in order when --config is not given.
var defaultConfigPaths = []string{
	"configs/config.yaml",
	"/etc/arenahub/config.yaml",
	"config.yaml",
}

// NewRootCmd creates the root command for the ArenaHub CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arenahub",
		Short: "ArenaHub esports platform backend",
		Long: `ArenaHub serves player and admin authentication over HTTP and
pushes live stream, tournament and notification updates over WebSocket.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCreateAdminCmd())

	return cmd
}

// loadConfig reads the --config file, or the first default path that loads.
// With no file at all it falls back to defaults plus environment overrides.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", configFile, err)
		}
		return cfg, nil
	}

	var lastErr error
	for _, path := range defaultConfigPaths {
		cfg, err := config.Load(path)
		if err == nil {
			return cfg, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
