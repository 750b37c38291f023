package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/smartbin/internal/config"
	"github.com/rewired-gh/smartbin/internal/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "smartbin",
	Short:         "Smart waste bin monitor",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "configs/config.yaml", "Path to configuration file (empty for defaults and environment only)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("%v", err)
	}
}
