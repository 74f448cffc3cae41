package cmd

import (
	"fmt"
	"os"

	"app-host/core/config"
	"app-host/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configDir      string
	descriptorFlag string
	rootFlag       string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "app-host",
	Short: "App Engine style application host",
	Long: `app-host validates an app.yaml deployment descriptor and hosts the application it
describes: it launches the entrypoint on $PORT, routes requests through the handler list,
serves static files and scales instances with the automatic_scaling settings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Use the application's standard logger for error reporting
		// We default to console format to match user expectations (CLI tool)
		// We use "debug" level configuration to get ISO8601 timestamps (DevConfig) instead of Epoch (ProdConfig)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing the .env file")
	RootCmd.PersistentFlags().StringVarP(&descriptorFlag, "app", "a", "", "path to app.yaml (overrides APP_DESCRIPTOR)")
	RootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "application root (overrides APP_ROOT)")
}

// loadConfig loads configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if descriptorFlag != "" {
		cfg.App.Descriptor = descriptorFlag
	}
	if rootFlag != "" {
		cfg.App.Root = rootFlag
	}
	return cfg, nil
}

// loadRuntime loads configuration and the logger.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logg, nil
}
