package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"nextraction/internal/config"
	"nextraction/internal/logging"
)

// skipConfigAnnotation marks commands that must run without loading config.
const skipConfigAnnotation = "skip-config"

var (
	cfgFile       string
	logLevel      string
	currentConfig *config.AppConfig
	currentPath   string
	appVersion    = "dev"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "nextraction",
	Short:         "nextraction: ingest web pages and ask questions about them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// API keys may live in .env; a missing file is fine.
		_ = godotenv.Load()
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			return nil
		}

		var (
			cfg *config.AppConfig
			err error
		)
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
			currentPath = cfgFile
		} else {
			cfg, currentPath, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		currentConfig = cfg
		logging.Init(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		return nil
	},
}

// Execute runs the root command; main only calls this.
func Execute() {
	rootCmd.Version = appVersion
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, failStyle("error:"), err)
		stop()
		os.Exit(1)
	}
}

// GetConfig returns the configuration loaded by the root command.
func GetConfig() *config.AppConfig { return currentConfig }

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml, then ~/.config/nextraction/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}
