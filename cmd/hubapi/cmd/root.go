package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/config"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/logging"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hubapi",
	Short: "DNA discipleship hub API server",
	Long: `hubapi serves the discipleship hub API: session resolution across the
credential store and legacy leader cookies, role administration, leader
onboarding and church calendar sync.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			viper.SetConfigFile(path)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = logging.New(cfg.Debug)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a config file (yaml, json or toml)")
	flags.String("db-url", "", "Database connection URL (env: HUB_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: HUB_SERVER_ADDR)")
	flags.String("server-url", "", "Public base URL (env: HUB_SERVER_URL)")
	flags.Bool("debug", false, "Enable debug logging (env: HUB_DEBUG)")

	for key, flag := range map[string]string{
		"database_url": "db-url",
		"server_addr":  "server-addr",
		"server_url":   "server-url",
		"debug":        "debug",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
