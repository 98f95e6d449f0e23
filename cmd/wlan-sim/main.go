package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/logging"
	"github.com/wlan-sim/wlan-sim-pro/pkg/crypto"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "wlan-sim",
	Short: "Compare WLAN medium-access disciplines",
	Long: `wlan-sim runs contention (WiFi 4), coordinated-parallel (WiFi 5) and
scheduled-subchannel (WiFi 6) access over a shared medium and reports
throughput and latency per user count.`,
	SilenceUsage: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.WriteSummary(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
		return nil
	},
}

var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.WriteSummary(cmd.OutOrStdout())
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the bcrypt hash for auth.password_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := crypto.HashPassword(args[0])
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func main() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(hashPasswordCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/wlan-sim.yml", "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// loadConfig reads the config file and sets up logging. A missing file is
// only tolerated when --config was left at its default.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if rootCmd.PersistentFlags().Changed("config") {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadOptional(cfgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgFile, err)
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logging.Setup(cfg.Log, os.Stderr)

	log.Debug().Str("config_path", cfgFile).Msg("Configuration loaded")
	return cfg, nil
}
