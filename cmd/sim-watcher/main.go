package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/integration"
	"github.com/wlan-sim/wlan-sim-pro/internal/logging"
	"github.com/wlan-sim/wlan-sim-pro/internal/server"
)

var (
	cfgFile string
	natsURL string
)

var rootCmd = &cobra.Command{
	Use:          "sim-watcher",
	Short:        "Follow scenario runs published over NATS",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOptional(cfgFile)
		if err != nil {
			return fmt.Errorf("load config %s: %w", cfgFile, err)
		}
		logging.Setup(cfg.Log, os.Stderr)

		if natsURL != "" {
			cfg.NATS.URL = natsURL
		}
		if cfg.NATS.URL == "" {
			return fmt.Errorf("nats url is required")
		}

		nc, err := integration.Connect(cfg.NATS, cfg.Server.Name+"-watcher")
		if err != nil {
			return err
		}
		defer nc.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info().Str("url", cfg.NATS.URL).Msg("Watching scenario events")

		sub := server.NewNATSSubscriber(nc, cfg.NATS.SubjectPrefix, cmd.OutOrStdout())
		if err := sub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		log.Info().Msg("Watcher stopped")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "config/wlan-sim.yml", "config file")
	rootCmd.Flags().StringVar(&natsURL, "nats-url", "", "override the configured NATS URL")
}
