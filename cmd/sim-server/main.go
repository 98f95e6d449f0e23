package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wlan-sim/wlan-sim-pro/internal/api"
	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/integration"
	"github.com/wlan-sim/wlan-sim-pro/internal/logging"
	"github.com/wlan-sim/wlan-sim-pro/internal/storage"
)

var (
	cfgFile      string
	validateOnly bool
	showConfig   bool
)

var rootCmd = &cobra.Command{
	Use:          "sim-server",
	Short:        "Serve scenario runs over a REST API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config %s: %w", cfgFile, err)
		}
		logging.Setup(cfg.Log, os.Stderr)

		if showConfig {
			cfg.PrintConfigSummary()
			return nil
		}
		if validateOnly {
			cfg.PrintConfigSummary()
			fmt.Println("Configuration is valid")
			return nil
		}

		return serve(cfg)
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
	rootCmd.Flags().BoolVar(&validateOnly, "validate", false, "validate the config file and exit")
	rootCmd.Flags().BoolVar(&showConfig, "show-config", false, "print the config and exit")
}

func serve(cfg *config.Config) error {
	log.Info().
		Str("config_path", cfgFile).
		Str("version", cfg.Server.Version).
		Msg("Simulation server starting")

	if cfg.Auth.PasswordHash == "" {
		log.Warn().Str("username", cfg.Auth.Username).Msg("No operator password hash configured, login is disabled")
	}

	store := storage.NewMemoryStore()
	defer store.Close()

	var publisher integration.Publisher
	if cfg.NATS.URL != "" {
		nc, err := integration.Connect(cfg.NATS, cfg.Server.Name)
		if err != nil {
			return err
		}
		defer nc.Close()
		publisher = integration.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
	} else {
		log.Warn().Msg("NATS URL not set, events are kept in memory only")
	}

	srv := api.NewRESTServer(cfg, store, publisher)
	addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("Simulation server stopped")
	return nil
}
