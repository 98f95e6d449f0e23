package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wlan-sim/wlan-sim-pro/internal/analyzer"
	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/coordinator"
	"github.com/wlan-sim/wlan-sim-pro/internal/integration"
	"github.com/wlan-sim/wlan-sim-pro/internal/models"
	"github.com/wlan-sim/wlan-sim-pro/internal/report"
	"github.com/wlan-sim/wlan-sim-pro/internal/scenario"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

type runOptions struct {
	name           string
	users          []int
	iterations     int
	epochs         int
	workers        int
	seed           uint64
	analyze        bool
	analyzePackets int
	publish        bool
	jsonOutput     bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the discipline comparison",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cmd, &cfg.Simulation)
		if err := cfg.Simulation.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runScenario(ctx, cmd.OutOrStdout(), cfg)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.name, "name", "cli", "run name")
	f.IntSliceVar(&runOpts.users, "users", nil, "user counts to simulate")
	f.IntVar(&runOpts.iterations, "iterations", 0, "iterations per user count")
	f.IntVar(&runOpts.epochs, "epochs", 0, "epochs per iteration")
	f.IntVar(&runOpts.workers, "workers", 0, "concurrent stations per epoch (0 = unlimited)")
	f.Uint64Var(&runOpts.seed, "seed", 0, "station seed (0 = random)")
	f.BoolVar(&runOpts.analyze, "analyze", false, "print the bit distribution of transmitted payloads")
	f.IntVar(&runOpts.analyzePackets, "analyze-packets", 5, "per-packet rows to print with --analyze")
	f.BoolVar(&runOpts.publish, "publish", true, "publish events to NATS when nats.url is set")
	f.BoolVar(&runOpts.jsonOutput, "json", false, "print the run as JSON")
}

func applyRunFlags(cmd *cobra.Command, sim *config.SimulationConfig) {
	flags := cmd.Flags()
	if flags.Changed("users") {
		sim.UserCounts = runOpts.users
	}
	if flags.Changed("iterations") {
		sim.Iterations = runOpts.iterations
	}
	if flags.Changed("epochs") {
		sim.Epochs = runOpts.epochs
	}
	if flags.Changed("workers") {
		sim.Workers = runOpts.workers
	}
	if flags.Changed("seed") {
		sim.Seed = runOpts.seed
	}
}

func runScenario(ctx context.Context, out io.Writer, cfg *config.Config) error {
	var publisher integration.Publisher = integration.NopPublisher{}
	if runOpts.publish && cfg.NATS.URL != "" {
		nc, err := integration.Connect(cfg.NATS, cfg.Server.Name)
		if err != nil {
			return err
		}
		defer nc.Close()
		publisher = integration.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
	}

	runner, err := scenario.NewRunner(&cfg.Simulation, publisher)
	if err != nil {
		return err
	}

	var captured *captureLog
	if runOpts.analyze {
		captured = newCaptureLog()
		runner.OnIteration = captured.observe
	}

	run := scenario.NewRun(runOpts.name, cfg.Simulation)
	if err := runner.Run(ctx, run); err != nil {
		return fmt.Errorf("run %s: %w", run.ID, err)
	}

	if runOpts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	return writeRun(out, run, captured)
}

func writeRun(out io.Writer, run *models.ScenarioRun, captured *captureLog) error {
	fmt.Fprintln(out, "Simulation Results:")
	if err := report.WriteTable(out, run.Results); err != nil {
		return err
	}
	report.WriteAnalysis(out, run.Results)
	fmt.Fprintln(out)
	report.WriteParameters(out, &run.Parameters)

	if captured == nil {
		return nil
	}

	a := analyzer.New()
	for _, users := range run.Parameters.UserCounts {
		for _, d := range wlan.Disciplines {
			packets := captured.packets(users, d)
			r, err := a.Analyze(packets)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", d, err)
			}
			title := fmt.Sprintf("%s, %d user(s)", d.Label(), users)
			if err := report.WriteBitReport(out, title, r, runOpts.analyzePackets); err != nil {
				return err
			}
		}
	}
	return nil
}

type captureKey struct {
	users      int
	discipline wlan.Discipline
}

// captureLog keeps the transmitted log of the first iteration per user count and discipline
type captureLog struct {
	mu   sync.Mutex
	logs map[captureKey][]wlan.Packet
}

func newCaptureLog() *captureLog {
	return &captureLog{logs: make(map[captureKey][]wlan.Packet)}
}

func (c *captureLog) observe(users, iteration int, coord coordinator.Coordinator) {
	if iteration != 0 {
		return
	}
	packets := coord.TransmittedPackets()

	c.mu.Lock()
	c.logs[captureKey{users: users, discipline: coord.Discipline()}] = packets
	c.mu.Unlock()

	log.Debug().
		Int("users", users).
		Str("discipline", coord.Discipline().String()).
		Int("packets", len(packets)).
		Msg("Captured transmitted log")
}

func (c *captureLog) packets(users int, d wlan.Discipline) []wlan.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logs[captureKey{users: users, discipline: d}]
}
