package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/coordinator"
	"github.com/wlan-sim/wlan-sim-pro/internal/integration"
	"github.com/wlan-sim/wlan-sim-pro/internal/medium"
	"github.com/wlan-sim/wlan-sim-pro/internal/metrics"
	"github.com/wlan-sim/wlan-sim-pro/internal/models"
	"github.com/wlan-sim/wlan-sim-pro/internal/station"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// IterationHook is called with the coordinator of every finished iteration
type IterationHook func(users int, iteration int, c coordinator.Coordinator)

// Runner drives every discipline over every configured user count
type Runner struct {
	cfg       config.SimulationConfig
	publisher integration.Publisher

	// OnIteration, if set, observes each coordinator before it is discarded
	OnIteration IterationHook
}

// NewRunner validates cfg and creates a runner. A nil publisher discards events.
func NewRunner(cfg *config.SimulationConfig, publisher integration.Publisher) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("new runner: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new runner: %w", err)
	}
	if publisher == nil {
		publisher = integration.NopPublisher{}
	}
	return &Runner{cfg: *cfg, publisher: publisher}, nil
}

// NewRun creates a pending run for cfg
func NewRun(name string, cfg config.SimulationConfig) *models.ScenarioRun {
	return &models.ScenarioRun{
		BaseModel:  models.NewBaseModel(),
		Name:       name,
		Status:     models.RunStatusPending,
		Parameters: cfg,
	}
}

// Run executes run and fills in its results and status
func (r *Runner) Run(ctx context.Context, run *models.ScenarioRun) error {
	started := time.Now().UTC()
	run.Status = models.RunStatusRunning
	run.StartedAt = &started
	run.Results = run.Results[:0]
	r.publishRun(ctx, run, models.EventTypeRunStarted)

	log.Info().
		Str("run_id", run.ID.String()).
		Ints("users", r.cfg.UserCounts).
		Int("iterations", r.cfg.Iterations).
		Int("epochs", r.cfg.Epochs).
		Msg("Scenario run started")

	err := r.run(ctx, run)

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		r.publishRun(ctx, run, models.EventTypeRunFailed)
		return err
	}

	run.Status = models.RunStatusCompleted
	r.publishRun(ctx, run, models.EventTypeRunFinished)

	log.Info().
		Str("run_id", run.ID.String()).
		Dur("duration", finished.Sub(started)).
		Msg("Scenario run completed")
	return nil
}

func (r *Runner) run(ctx context.Context, run *models.ScenarioRun) error {
	for _, users := range r.cfg.UserCounts {
		result := models.ScenarioResult{Users: users}

		for _, d := range wlan.Disciplines {
			dr, err := r.RunDiscipline(ctx, run.ID, users, d)
			if err != nil {
				return fmt.Errorf("%s with %d users: %w", d, users, err)
			}
			result.Disciplines = append(result.Disciplines, dr)
		}

		run.Results = append(run.Results, result)
	}
	return nil
}

// RunDiscipline averages Iterations fresh scenarios of users stations under d
func (r *Runner) RunDiscipline(ctx context.Context, runID uuid.UUID, users int, d wlan.Discipline) (models.DisciplineResult, error) {
	result := models.DisciplineResult{
		Discipline: d,
		Iterations: r.cfg.Iterations,
		Epochs:     r.cfg.Epochs,
	}

	throughputs := make([]float64, 0, r.cfg.Iterations)
	avgs := make([]float64, 0, r.cfg.Iterations)
	maxes := make([]float64, 0, r.cfg.Iterations)

	for it := 0; it < r.cfg.Iterations; it++ {
		c, err := r.build(d, users, it)
		if err != nil {
			return models.DisciplineResult{}, err
		}

		for e := 1; e <= r.cfg.Epochs; e++ {
			if err := c.RunEpoch(ctx); err != nil {
				return models.DisciplineResult{}, fmt.Errorf("iteration %d epoch %d: %w", it, e, err)
			}
			r.publishEpoch(ctx, runID, users, it, e, c.Stats())
		}

		stats := c.Stats()
		throughputs = append(throughputs, stats.ThroughputMbps)
		avgs = append(avgs, stats.AvgLatencyMs)
		maxes = append(maxes, stats.MaxLatencyMs)
		result.Packets += stats.Packets
		result.Dropped += stats.Dropped

		if r.OnIteration != nil {
			r.OnIteration(users, it, c)
		}
	}

	result.ThroughputMbps = metrics.Mean(throughputs)
	result.AvgLatencyMs = metrics.Mean(avgs)
	result.MaxLatencyMs = metrics.Mean(maxes)

	log.Info().
		Str("discipline", d.Label()).
		Int("users", users).
		Float64("throughput_mbps", result.ThroughputMbps).
		Float64("avg_latency_ms", result.AvgLatencyMs).
		Float64("max_latency_ms", result.MaxLatencyMs).
		Msg("Discipline simulated")

	return result, nil
}

// build creates a coordinator with a fresh medium and roster
func (r *Runner) build(d wlan.Discipline, users, iteration int) (coordinator.Coordinator, error) {
	c, err := coordinator.New(d, r.cfg.AccessPointID, &r.cfg, medium.New())
	if err != nil {
		return nil, err
	}

	opts := station.Options{
		PacketSize:       r.packetSize(d),
		DestinationRange: r.cfg.DestinationRange,
		MaxBackoff:       r.cfg.Contention.MaxBackoff,
	}
	if r.cfg.Seed != 0 {
		opts.Seed = r.cfg.Seed + uint64(iteration)
	}

	for i := 0; i < users; i++ {
		st, err := station.New(d, i, opts)
		if err != nil {
			return nil, err
		}
		if err := c.AddStation(st); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (r *Runner) packetSize(d wlan.Discipline) int {
	switch d {
	case wlan.CoordinatedParallel:
		return r.cfg.Coordinated.PacketSize
	case wlan.ScheduledSubchannel:
		return r.cfg.Scheduled.PacketSize
	default:
		return r.cfg.Contention.PacketSize
	}
}

func (r *Runner) publishEpoch(ctx context.Context, runID uuid.UUID, users, iteration, epoch int, stats coordinator.Stats) {
	event := &models.EpochEvent{
		Type:           models.EventTypeEpoch,
		RunID:          runID,
		Time:           time.Now().UTC(),
		Users:          users,
		Iteration:      iteration,
		Epoch:          epoch,
		Discipline:     stats.Discipline,
		Packets:        stats.Packets,
		ThroughputMbps: stats.ThroughputMbps,
		AvgLatencyMs:   stats.AvgLatencyMs,
		MaxLatencyMs:   stats.MaxLatencyMs,
	}

	if err := r.publisher.PublishEpoch(ctx, event); err != nil {
		log.Warn().Err(err).Int("epoch", epoch).Msg("Failed to publish epoch event")
	}
}

func (r *Runner) publishRun(ctx context.Context, run *models.ScenarioRun, t models.EventType) {
	event := &models.RunEvent{
		Type:   t,
		RunID:  run.ID,
		Time:   time.Now().UTC(),
		Status: run.Status,
		Error:  run.Error,
	}
	if t == models.EventTypeRunFinished {
		event.Run = run
	}

	if err := r.publisher.PublishRun(ctx, event); err != nil {
		log.Warn().Err(err).Str("type", string(t)).Msg("Failed to publish run event")
	}
}
