package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/medium"
	"github.com/wlan-sim/wlan-sim-pro/internal/metrics"
	"github.com/wlan-sim/wlan-sim-pro/internal/station"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// Coordinator errors
var (
	ErrDisciplineMismatch = errors.New("station discipline does not match coordinator")
	ErrInvalidSubChannels = errors.New("invalid sub-channel widths")
	ErrInvalidWindow      = errors.New("phase window must be positive")
	ErrNilMedium          = errors.New("medium is required")
)

// Coordinator is an access point running one arbitration discipline over its roster
type Coordinator interface {
	ID() int
	Discipline() wlan.Discipline
	Bandwidth() float64

	// AddStation appends a station to the roster and takes ownership of it
	AddStation(st station.Station) error
	// Roster returns a snapshot of the roster in arrival order
	Roster() []station.Station

	// RunEpoch performs one arbitration pass over the whole roster.
	// An empty roster is a no-op.
	RunEpoch(ctx context.Context) error

	Throughput() float64
	LatencyStats() (avg, max float64)
	// TransmittedPackets returns a copy of the transmitted log
	TransmittedPackets() []wlan.Packet
	Stats() Stats
}

// Stats is a point-in-time view of a coordinator
type Stats struct {
	CoordinatorID int             `json:"coordinatorId"`
	Discipline    wlan.Discipline `json:"discipline"`
	Stations      int             `json:"stations"`
	Epochs        int             `json:"epochs"`
	Dropped       int             `json:"dropped"`
	metrics.Summary
}

// New creates the coordinator for a discipline
func New(d wlan.Discipline, id int, cfg *config.SimulationConfig, m *medium.Medium) (Coordinator, error) {
	switch d {
	case wlan.Contention:
		return NewContention(id, cfg, m)
	case wlan.CoordinatedParallel:
		return NewCoordinatedParallel(id, cfg, m)
	case wlan.ScheduledSubchannel:
		return NewScheduledSubchannel(id, cfg, m)
	default:
		return nil, fmt.Errorf("new coordinator %d: unknown discipline %v", id, d)
	}
}

// base holds the state shared by every discipline.
// mu guards the roster, the log, the samples and the modeled clocks;
// epochMu serializes RunEpoch.
type base struct {
	id         int
	discipline wlan.Discipline
	phy        wlan.PHY
	medium     *medium.Medium
	workers    int

	epochMu sync.Mutex

	mu          sync.RWMutex
	roster      []station.Station
	transmitted []wlan.Packet
	latencies   []float64
	clock       float64 // modeled ms
	elapsed     float64 // modeled occupied ms, the throughput denominator
	epochs      int
	dropped     int
}

func (b *base) setup(d wlan.Discipline, id int, cfg *config.SimulationConfig, m *medium.Medium) error {
	if cfg == nil {
		return fmt.Errorf("new %s coordinator %d: nil config", d, id)
	}
	if m == nil {
		return fmt.Errorf("new %s coordinator %d: %w", d, id, ErrNilMedium)
	}

	phy, err := cfg.PHY()
	if err != nil {
		return fmt.Errorf("new %s coordinator %d: %w", d, id, err)
	}

	b.id = id
	b.discipline = d
	b.phy = phy
	b.medium = m
	b.workers = cfg.Workers
	return nil
}

// ID returns the access point id
func (b *base) ID() int { return b.id }

// Discipline returns the arbitration discipline
func (b *base) Discipline() wlan.Discipline { return b.discipline }

// Bandwidth returns the full channel width in MHz
func (b *base) Bandwidth() float64 { return b.phy.BandwidthMHz }

// AddStation appends a station of the matching discipline
func (b *base) AddStation(st station.Station) error {
	if st == nil {
		return fmt.Errorf("add station: nil station")
	}
	if st.Discipline() != b.discipline {
		return fmt.Errorf("%w: %s station %d on %s coordinator %d",
			ErrDisciplineMismatch, st.Discipline(), st.ID(), b.discipline, b.id)
	}
	if err := st.Attach(b.id); err != nil {
		return err
	}

	b.mu.Lock()
	b.roster = append(b.roster, st)
	b.mu.Unlock()
	return nil
}

// Roster returns a snapshot of the roster
func (b *base) Roster() []station.Station {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]station.Station, len(b.roster))
	copy(out, b.roster)
	return out
}

// TransmittedPackets returns a copy of the transmitted log
func (b *base) TransmittedPackets() []wlan.Packet {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]wlan.Packet, len(b.transmitted))
	copy(out, b.transmitted)
	return out
}

// Throughput returns delivered Mbps over the modeled occupied time
func (b *base) Throughput() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return metrics.ThroughputMbps(b.transmitted, b.elapsed)
}

// LatencyStats returns the average and maximum latency sample in ms
func (b *base) LatencyStats() (avg, max float64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return metrics.LatencyStats(b.latencies)
}

// Stats returns a summary of everything logged so far
func (b *base) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Stats{
		CoordinatorID: b.id,
		Discipline:    b.discipline,
		Stations:      len(b.roster),
		Epochs:        b.epochs,
		Dropped:       b.dropped,
		Summary:       metrics.Summarize(b.transmitted, b.latencies, b.elapsed),
	}
}

// recordLocked stamps pkt and appends it to the log. Callers hold mu.
func (b *base) recordLocked(pkt wlan.Packet, start, end float64) error {
	if err := pkt.SetWindow(start, end); err != nil {
		return fmt.Errorf("record packet from %d: %w", pkt.SourceID(), err)
	}
	b.transmitted = append(b.transmitted, pkt)
	return nil
}

// group returns an errgroup bounded by the configured worker count
func (b *base) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	if b.workers > 0 {
		g.SetLimit(b.workers)
	}
	return g, gctx
}

// sleep pauses for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func validWindow(name string, ms float64) error {
	if ms <= 0 {
		return fmt.Errorf("%w: %s %v ms", ErrInvalidWindow, name, ms)
	}
	return nil
}
