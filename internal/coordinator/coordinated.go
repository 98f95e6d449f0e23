package coordinator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/medium"
	"github.com/wlan-sim/wlan-sim-pro/internal/station"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// CoordinatedParallelCoordinator sounds every station in turn, then lets all granted
// stations transmit at once inside a fixed parallel window.
type CoordinatedParallelCoordinator struct {
	base

	soundingSize int
	window       float64 // ms
}

// NewCoordinatedParallel creates a coordinated-parallel coordinator
func NewCoordinatedParallel(id int, cfg *config.SimulationConfig, m *medium.Medium) (*CoordinatedParallelCoordinator, error) {
	c := &CoordinatedParallelCoordinator{}
	if err := c.base.setup(wlan.CoordinatedParallel, id, cfg, m); err != nil {
		return nil, err
	}

	cc := cfg.Coordinated
	if cc.SoundingPacketSize <= 0 {
		return nil, fmt.Errorf("new coordinated coordinator %d: sounding %w: %d", id, wlan.ErrInvalidPacketSize, cc.SoundingPacketSize)
	}
	if err := validWindow("parallel window", cc.ParallelWindow); err != nil {
		return nil, fmt.Errorf("new coordinated coordinator %d: %w", id, err)
	}

	c.soundingSize = cc.SoundingPacketSize
	c.window = cc.ParallelWindow
	return c, nil
}

// SoundingCost returns the airtime of one sounding exchange in ms
func (c *CoordinatedParallelCoordinator) SoundingCost() float64 {
	return c.phy.TransmissionTime(c.soundingSize)
}

// ParallelWindow returns the parallel phase length in ms
func (c *CoordinatedParallelCoordinator) ParallelWindow() float64 { return c.window }

// RunEpoch runs the sounding phase, a barrier, then the parallel phase.
// Every grant is revoked on return.
func (c *CoordinatedParallelCoordinator) RunEpoch(ctx context.Context) error {
	c.epochMu.Lock()
	defer c.epochMu.Unlock()

	roster := c.Roster()
	if len(roster) == 0 {
		return nil
	}

	stations := make([]*station.CoordinatedStation, 0, len(roster))
	for _, st := range roster {
		s, ok := st.(*station.CoordinatedStation)
		if !ok {
			return fmt.Errorf("%w: station %d", ErrDisciplineMismatch, st.ID())
		}
		stations = append(stations, s)
	}

	defer func() {
		for _, s := range stations {
			s.SetChannelState(false)
		}
	}()

	cost := c.SoundingCost()
	for _, s := range stations {
		if err := c.sound(ctx, s, cost); err != nil {
			return fmt.Errorf("sounding station %d: %w", s.ID(), err)
		}
	}

	c.mu.RLock()
	phaseStart := c.clock
	c.mu.RUnlock()

	g, gctx := c.group(ctx)
	for _, s := range stations {
		g.Go(func() error {
			return c.transmit(gctx, s, phaseStart)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("parallel phase: %w", err)
	}

	c.mu.Lock()
	c.clock = phaseStart + c.window
	c.elapsed += cost*float64(len(stations)) + c.window
	c.epochs++
	epoch := c.epochs
	c.mu.Unlock()

	log.Debug().
		Int("coordinator", c.id).
		Int("epoch", epoch).
		Int("stations", len(stations)).
		Float64("sounding_ms", cost*float64(len(stations))).
		Msg("Coordinated epoch complete")

	return nil
}

// sound holds the medium for one channel-state exchange and grants the station
func (c *CoordinatedParallelCoordinator) sound(ctx context.Context, s *station.CoordinatedStation, cost float64) error {
	for !c.medium.TryAcquire() {
		if err := c.medium.WaitUntilFree(ctx); err != nil {
			return err
		}
	}
	defer c.medium.Release()

	pkt, err := wlan.NewPacket(c.soundingSize, c.id, s.ID())
	if err != nil {
		return err
	}

	c.mu.Lock()
	start := c.clock
	if err := c.recordLocked(pkt, start, start+cost); err != nil {
		c.mu.Unlock()
		return err
	}
	c.clock += cost
	c.mu.Unlock()

	s.SetChannelState(true)
	return nil
}

// transmit sends one data packet if the station holds a grant and the packet fits the window
func (c *CoordinatedParallelCoordinator) transmit(ctx context.Context, s *station.CoordinatedStation, phaseStart float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.CanTransmit() {
		return nil
	}

	pkt := s.CreatePacket()
	airtime := c.phy.TransmissionTime(pkt.Size())
	if airtime > c.window {
		log.Debug().
			Int("station", s.ID()).
			Float64("airtime_ms", airtime).
			Float64("window_ms", c.window).
			Msg("Packet does not fit the parallel window")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.recordLocked(pkt, phaseStart, phaseStart+c.window); err != nil {
		return err
	}
	c.latencies = append(c.latencies, c.window)
	return nil
}
