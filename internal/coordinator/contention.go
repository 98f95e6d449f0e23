package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/medium"
	"github.com/wlan-sim/wlan-sim-pro/internal/station"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// ContentionCoordinator lets every station race for the medium with exponential backoff.
// Successful transmissions are laid end to end on the modeled clock.
type ContentionCoordinator struct {
	base

	slotTime    float64 // modeled ms per backoff slot
	retryPause  time.Duration
	holdTime    time.Duration
	maxAttempts int
}

// NewContention creates a contention coordinator
func NewContention(id int, cfg *config.SimulationConfig, m *medium.Medium) (*ContentionCoordinator, error) {
	c := &ContentionCoordinator{}
	if err := c.base.setup(wlan.Contention, id, cfg, m); err != nil {
		return nil, err
	}

	cc := cfg.Contention
	if cc.SlotTime <= 0 {
		return nil, fmt.Errorf("new contention coordinator %d: %w: slot time %v ms", id, ErrInvalidWindow, cc.SlotTime)
	}
	if cc.MaxAttempts < 1 {
		return nil, fmt.Errorf("new contention coordinator %d: max attempts must be at least 1", id)
	}

	c.slotTime = cc.SlotTime
	c.retryPause = cc.RetryPause
	c.holdTime = cc.HoldTime
	c.maxAttempts = cc.MaxAttempts
	return c, nil
}

// RunEpoch starts one task per station and waits for all of them
func (c *ContentionCoordinator) RunEpoch(ctx context.Context) error {
	c.epochMu.Lock()
	defer c.epochMu.Unlock()

	roster := c.Roster()
	if len(roster) == 0 {
		return nil
	}

	stations := make([]*station.ContentionStation, 0, len(roster))
	for _, st := range roster {
		s, ok := st.(*station.ContentionStation)
		if !ok {
			return fmt.Errorf("%w: station %d", ErrDisciplineMismatch, st.ID())
		}
		stations = append(stations, s)
	}

	g, gctx := c.group(ctx)
	for _, s := range stations {
		g.Go(func() error {
			return c.transmit(gctx, s)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("contention epoch: %w", err)
	}

	c.mu.Lock()
	c.epochs++
	epoch := c.epochs
	packets := len(c.transmitted)
	c.mu.Unlock()

	log.Debug().
		Int("coordinator", c.id).
		Int("epoch", epoch).
		Int("stations", len(roster)).
		Int("packets", packets).
		Msg("Contention epoch complete")

	return nil
}

// transmit runs IDLE -> ACQUIRING -> (BACKOFF | TRANSMITTING) -> DONE for one station
func (c *ContentionCoordinator) transmit(ctx context.Context, s *station.ContentionStation) error {
	backoffMs := 0.0

	for !c.medium.TryAcquire() {
		if s.Attempts() >= c.maxAttempts {
			log.Warn().
				Int("coordinator", c.id).
				Int("station", s.ID()).
				Int("attempts", s.Attempts()).
				Msg("Station gave up on the medium this epoch")
			s.ResetBackoff()

			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
			return nil
		}

		slots := s.DrawBackoff()
		backoffMs += float64(slots) * c.slotTime

		if err := sleep(ctx, time.Duration(slots)*c.retryPause); err != nil {
			return err
		}
	}
	defer c.medium.Release()

	pkt := s.CreatePacket()
	duration := c.phy.TransmissionTime(pkt.Size())

	if err := sleep(ctx, c.holdTime); err != nil {
		return err
	}

	c.mu.Lock()
	start := c.clock
	if err := c.recordLocked(pkt, start, start+duration); err != nil {
		c.mu.Unlock()
		return err
	}
	c.latencies = append(c.latencies, backoffMs+duration)
	c.clock += duration
	c.elapsed += duration + backoffMs
	c.mu.Unlock()

	log.Debug().
		Int("station", s.ID()).
		Int("destination", pkt.DestinationID()).
		Int("attempts", s.Attempts()).
		Float64("backoff_ms", backoffMs).
		Float64("airtime_ms", duration).
		Msg("Station transmitted")

	s.ResetBackoff()
	return nil
}
