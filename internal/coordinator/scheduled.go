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

// Allocation records one station's sub-channel assignment in an epoch.
// Rate and airtime are diagnostics only; they never gate delivery.
type Allocation struct {
	Epoch     int     `json:"epoch"`
	StationID int     `json:"stationId"`
	WidthMHz  float64 `json:"widthMHz"`
	RateMbps  float64 `json:"rateMbps"`
	AirtimeMs float64 `json:"airtimeMs"`
	Fits      bool    `json:"fits"`
}

// ScheduledSubchannelCoordinator splits the channel into fixed sub-channels and
// lets every assigned station transmit inside one allocation window.
type ScheduledSubchannelCoordinator struct {
	base

	widths []float64 // MHz
	window float64   // ms

	// allocations of the last completed epoch, in roster order; guarded by mu
	allocations []Allocation
}

// NewScheduledSubchannel creates a scheduled-subchannel coordinator
func NewScheduledSubchannel(id int, cfg *config.SimulationConfig, m *medium.Medium) (*ScheduledSubchannelCoordinator, error) {
	c := &ScheduledSubchannelCoordinator{}
	if err := c.base.setup(wlan.ScheduledSubchannel, id, cfg, m); err != nil {
		return nil, err
	}

	sc := cfg.Scheduled
	if err := validateWidths(sc.SubChannels, c.phy.BandwidthMHz); err != nil {
		return nil, fmt.Errorf("new scheduled coordinator %d: %w", id, err)
	}
	if err := validWindow("allocation window", sc.AllocationWindow); err != nil {
		return nil, fmt.Errorf("new scheduled coordinator %d: %w", id, err)
	}

	c.widths = append([]float64(nil), sc.SubChannels...)
	c.window = sc.AllocationWindow
	return c, nil
}

func validateWidths(widths []float64, bandwidth float64) error {
	if len(widths) == 0 {
		return fmt.Errorf("%w: none configured", ErrInvalidSubChannels)
	}

	total := 0.0
	for _, w := range widths {
		if w <= 0 || w > bandwidth {
			return fmt.Errorf("%w: width %v MHz outside (0, %v]", ErrInvalidSubChannels, w, bandwidth)
		}
		total += w
	}
	if total > bandwidth {
		return fmt.Errorf("%w: %v MHz exceeds %v MHz channel", ErrInvalidSubChannels, total, bandwidth)
	}
	return nil
}

// SubChannels returns the configured widths in MHz
func (c *ScheduledSubchannelCoordinator) SubChannels() []float64 {
	return append([]float64(nil), c.widths...)
}

// AllocationWindow returns the allocation window in ms
func (c *ScheduledSubchannelCoordinator) AllocationWindow() float64 { return c.window }

// Allocations returns the assignments of the last completed epoch
func (c *ScheduledSubchannelCoordinator) Allocations() []Allocation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Allocation(nil), c.allocations...)
}

// RunEpoch assigns sub-channels round-robin and transmits in one allocation window.
// The assignment counter starts each epoch at the epoch ordinal, so over len(widths)
// epochs every station is given every width once.
func (c *ScheduledSubchannelCoordinator) RunEpoch(ctx context.Context) error {
	c.epochMu.Lock()
	defer c.epochMu.Unlock()

	roster := c.Roster()
	if len(roster) == 0 {
		return nil
	}

	c.mu.RLock()
	epoch := c.epochs
	start := c.clock
	c.mu.RUnlock()

	counter := epoch
	allocs := make([]Allocation, 0, len(roster))
	assigned := make([]*station.ScheduledStation, 0, len(roster))
	for _, st := range roster {
		s, ok := st.(*station.ScheduledStation)
		if !ok {
			return fmt.Errorf("%w: station %d", ErrDisciplineMismatch, st.ID())
		}
		if !s.CanTransmit() {
			continue
		}

		width := c.widths[counter%len(c.widths)]
		counter++

		sub := c.phy.WithBandwidth(width)
		airtime := sub.TransmissionTime(s.PacketSize())
		allocs = append(allocs, Allocation{
			Epoch:     epoch,
			StationID: s.ID(),
			WidthMHz:  width,
			RateMbps:  sub.DataRateMbps(),
			AirtimeMs: airtime,
			Fits:      airtime <= c.window,
		})
		assigned = append(assigned, s)
	}

	g, gctx := c.group(ctx)
	for _, s := range assigned {
		g.Go(func() error {
			return c.transmit(gctx, s, start)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("allocation window: %w", err)
	}

	c.mu.Lock()
	c.allocations = allocs
	c.clock = start + c.window
	c.elapsed += c.window
	c.epochs++
	c.mu.Unlock()

	log.Debug().
		Int("coordinator", c.id).
		Int("epoch", epoch+1).
		Int("assigned", len(assigned)).
		Msg("Scheduled epoch complete")

	return nil
}

func (c *ScheduledSubchannelCoordinator) transmit(ctx context.Context, s *station.ScheduledStation, start float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pkt := s.CreatePacket()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.recordLocked(pkt, start, start+c.window); err != nil {
		return err
	}
	c.latencies = append(c.latencies, c.window)
	return nil
}
