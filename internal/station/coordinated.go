package station

import (
	"sync/atomic"

	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// CoordinatedStation may only transmit after the coordinator granted it channel state
type CoordinatedStation struct {
	base

	granted atomic.Bool
}

// NewCoordinated creates a coordinated-parallel station
func NewCoordinated(id int, opts Options) (*CoordinatedStation, error) {
	s := &CoordinatedStation{}
	if err := s.base.setup(id, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Discipline returns wlan.CoordinatedParallel
func (s *CoordinatedStation) Discipline() wlan.Discipline { return wlan.CoordinatedParallel }

// CanTransmit reports whether channel state was granted this epoch
func (s *CoordinatedStation) CanTransmit() bool { return s.granted.Load() }

// ChannelStateGranted is an alias of CanTransmit
func (s *CoordinatedStation) ChannelStateGranted() bool { return s.granted.Load() }

// SetChannelState grants or revokes channel state
func (s *CoordinatedStation) SetChannelState(granted bool) { s.granted.Store(granted) }
