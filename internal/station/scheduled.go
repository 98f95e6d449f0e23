package station

import "github.com/wlan-sim/wlan-sim-pro/pkg/wlan"

// ScheduledStation is always eligible; the coordinator decides its sub-channel
type ScheduledStation struct {
	base
}

// NewScheduled creates a scheduled-subchannel station
func NewScheduled(id int, opts Options) (*ScheduledStation, error) {
	s := &ScheduledStation{}
	if err := s.base.setup(id, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Discipline returns wlan.ScheduledSubchannel
func (s *ScheduledStation) Discipline() wlan.Discipline { return wlan.ScheduledSubchannel }

// CanTransmit is always true
func (s *ScheduledStation) CanTransmit() bool { return true }
