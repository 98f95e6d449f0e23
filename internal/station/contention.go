package station

import (
	"fmt"

	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// maxBackoffExponent caps the contention window doubling
const maxBackoffExponent = 10

// ContentionStation contends for the medium with truncated binary exponential backoff.
// Backoff state is only touched by the station's own epoch task.
type ContentionStation struct {
	base

	maxBackoff int
	backoff    int
	attempts   int
}

// DefaultMaxBackoff is used when Options.MaxBackoff is unset
const DefaultMaxBackoff = 10

// NewContention creates a contention station
func NewContention(id int, opts Options) (*ContentionStation, error) {
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.MaxBackoff < 1 {
		return nil, fmt.Errorf("station %d: max backoff must be at least 1, got %d", id, opts.MaxBackoff)
	}

	s := &ContentionStation{maxBackoff: opts.MaxBackoff}
	if err := s.base.setup(id, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Discipline returns wlan.Contention
func (s *ContentionStation) Discipline() wlan.Discipline { return wlan.Contention }

// CanTransmit is always true; access is arbitrated by the medium
func (s *ContentionStation) CanTransmit() bool { return true }

// MaxBackoff returns the backoff cap in slots
func (s *ContentionStation) MaxBackoff() int { return s.maxBackoff }

// Backoff returns the current backoff counter in [0, MaxBackoff]
func (s *ContentionStation) Backoff() int { return s.backoff }

// Attempts returns failed acquisitions since the last reset
func (s *ContentionStation) Attempts() int { return s.attempts }

// DrawBackoff records a failed acquisition and draws the next delay from
// [1, min(MaxBackoff, 2^min(attempts,10) - 1)] slots.
func (s *ContentionStation) DrawBackoff() int {
	s.attempts++

	window := ContentionWindow(s.attempts, s.maxBackoff)
	s.backoff = 1 + s.intN(window)
	return s.backoff
}

// ResetBackoff clears the counter after a successful transmission
func (s *ContentionStation) ResetBackoff() {
	s.backoff = 0
	s.attempts = 0
}

// ContentionWindow returns the upper bound of the backoff draw after attempts failures
func ContentionWindow(attempts, maxBackoff int) int {
	exp := attempts
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}
	if exp < 1 {
		exp = 1
	}
	window := (1 << exp) - 1
	if window > maxBackoff {
		window = maxBackoff
	}
	return window
}
