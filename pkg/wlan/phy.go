package wlan

import (
	"errors"
	"fmt"
)

// Configuration errors
var (
	ErrInvalidBandwidth  = errors.New("bandwidth must be positive")
	ErrInvalidModulation = errors.New("modulation bits must be positive")
	ErrInvalidCodingRate = errors.New("coding rate must be in (0, 1]")
	ErrInvalidPacketSize = errors.New("packet size must be positive")
)

// PHY describes the rate parameters of a channel
type PHY struct {
	BandwidthMHz   float64 `json:"bandwidthMHz"`
	ModulationBits int     `json:"modulationBits"`
	CodingRate     float64 `json:"codingRate"`
}

// NewPHY validates and returns a PHY
func NewPHY(bandwidthMHz float64, modulationBits int, codingRate float64) (PHY, error) {
	p := PHY{
		BandwidthMHz:   bandwidthMHz,
		ModulationBits: modulationBits,
		CodingRate:     codingRate,
	}
	if err := p.Validate(); err != nil {
		return PHY{}, err
	}
	return p, nil
}

// Validate checks the PHY parameters
func (p PHY) Validate() error {
	if p.BandwidthMHz <= 0 {
		return fmt.Errorf("%w: %v MHz", ErrInvalidBandwidth, p.BandwidthMHz)
	}
	if p.ModulationBits <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidModulation, p.ModulationBits)
	}
	if p.CodingRate <= 0 || p.CodingRate > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidCodingRate, p.CodingRate)
	}
	return nil
}

// WithBandwidth returns a copy using a different channel width, e.g. a sub-channel
func (p PHY) WithBandwidth(bandwidthMHz float64) PHY {
	p.BandwidthMHz = bandwidthMHz
	return p
}

// DataRateMbps = bandwidth * bits per symbol * coding rate
func (p PHY) DataRateMbps() float64 {
	return p.BandwidthMHz * float64(p.ModulationBits) * p.CodingRate
}

// TransmissionTime returns the airtime of sizeBytes in milliseconds
func (p PHY) TransmissionTime(sizeBytes int) float64 {
	rate := p.DataRateMbps()
	if rate <= 0 || sizeBytes <= 0 {
		return 0
	}
	return float64(sizeBytes) * 8 / (rate * 1e6) * 1000
}
