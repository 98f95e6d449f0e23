package wlan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransmissionTimeMatchesAirtimeFormula(t *testing.T) {
	phy, err := NewPHY(20, 8, 5.0/6.0)
	require.NoError(t, err)

	assert.InDelta(t, 133.333, phy.DataRateMbps(), 0.001)
	assert.InDelta(t, 0.06144, phy.TransmissionTime(1024), 1e-9)

	slower, err := NewPHY(20, 8, 2.0/3.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0768, slower.TransmissionTime(1024), 1e-9)
}

func TestSubChannelScalesRate(t *testing.T) {
	phy, err := NewPHY(20, 8, 5.0/6.0)
	require.NoError(t, err)

	narrow := phy.WithBandwidth(2)
	assert.InDelta(t, phy.TransmissionTime(1024)*10, narrow.TransmissionTime(1024), 1e-9)
	assert.Equal(t, 20.0, phy.BandwidthMHz, "WithBandwidth must not modify the receiver")
}

func TestNewPHYRejectsInvalidParameters(t *testing.T) {
	_, err := NewPHY(0, 8, 0.5)
	assert.ErrorIs(t, err, ErrInvalidBandwidth)

	_, err = NewPHY(-20, 8, 0.5)
	assert.ErrorIs(t, err, ErrInvalidBandwidth)

	_, err = NewPHY(20, 0, 0.5)
	assert.ErrorIs(t, err, ErrInvalidModulation)

	_, err = NewPHY(20, 8, 1.5)
	assert.ErrorIs(t, err, ErrInvalidCodingRate)
}

func TestTransmissionTimeOfEmptyPayload(t *testing.T) {
	assert.Zero(t, PHY{}.TransmissionTime(1024))
	assert.Zero(t, PHY{BandwidthMHz: 20, ModulationBits: 8, CodingRate: 1}.TransmissionTime(0))
}
