package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

func packets(t *testing.T, sizes ...int) []wlan.Packet {
	t.Helper()
	out := make([]wlan.Packet, 0, len(sizes))
	for i, size := range sizes {
		p, err := wlan.NewPacket(size, i, 0)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestThroughputZeroDenominator(t *testing.T) {
	log := packets(t, 1024, 512)

	assert.Zero(t, ThroughputMbps(log, 0))
	assert.Zero(t, ThroughputMbps(log, -3))
	assert.Zero(t, ThroughputMbps(nil, 10))
}

func TestThroughputMbps(t *testing.T) {
	log := packets(t, 1024)

	// 8192 bits over 1 ms
	assert.InDelta(t, 8.192, ThroughputMbps(log, 1), 1e-9)

	log = packets(t, 1000, 1000)
	assert.InDelta(t, 3.2, ThroughputMbps(log, 5), 1e-9)
	assert.GreaterOrEqual(t, ThroughputMbps(log, 0.001), 0.0)
}

func TestLatencyStatsEmpty(t *testing.T) {
	avg, max := LatencyStats(nil)
	assert.Zero(t, avg)
	assert.Zero(t, max)
}

func TestLatencyStats(t *testing.T) {
	avg, max := LatencyStats([]float64{1, 2, 6})
	assert.InDelta(t, 3, avg, 1e-9)
	assert.InDelta(t, 6, max, 1e-9)

	avg, max = LatencyStats([]float64{15})
	assert.Equal(t, 15.0, avg)
	assert.Equal(t, 15.0, max)
}

func TestSummarize(t *testing.T) {
	log := packets(t, 100, 200)
	s := Summarize(log, []float64{5, 5}, 5)

	assert.Equal(t, 2, s.Packets)
	assert.Equal(t, int64(2400), s.Bits)
	assert.InDelta(t, 0.48, s.ThroughputMbps, 1e-9)
	assert.Equal(t, 5.0, s.AvgLatencyMs)
	assert.Equal(t, 5.0, s.MaxLatencyMs)

	assert.Equal(t, Summary{}, Summarize(nil, nil, 0))
}

func TestMean(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{2, 3}), 1e-9)
}
