package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlan-sim/wlan-sim-pro/internal/analyzer"
	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/models"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

func sampleResults() []models.ScenarioResult {
	return []models.ScenarioResult{
		{
			Users: 1,
			Disciplines: []models.DisciplineResult{
				{Discipline: wlan.Contention, ThroughputMbps: 100, AvgLatencyMs: 0.0614, MaxLatencyMs: 0.0614},
				{Discipline: wlan.CoordinatedParallel, ThroughputMbps: 150, AvgLatencyMs: 15, MaxLatencyMs: 15},
				{Discipline: wlan.ScheduledSubchannel, ThroughputMbps: 80, AvgLatencyMs: 5, MaxLatencyMs: 5},
			},
		},
		{
			Users: 10,
			Disciplines: []models.DisciplineResult{
				{Discipline: wlan.Contention, ThroughputMbps: 0},
				{Discipline: wlan.CoordinatedParallel, ThroughputMbps: 20},
				{Discipline: wlan.ScheduledSubchannel, ThroughputMbps: 30},
			},
		},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleResults()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "WiFi4 Tput")
	assert.Contains(t, lines[0], "WiFi6 MaxLat")
	assert.Contains(t, lines[1], "(Mbps)")
	assert.Contains(t, lines[2], "100.00")
	assert.Contains(t, lines[2], "15.000")
	assert.True(t, strings.HasPrefix(lines[3], "10"))
}

func TestImprovementAndBest(t *testing.T) {
	r := sampleResults()

	pct, ok := Improvement(r[0], wlan.CoordinatedParallel)
	assert.True(t, ok)
	assert.InDelta(t, 50, pct, 1e-9)

	_, ok = Improvement(r[0], wlan.ScheduledSubchannel)
	assert.False(t, ok)

	_, ok = Improvement(r[1], wlan.ScheduledSubchannel)
	assert.False(t, ok, "no baseline")

	best, ok := Best(r[0])
	require.True(t, ok)
	assert.Equal(t, wlan.CoordinatedParallel, best.Discipline)

	_, ok = Best(models.ScenarioResult{})
	assert.False(t, ok)
}

func TestWriteAnalysis(t *testing.T) {
	var buf bytes.Buffer
	WriteAnalysis(&buf, sampleResults())
	out := buf.String()

	assert.Contains(t, out, "--- 1 User ---")
	assert.Contains(t, out, "--- 10 Users ---")
	assert.Contains(t, out, "(+50.0% improvement)")
	assert.Contains(t, out, "Best Throughput: WiFi 5 with 150.00 Mbps")
	assert.Contains(t, out, "Best Throughput: WiFi 6 with 30.00 Mbps")
}

func TestWriteParameters(t *testing.T) {
	var buf bytes.Buffer
	WriteParameters(&buf, &config.Default().Simulation)
	out := buf.String()

	assert.Contains(t, out, "Bandwidth: 20 MHz")
	assert.Contains(t, out, "Coding Rate: 0.8333")
	assert.Contains(t, out, "WiFi 6 Sub-channels: [2 4 10] MHz")
}

func TestWriteBitReport(t *testing.T) {
	r := analyzer.Report{
		Packets: []analyzer.BitCount{
			{SourceID: 1, DestinationID: 2, Ones: 4, Zeros: 4, OneProbability: 0.5},
			{SourceID: 3, DestinationID: 4, Ones: 8, Zeros: 0, OneProbability: 1},
		},
		Total: analyzer.BitCount{Ones: 12, Zeros: 4, OneProbability: 0.75},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBitReport(&buf, "WiFi 4", r, 1))
	out := buf.String()

	assert.Contains(t, out, "WiFi 4: 2 packets, 12 ones, 4 zeros, P(1)=0.7500")
	assert.Contains(t, out, "0.5000")
	assert.NotContains(t, out, "1.0000")
}
