package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/medium"
	"github.com/wlan-sim/wlan-sim-pro/internal/station"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

func testConfig() *config.SimulationConfig {
	cfg := config.Default().Simulation
	cfg.Seed = 42
	cfg.Contention.RetryPause = time.Microsecond
	return &cfg
}

func newCoordinator(t *testing.T, d wlan.Discipline, cfg *config.SimulationConfig, stations int) Coordinator {
	t.Helper()

	c, err := New(d, cfg.AccessPointID, cfg, medium.New())
	require.NoError(t, err)

	for i := 0; i < stations; i++ {
		st, err := station.New(d, i+1, station.Options{
			PacketSize: 1024,
			Seed:       cfg.Seed,
			MaxBackoff: cfg.Contention.MaxBackoff,
		})
		require.NoError(t, err)
		require.NoError(t, c.AddStation(st))
	}
	return c
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BandwidthMHz = 0
	for _, d := range wlan.Disciplines {
		_, err := New(d, 1, cfg, medium.New())
		assert.ErrorIs(t, err, wlan.ErrInvalidBandwidth, d.String())
	}

	_, err := New(wlan.Contention, 1, testConfig(), nil)
	assert.ErrorIs(t, err, ErrNilMedium)

	_, err = New(wlan.Discipline(0), 1, testConfig(), medium.New())
	assert.Error(t, err)
}

func TestEmptyRosterIsNoop(t *testing.T) {
	for _, d := range wlan.Disciplines {
		c := newCoordinator(t, d, testConfig(), 0)
		require.NoError(t, c.RunEpoch(context.Background()))

		assert.Zero(t, c.Throughput(), d.String())
		avg, max := c.LatencyStats()
		assert.Zero(t, avg)
		assert.Zero(t, max)
		assert.Empty(t, c.TransmittedPackets())
		assert.Zero(t, c.Stats().Epochs)
	}
}

func TestAddStationDisciplineMismatch(t *testing.T) {
	c := newCoordinator(t, wlan.Contention, testConfig(), 0)

	st, err := station.NewScheduled(1, station.Options{PacketSize: 10})
	require.NoError(t, err)
	assert.ErrorIs(t, c.AddStation(st), ErrDisciplineMismatch)
	assert.Empty(t, c.Roster())

	_, attached := st.Owner()
	assert.False(t, attached)
}

func TestStationOwnedByOneCoordinator(t *testing.T) {
	cfg := testConfig()
	a := newCoordinator(t, wlan.Contention, cfg, 0)
	b := newCoordinator(t, wlan.Contention, cfg, 0)

	st, err := station.NewContention(1, station.Options{PacketSize: 10})
	require.NoError(t, err)
	require.NoError(t, a.AddStation(st))
	assert.ErrorIs(t, b.AddStation(st), station.ErrStationAttached)
	assert.Len(t, a.Roster(), 1)
	assert.Empty(t, b.Roster())
}

func TestRosterKeepsArrivalOrder(t *testing.T) {
	c := newCoordinator(t, wlan.ScheduledSubchannel, testConfig(), 5)

	roster := c.Roster()
	require.Len(t, roster, 5)
	for i, st := range roster {
		assert.Equal(t, i+1, st.ID())
	}
}

func TestContentionAirtimeAndThroughput(t *testing.T) {
	tests := []struct {
		name       string
		rate       config.CodingRate
		airtime    float64
		throughput float64
	}{
		{"rate 5/6", config.CodingRate(5.0 / 6.0), 0.06144, 133.333},
		{"rate 2/3", config.CodingRate(2.0 / 3.0), 0.0768, 106.667},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.CodingRate = tt.rate

			c := newCoordinator(t, wlan.Contention, cfg, 1)
			require.NoError(t, c.RunEpoch(context.Background()))

			log := c.TransmittedPackets()
			require.Len(t, log, 1)
			w, ok := log[0].Window()
			require.True(t, ok)
			assert.InDelta(t, 0, w.Start, 1e-12)
			assert.InDelta(t, tt.airtime, w.Duration(), 1e-9)

			assert.InDelta(t, tt.throughput, c.Throughput(), 1e-3)
			avg, max := c.LatencyStats()
			assert.InDelta(t, tt.airtime, avg, 1e-9)
			assert.InDelta(t, tt.airtime, max, 1e-9)
		})
	}
}

func TestContentionLiveness(t *testing.T) {
	c := newCoordinator(t, wlan.Contention, testConfig(), 20)
	require.NoError(t, c.RunEpoch(context.Background()))

	seen := map[int]int{}
	for _, p := range c.TransmittedPackets() {
		seen[p.SourceID()]++
	}
	for id := 1; id <= 20; id++ {
		assert.Equal(t, 1, seen[id], "station %d", id)
	}
	assert.Zero(t, c.Stats().Dropped)
}

func TestContentionWindowsDoNotOverlap(t *testing.T) {
	c := newCoordinator(t, wlan.Contention, testConfig(), 10)
	require.NoError(t, c.RunEpoch(context.Background()))
	require.NoError(t, c.RunEpoch(context.Background()))

	log := c.TransmittedPackets()
	require.Len(t, log, 20)

	prevEnd := 0.0
	for _, p := range log {
		w, ok := p.Window()
		require.True(t, ok)
		assert.InDelta(t, prevEnd, w.Start, 1e-9)
		prevEnd = w.End
	}

	// the denominator covers at least the serialized airtime
	stats := c.Stats()
	assert.GreaterOrEqual(t, stats.ElapsedMs, prevEnd-1e-9)
	assert.Equal(t, 2, stats.Epochs)
}

func TestContentionLatencyIncludesBackoff(t *testing.T) {
	cfg := testConfig()
	c := newCoordinator(t, wlan.Contention, cfg, 1)

	m := c.(*ContentionCoordinator).medium
	require.True(t, m.TryAcquire())
	go func() {
		time.Sleep(5 * time.Millisecond)
		m.Release()
	}()

	require.NoError(t, c.RunEpoch(context.Background()))

	airtime := 1024 * 8 / (20 * 8 * (5.0 / 6.0) * 1e6) * 1000
	_, max := c.LatencyStats()
	assert.Greater(t, max, airtime)
	assert.InDelta(t, max, c.Stats().ElapsedMs, 1e-9)
}

func TestContentionGivesUpAfterMaxAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Contention.MaxAttempts = 3
	c := newCoordinator(t, wlan.Contention, cfg, 1)

	m := c.(*ContentionCoordinator).medium
	require.True(t, m.TryAcquire())
	defer m.Release()

	require.NoError(t, c.RunEpoch(context.Background()))
	assert.Empty(t, c.TransmittedPackets())
	assert.Equal(t, 1, c.Stats().Dropped)
	assert.Zero(t, c.Throughput())
}

func TestContentionCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Contention.RetryPause = time.Second
	c := newCoordinator(t, wlan.Contention, cfg, 1)

	m := c.(*ContentionCoordinator).medium
	require.True(t, m.TryAcquire())
	defer m.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.RunEpoch(ctx), context.DeadlineExceeded)
}

func TestCoordinatedGrantsResetAfterEpoch(t *testing.T) {
	c := newCoordinator(t, wlan.CoordinatedParallel, testConfig(), 4)
	require.NoError(t, c.RunEpoch(context.Background()))

	for _, st := range c.Roster() {
		assert.False(t, st.CanTransmit(), "station %d", st.ID())
	}
}

func TestCoordinatedEpoch(t *testing.T) {
	cfg := testConfig()
	c := newCoordinator(t, wlan.CoordinatedParallel, cfg, 3)
	cp := c.(*CoordinatedParallelCoordinator)

	require.NoError(t, c.RunEpoch(context.Background()))

	cost := cp.SoundingCost()
	assert.InDelta(t, 200*8/(133.3333333333*1e6)*1000, cost, 1e-9)

	log := c.TransmittedPackets()
	require.Len(t, log, 6)

	// sounding exchanges come first, serialized in roster order
	for i := 0; i < 3; i++ {
		p := log[i]
		assert.Equal(t, 200, p.Size())
		assert.Equal(t, cfg.AccessPointID, p.SourceID())
		assert.Equal(t, i+1, p.DestinationID())
		w, _ := p.Window()
		assert.InDelta(t, float64(i)*cost, w.Start, 1e-9)
		assert.InDelta(t, cost, w.Duration(), 1e-9)
	}

	phaseStart := 3 * cost
	for _, p := range log[3:] {
		assert.Equal(t, 1024, p.Size())
		w, _ := p.Window()
		assert.InDelta(t, phaseStart, w.Start, 1e-9)
		assert.InDelta(t, 15, w.Duration(), 1e-9)
	}

	stats := c.Stats()
	assert.InDelta(t, 3*cost+15, stats.ElapsedMs, 1e-9)
	assert.Equal(t, 3, len(c.(*CoordinatedParallelCoordinator).latencies))
	avg, max := c.LatencyStats()
	assert.Equal(t, 15.0, avg)
	assert.Equal(t, 15.0, max)

	bits := float64(3*200*8 + 3*1024*8)
	assert.InDelta(t, bits/((3*cost+15)*1000), c.Throughput(), 1e-9)
}

func TestCoordinatedSkipsPacketsLongerThanWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Coordinated.ParallelWindow = 0.01
	c := newCoordinator(t, wlan.CoordinatedParallel, cfg, 2)

	require.NoError(t, c.RunEpoch(context.Background()))

	log := c.TransmittedPackets()
	assert.Len(t, log, 2) // sounding only
	avg, _ := c.LatencyStats()
	assert.Zero(t, avg)
	for _, st := range c.Roster() {
		assert.False(t, st.CanTransmit())
	}
}

func TestCoordinatedRejectsBadWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Coordinated.ParallelWindow = 0
	_, err := NewCoordinatedParallel(1, cfg, medium.New())
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestCoordinatedCancelRevokesGrants(t *testing.T) {
	c := newCoordinator(t, wlan.CoordinatedParallel, testConfig(), 3)
	m := c.(*CoordinatedParallelCoordinator).medium
	require.True(t, m.TryAcquire())
	defer m.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.RunEpoch(ctx), context.DeadlineExceeded)

	for _, st := range c.Roster() {
		assert.False(t, st.CanTransmit())
	}
	assert.Zero(t, c.Stats().Epochs)
}

func TestScheduledRoundRobinFairness(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 6, 7} {
		cfg := testConfig()
		c := newCoordinator(t, wlan.ScheduledSubchannel, cfg, n)
		sc := c.(*ScheduledSubchannelCoordinator)
		widths := sc.SubChannels()

		got := map[int]map[float64]int{}
		for e := 0; e < len(widths); e++ {
			require.NoError(t, c.RunEpoch(context.Background()))
			allocs := sc.Allocations()
			require.Len(t, allocs, n)
			for _, a := range allocs {
				if got[a.StationID] == nil {
					got[a.StationID] = map[float64]int{}
				}
				got[a.StationID][a.WidthMHz]++
			}
		}

		for id := 1; id <= n; id++ {
			for _, w := range widths {
				assert.Equal(t, 1, got[id][w], "n=%d station %d width %v", n, id, w)
			}
		}
	}
}

func TestScheduledFirstEpochCyclesWidths(t *testing.T) {
	c := newCoordinator(t, wlan.ScheduledSubchannel, testConfig(), 4)
	sc := c.(*ScheduledSubchannelCoordinator)
	require.NoError(t, c.RunEpoch(context.Background()))

	var widths []float64
	for _, a := range sc.Allocations() {
		widths = append(widths, a.WidthMHz)
	}
	assert.Equal(t, []float64{2, 4, 10, 2}, widths)
}

func TestScheduledEpoch(t *testing.T) {
	c := newCoordinator(t, wlan.ScheduledSubchannel, testConfig(), 3)
	sc := c.(*ScheduledSubchannelCoordinator)
	require.NoError(t, c.RunEpoch(context.Background()))

	log := c.TransmittedPackets()
	require.Len(t, log, 3)
	for _, p := range log {
		w, _ := p.Window()
		assert.InDelta(t, 0, w.Start, 1e-12)
		assert.InDelta(t, 5, w.End, 1e-12)
	}

	// 3 KB in 5 ms
	assert.InDelta(t, 3*1024*8/5000.0, c.Throughput(), 1e-9)
	avg, max := c.LatencyStats()
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 5.0, max)

	for _, a := range sc.Allocations() {
		assert.InDelta(t, a.WidthMHz*8*(5.0/6.0), a.RateMbps, 1e-9)
		assert.True(t, a.Fits)
	}

	require.NoError(t, c.RunEpoch(context.Background()))
	w, _ := c.TransmittedPackets()[3].Window()
	assert.InDelta(t, 5, w.Start, 1e-12)
	assert.InDelta(t, 10, c.Stats().ElapsedMs, 1e-12)
}

func TestScheduledRejectsBadWidths(t *testing.T) {
	tests := map[string][]float64{
		"empty":    nil,
		"zero":     {0, 4},
		"too wide": {25},
		"overfull": {10, 10, 2},
	}

	for name, widths := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Scheduled.SubChannels = widths
			_, err := NewScheduledSubchannel(1, cfg, medium.New())
			assert.ErrorIs(t, err, ErrInvalidSubChannels)
		})
	}
}

func TestTransmittedPacketsIsACopy(t *testing.T) {
	c := newCoordinator(t, wlan.ScheduledSubchannel, testConfig(), 2)
	require.NoError(t, c.RunEpoch(context.Background()))

	log := c.TransmittedPackets()
	log[0] = wlan.Packet{}
	assert.Equal(t, 1024, c.TransmittedPackets()[0].Size())
}

func TestWorkerLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 2
	for _, d := range wlan.Disciplines {
		c := newCoordinator(t, d, cfg, 8)
		require.NoError(t, c.RunEpoch(context.Background()), d.String())
		assert.Positive(t, c.Throughput())
	}
}
