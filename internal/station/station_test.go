package station

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

func TestNewRejectsInvalidPacketSize(t *testing.T) {
	for _, d := range wlan.Disciplines {
		_, err := New(d, 1, Options{PacketSize: 0})
		assert.ErrorIs(t, err, wlan.ErrInvalidPacketSize, d.String())
	}

	_, err := New(wlan.Discipline(99), 1, Options{PacketSize: 10})
	assert.Error(t, err)
}

func TestNewBuildsMatchingVariant(t *testing.T) {
	for _, d := range wlan.Disciplines {
		st, err := New(d, 7, Options{PacketSize: 512})
		require.NoError(t, err)
		assert.Equal(t, d, st.Discipline())
		assert.Equal(t, 7, st.ID())
	}
}

func TestCreatePacketUsesStationSizing(t *testing.T) {
	st, err := NewScheduled(3, Options{PacketSize: 1024, DestinationRange: 5, Seed: 9})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		pkt := st.CreatePacket()
		assert.Equal(t, 1024, pkt.Size())
		assert.Equal(t, 3, pkt.SourceID())
		assert.GreaterOrEqual(t, pkt.DestinationID(), 0)
		assert.Less(t, pkt.DestinationID(), 5)
		assert.False(t, pkt.Scheduled())
	}
}

func TestSeededStationsAreReproducible(t *testing.T) {
	a, err := NewContention(4, Options{PacketSize: 100, Seed: 1234})
	require.NoError(t, err)
	b, err := NewContention(4, Options{PacketSize: 100, Seed: 1234})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.CreatePacket().DestinationID(), b.CreatePacket().DestinationID())
		assert.Equal(t, a.DrawBackoff(), b.DrawBackoff())
	}
}

func TestAttachEnforcesSingleOwner(t *testing.T) {
	st, err := NewCoordinated(1, Options{PacketSize: 200})
	require.NoError(t, err)

	_, ok := st.Owner()
	assert.False(t, ok)

	require.NoError(t, st.Attach(10))
	assert.ErrorIs(t, st.Attach(11), ErrStationAttached)

	owner, ok := st.Owner()
	assert.True(t, ok)
	assert.Equal(t, 10, owner)
}

func TestConcurrentAttachHasOneWinner(t *testing.T) {
	st, err := NewScheduled(1, Options{PacketSize: 200})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if st.Attach(id) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestBackoffStaysWithinBounds(t *testing.T) {
	st, err := NewContention(2, Options{PacketSize: 1024, MaxBackoff: 10, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Backoff())

	for i := 1; i <= 40; i++ {
		slots := st.DrawBackoff()
		upper := ContentionWindow(i, 10)
		assert.GreaterOrEqual(t, slots, 1)
		assert.LessOrEqual(t, slots, upper)
		assert.LessOrEqual(t, st.Backoff(), st.MaxBackoff())
		assert.Equal(t, i, st.Attempts())
	}

	st.ResetBackoff()
	assert.Equal(t, 0, st.Backoff())
	assert.Equal(t, 0, st.Attempts())
}

func TestContentionWindow(t *testing.T) {
	assert.Equal(t, 1, ContentionWindow(0, 10))
	assert.Equal(t, 1, ContentionWindow(1, 10))
	assert.Equal(t, 3, ContentionWindow(2, 10))
	assert.Equal(t, 7, ContentionWindow(3, 10))
	assert.Equal(t, 10, ContentionWindow(4, 10))
	assert.Equal(t, 1023, ContentionWindow(50, 5000))
}

func TestNewContentionRejectsNegativeMaxBackoff(t *testing.T) {
	_, err := NewContention(1, Options{PacketSize: 10, MaxBackoff: -1})
	assert.Error(t, err)

	st, err := NewContention(1, Options{PacketSize: 10})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxBackoff, st.MaxBackoff())
}

func TestCoordinatedEligibilityFollowsGrant(t *testing.T) {
	st, err := NewCoordinated(1, Options{PacketSize: 200})
	require.NoError(t, err)
	assert.False(t, st.CanTransmit())

	st.SetChannelState(true)
	assert.True(t, st.CanTransmit())
	assert.True(t, st.ChannelStateGranted())

	st.SetChannelState(false)
	assert.False(t, st.CanTransmit())
}

func TestScheduledAlwaysEligible(t *testing.T) {
	st, err := NewScheduled(1, Options{PacketSize: 200})
	require.NoError(t, err)
	assert.True(t, st.CanTransmit())
}
