package station

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// Station errors
var (
	ErrStationAttached = errors.New("station already attached to a coordinator")
)

// Station is a medium user. The set of implementations is closed:
// *ContentionStation, *CoordinatedStation and *ScheduledStation.
type Station interface {
	ID() int
	Discipline() wlan.Discipline
	// CreatePacket builds the next data packet addressed to a random destination
	CreatePacket() wlan.Packet
	// CanTransmit reports eligibility for the current epoch
	CanTransmit() bool
	// Attach binds the station to a coordinator; a station has exactly one owner
	Attach(coordinatorID int) error
	Owner() (int, bool)

	sealed()
}

// Options configures a station
type Options struct {
	PacketSize int
	// DestinationRange bounds random destination ids to [0, DestinationRange)
	DestinationRange int
	// Seed makes destination and backoff draws reproducible; 0 means random
	Seed uint64
	// MaxBackoff caps contention backoff draws, in slots (contention stations only)
	MaxBackoff int
}

type base struct {
	id         int
	packetSize int
	destRange  int

	rngMu sync.Mutex
	rng   *rand.Rand

	ownerMu  sync.Mutex
	owner    int
	attached bool
}

func (b *base) setup(id int, opts Options) error {
	if opts.PacketSize <= 0 {
		return fmt.Errorf("station %d: %w: %d", id, wlan.ErrInvalidPacketSize, opts.PacketSize)
	}
	if opts.DestinationRange <= 0 {
		opts.DestinationRange = 100
	}

	var src rand.Source
	if opts.Seed == 0 {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	} else {
		src = rand.NewPCG(opts.Seed, uint64(id))
	}

	b.id = id
	b.packetSize = opts.PacketSize
	b.destRange = opts.DestinationRange
	b.rng = rand.New(src)
	return nil
}

// ID returns the station id
func (b *base) ID() int { return b.id }

// PacketSize returns the data packet size in bytes
func (b *base) PacketSize() int { return b.packetSize }

// CreatePacket builds a data packet from this station to a random destination
func (b *base) CreatePacket() wlan.Packet {
	// size was validated at construction
	pkt, _ := wlan.NewPacket(b.packetSize, b.id, b.intN(b.destRange))
	return pkt
}

// Attach binds the station to a coordinator
func (b *base) Attach(coordinatorID int) error {
	b.ownerMu.Lock()
	defer b.ownerMu.Unlock()

	if b.attached {
		return fmt.Errorf("%w: station %d owned by coordinator %d", ErrStationAttached, b.id, b.owner)
	}
	b.owner = coordinatorID
	b.attached = true
	return nil
}

// Owner returns the owning coordinator id
func (b *base) Owner() (int, bool) {
	b.ownerMu.Lock()
	defer b.ownerMu.Unlock()
	return b.owner, b.attached
}

func (b *base) intN(n int) int {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return b.rng.IntN(n)
}

func (b *base) sealed() {}

// New creates a station for the given discipline
func New(d wlan.Discipline, id int, opts Options) (Station, error) {
	switch d {
	case wlan.Contention:
		return NewContention(id, opts)
	case wlan.CoordinatedParallel:
		return NewCoordinated(id, opts)
	case wlan.ScheduledSubchannel:
		return NewScheduled(id, opts)
	default:
		return nil, fmt.Errorf("new station %d: unknown discipline %v", id, d)
	}
}
