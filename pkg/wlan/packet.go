package wlan

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Packet errors
var (
	ErrWindowAlreadySet = errors.New("transmission window already set")
	ErrInvalidWindow    = errors.New("transmission window ends before it starts")
)

// Window is the modeled transmission interval of a packet, in ms
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// Packet is a single transmission unit. Only the window can change, and only once.
type Packet struct {
	size          int
	sourceID      int
	destinationID int
	window        *Window
}

// NewPacket creates a packet of size bytes
func NewPacket(size, sourceID, destinationID int) (Packet, error) {
	if size <= 0 {
		return Packet{}, fmt.Errorf("%w: %d", ErrInvalidPacketSize, size)
	}
	return Packet{
		size:          size,
		sourceID:      sourceID,
		destinationID: destinationID,
	}, nil
}

// Size returns the packet size in bytes
func (p Packet) Size() int { return p.size }

// Bits returns the packet size in bits
func (p Packet) Bits() int { return p.size * 8 }

// SourceID returns the sender id
func (p Packet) SourceID() int { return p.sourceID }

// DestinationID returns the receiver id
func (p Packet) DestinationID() int { return p.destinationID }

// Window returns the transmission window and whether it was set
func (p Packet) Window() (Window, bool) {
	if p.window == nil {
		return Window{}, false
	}
	return *p.window, true
}

// Scheduled reports whether the window has been stamped
func (p Packet) Scheduled() bool {
	return p.window != nil
}

// Latency returns end - start, or 0 for an unscheduled packet
func (p Packet) Latency() float64 {
	if p.window == nil {
		return 0
	}
	return p.window.Duration()
}

// SetWindow stamps the transmission window
func (p *Packet) SetWindow(start, end float64) error {
	if p.window != nil {
		return ErrWindowAlreadySet
	}
	if end < start {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidWindow, start, end)
	}
	p.window = &Window{Start: start, End: end}
	return nil
}

type packetJSON struct {
	Size          int     `json:"size"`
	SourceID      int     `json:"sourceId"`
	DestinationID int     `json:"destinationId"`
	Window        *Window `json:"window,omitempty"`
	Latency       float64 `json:"latency"`
}

// MarshalJSON implements json.Marshaler
func (p Packet) MarshalJSON() ([]byte, error) {
	return json.Marshal(packetJSON{
		Size:          p.size,
		SourceID:      p.sourceID,
		DestinationID: p.destinationID,
		Window:        p.window,
		Latency:       p.Latency(),
	})
}
