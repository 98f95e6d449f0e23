package analyzer

import (
	"fmt"
	"math/bits"

	"github.com/wlan-sim/wlan-sim-pro/pkg/crypto"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// PayloadSource produces n payload bytes
type PayloadSource func(n int) ([]byte, error)

// BitCount is the bit distribution of one payload
type BitCount struct {
	SourceID       int     `json:"sourceId"`
	DestinationID  int     `json:"destinationId"`
	Ones           int     `json:"ones"`
	Zeros          int     `json:"zeros"`
	OneProbability float64 `json:"oneProbability"`
}

// Report is the per-packet and aggregate bit distribution of a log
type Report struct {
	Packets []BitCount `json:"packets"`
	Total   BitCount   `json:"total"`
}

// Analyzer synthesizes packet payloads and reports their bit distribution.
// It reads the transmitted log and never modifies it.
type Analyzer struct {
	source PayloadSource
}

// New creates an analyzer drawing payloads from crypto/rand
func New() *Analyzer {
	return &Analyzer{source: crypto.GenerateRandomBytes}
}

// NewWithSource creates an analyzer with a custom payload source
func NewWithSource(source PayloadSource) *Analyzer {
	return &Analyzer{source: source}
}

// Analyze builds a report for packets
func (a *Analyzer) Analyze(packets []wlan.Packet) (Report, error) {
	report := Report{Packets: make([]BitCount, 0, len(packets))}

	for _, p := range packets {
		payload, err := a.source(p.Size())
		if err != nil {
			return Report{}, fmt.Errorf("payload for packet from %d: %w", p.SourceID(), err)
		}

		c := CountBits(payload)
		c.SourceID = p.SourceID()
		c.DestinationID = p.DestinationID()
		report.Packets = append(report.Packets, c)

		report.Total.Ones += c.Ones
		report.Total.Zeros += c.Zeros
	}

	report.Total.OneProbability = probability(report.Total.Ones, report.Total.Zeros)
	return report, nil
}

// CountBits counts set and clear bits in payload
func CountBits(payload []byte) BitCount {
	ones := 0
	for _, b := range payload {
		ones += bits.OnesCount8(b)
	}
	zeros := len(payload)*8 - ones

	return BitCount{
		Ones:           ones,
		Zeros:          zeros,
		OneProbability: probability(ones, zeros),
	}
}

func probability(ones, zeros int) float64 {
	if ones+zeros == 0 {
		return 0
	}
	return float64(ones) / float64(ones+zeros)
}
