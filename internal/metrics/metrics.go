package metrics

import "github.com/wlan-sim/wlan-sim-pro/pkg/wlan"

// Summary aggregates a transmitted log and its latency samples
type Summary struct {
	Packets        int     `json:"packets"`
	Bits           int64   `json:"bits"`
	ElapsedMs      float64 `json:"elapsedMs"`
	ThroughputMbps float64 `json:"throughputMbps"`
	AvgLatencyMs   float64 `json:"avgLatencyMs"`
	MaxLatencyMs   float64 `json:"maxLatencyMs"`
}

// TotalBits sums the size of every packet in bits
func TotalBits(packets []wlan.Packet) int64 {
	var bits int64
	for _, p := range packets {
		bits += int64(p.Bits())
	}
	return bits
}

// ThroughputMbps returns total bits / (elapsed ms * 1000).
// It is 0 when nothing was sent or no modeled time elapsed.
func ThroughputMbps(packets []wlan.Packet, totalElapsedMs float64) float64 {
	if totalElapsedMs <= 0 || len(packets) == 0 {
		return 0
	}
	return float64(TotalBits(packets)) / (totalElapsedMs * 1000)
}

// LatencyStats returns the mean and maximum of samples, or (0, 0) if empty
func LatencyStats(samples []float64) (avg, max float64) {
	if len(samples) == 0 {
		return 0, 0
	}

	var sum float64
	max = samples[0]
	for _, s := range samples {
		sum += s
		if s > max {
			max = s
		}
	}
	return sum / float64(len(samples)), max
}

// Summarize computes every statistic in one pass over the inputs
func Summarize(packets []wlan.Packet, samples []float64, totalElapsedMs float64) Summary {
	avg, max := LatencyStats(samples)
	return Summary{
		Packets:        len(packets),
		Bits:           TotalBits(packets),
		ElapsedMs:      totalElapsedMs,
		ThroughputMbps: ThroughputMbps(packets, totalElapsedMs),
		AvgLatencyMs:   avg,
		MaxLatencyMs:   max,
	}
}

// Mean averages a series, returning 0 for an empty one
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
