package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/wlan-sim/wlan-sim-pro/internal/analyzer"
	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/models"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// WriteTable writes one row per user count with throughput and latency for every discipline
func WriteTable(w io.Writer, results []models.ScenarioResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"Users"}
	units := []string{""}
	for _, d := range wlan.Disciplines {
		name := shortName(d)
		header = append(header, name+" Tput", name+" AvgLat", name+" MaxLat")
		units = append(units, "(Mbps)", "(ms)", "(ms)")
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	fmt.Fprintln(tw, strings.Join(units, "\t"))

	for _, r := range results {
		row := []string{fmt.Sprint(r.Users)}
		for _, d := range wlan.Disciplines {
			dr, _ := r.Result(d)
			row = append(row,
				fmt.Sprintf("%.2f", dr.ThroughputMbps),
				fmt.Sprintf("%.3f", dr.AvgLatencyMs),
				fmt.Sprintf("%.3f", dr.MaxLatencyMs))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}

// Best returns the discipline with the highest throughput. Ties go to the earlier discipline.
func Best(r models.ScenarioResult) (models.DisciplineResult, bool) {
	var best models.DisciplineResult
	found := false
	for _, dr := range r.Disciplines {
		if !found || dr.ThroughputMbps > best.ThroughputMbps {
			best = dr
			found = true
		}
	}
	return best, found
}

// Improvement returns the throughput gain of d over the contention baseline in percent.
// ok is false when there is no positive baseline or d does not beat it.
func Improvement(r models.ScenarioResult, d wlan.Discipline) (float64, bool) {
	base, ok := r.Result(wlan.Contention)
	if !ok || base.ThroughputMbps <= 0 {
		return 0, false
	}
	dr, ok := r.Result(d)
	if !ok || dr.ThroughputMbps <= base.ThroughputMbps {
		return 0, false
	}
	return (dr.ThroughputMbps - base.ThroughputMbps) / base.ThroughputMbps * 100, true
}

// WriteAnalysis compares every discipline against contention for each user count
func WriteAnalysis(w io.Writer, results []models.ScenarioResult) {
	for _, r := range results {
		plural := "s"
		if r.Users == 1 {
			plural = ""
		}
		fmt.Fprintf(w, "\n--- %d User%s ---\n", r.Users, plural)

		fmt.Fprintln(w, "Throughput Comparison:")
		for _, dr := range r.Disciplines {
			fmt.Fprintf(w, "  %-18s %.2f Mbps", dr.Discipline.Label()+":", dr.ThroughputMbps)
			if pct, ok := Improvement(r, dr.Discipline); ok {
				fmt.Fprintf(w, " (+%.1f%% improvement)", pct)
			}
			fmt.Fprintln(w)
		}

		fmt.Fprintln(w, "\nAverage Latency Comparison:")
		for _, dr := range r.Disciplines {
			fmt.Fprintf(w, "  %s: %.3f ms\n", shortLabel(dr.Discipline), dr.AvgLatencyMs)
		}

		if best, ok := Best(r); ok {
			fmt.Fprintf(w, "\nBest Throughput: %s with %.2f Mbps\n", shortLabel(best.Discipline), best.ThroughputMbps)
		}
	}
}

// WriteParameters writes the simulation parameters block
func WriteParameters(w io.Writer, cfg *config.SimulationConfig) {
	fmt.Fprintln(w, "Simulation Parameters:")
	fmt.Fprintf(w, "  Bandwidth: %v MHz\n", cfg.BandwidthMHz)
	fmt.Fprintf(w, "  Modulation: %d bits/symbol\n", cfg.ModulationBits)
	fmt.Fprintf(w, "  Coding Rate: %s\n", cfg.CodingRate)
	fmt.Fprintf(w, "  Packet Size: %d bytes\n", cfg.Contention.PacketSize)
	fmt.Fprintf(w, "  WiFi 5 CSI Packet Size: %d bytes\n", cfg.Coordinated.SoundingPacketSize)
	fmt.Fprintf(w, "  WiFi 5 Parallel Window: %v ms\n", cfg.Coordinated.ParallelWindow)
	fmt.Fprintf(w, "  WiFi 6 Sub-channels: %v MHz\n", cfg.Scheduled.SubChannels)
	fmt.Fprintf(w, "  WiFi 6 Allocation Window: %v ms\n", cfg.Scheduled.AllocationWindow)
	fmt.Fprintf(w, "  Iterations: %d x %d epochs\n", cfg.Iterations, cfg.Epochs)
}

// WriteBitReport writes the aggregate and per-packet bit distribution
func WriteBitReport(w io.Writer, title string, r analyzer.Report, maxPackets int) error {
	fmt.Fprintf(w, "\n%s: %d packets, %d ones, %d zeros, P(1)=%.4f\n",
		title, len(r.Packets), r.Total.Ones, r.Total.Zeros, r.Total.OneProbability)

	if maxPackets <= 0 || len(r.Packets) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Source\tDestination\tOnes\tZeros\tP(1)")
	for i, c := range r.Packets {
		if i == maxPackets {
			break
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.4f\n", c.SourceID, c.DestinationID, c.Ones, c.Zeros, c.OneProbability)
	}
	return tw.Flush()
}

func shortLabel(d wlan.Discipline) string {
	label := d.Label()
	if i := strings.Index(label, " ("); i > 0 {
		return label[:i]
	}
	return label
}

func shortName(d wlan.Discipline) string {
	return strings.ReplaceAll(shortLabel(d), " ", "")
}
