// Package bench provides benchmarking primitives for the tabpredict bench command.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// RunResult holds the timing and prediction for a single inference run.
type RunResult struct {
	Index      int
	Cold       bool // true for the first run (cold-start)
	Duration   time.Duration
	Prediction float32
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// The slice must be non-empty.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// CheckDeterministic returns an error if runs do not all carry the same
// prediction. A model given a fixed input must produce a fixed output.
func CheckDeterministic(runs []RunResult) error {
	if len(runs) < 2 {
		return nil
	}
	first := runs[0].Prediction
	for _, r := range runs[1:] {
		if r.Prediction != first {
			return fmt.Errorf("run %d predicted %v, run 1 predicted %v", r.Index+1, r.Prediction, first)
		}
	}
	return nil
}

// CheckLatencyThreshold returns an error if meanLatency exceeds threshold.
// A threshold of 0 disables the gate.
func CheckLatencyThreshold(meanLatency, threshold time.Duration) error {
	if threshold <= 0 {
		return nil
	}
	if meanLatency > threshold {
		return fmt.Errorf("mean latency %s exceeds threshold %s", meanLatency, threshold)
	}
	return nil
}

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %12s\n", "Run", "Cold", "MS", "Prediction")
	fmt.Fprintln(sb, strings.Repeat("-", 40))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %12g\n",
			r.Index+1,
			cold,
			float64(r.Duration.Milliseconds()),
			r.Prediction,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 40))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  %12s  (min)\n", "", "", float64(stats.Min.Milliseconds()), "")
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  %12s  (mean)\n", "", "", float64(stats.Mean.Milliseconds()), "")
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  %12s  (max)\n", "", "", float64(stats.Max.Milliseconds()), "")

	fmt.Fprint(w, sb.String())
}

type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index      int     `json:"index"`
	Cold       bool    `json:"cold"`
	DurationMS float64 `json:"duration_ms"`
	Prediction float32 `json:"prediction"`
}

type jsonStats struct {
	MinMS  float64 `json:"min_ms"`
	MeanMS float64 `json:"mean_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:  float64(stats.Min.Milliseconds()),
			MeanMS: float64(stats.Mean.Milliseconds()),
			MaxMS:  float64(stats.Max.Milliseconds()),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			DurationMS: float64(r.Duration.Milliseconds()),
			Prediction: r.Prediction,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
