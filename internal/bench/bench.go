// Package bench implements the time/memory profiling harness: it runs both
// the HyperBall engine and the reference BFS distribution over the same
// generated graph at increasing node counts, records their agreement, and
// persists the results for later comparison.
package bench

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/swarmguard/hyperball/internal/ball"
	"github.com/swarmguard/hyperball/internal/bfsref"
	"github.com/swarmguard/hyperball/internal/graph"
)

// ProfileType selects which resource is measured per frame.
type ProfileType string

const (
	ProfileTime   ProfileType = "time"
	ProfileMemory ProfileType = "mem"
)

// TimeFrame is the per-node-count result of a time profile: average wall
// time for each engine and their resulting accuracy agreement.
type TimeFrame struct {
	AvgHyperball float64 `json:"avg_hyperball"`
	AvgBFS       float64 `json:"avg_bfs"`
	Accuracy     float64 `json:"accuracy"`
}

// MemoryFrame is the per-node-count result of a memory profile: for each
// engine, the average heap growth measured by measureHeap (live heap after
// the run minus live heap before it), and their resulting accuracy
// agreement. The heap is not sampled during the run, so a transient peak
// that is freed before the run ends is not captured.
type MemoryFrame struct {
	AvgPeakHyperball uint64  `json:"avg_peak_hyperball"`
	AvgPeakBFS       uint64  `json:"avg_peak_bfs"`
	Accuracy         float64 `json:"accuracy"`
}

// Result is a complete benchmark run: the profile type, the random seed
// used to generate every frame's graph, and one frame per node count
// (keyed by its decimal string so the shape matches the on-disk JSON
// persisted by Store.Put).
type Result struct {
	RunID       string                 `json:"run_id"`
	ProfileType ProfileType            `json:"profile_type"`
	Seed        int64                  `json:"seed"`
	Frames      map[string]interface{} `json:"frames"`
	CompletedAt time.Time              `json:"completed_at"`
}

// Config controls a benchmark sweep: a range of node counts [Begin,End]
// stepped by Increment, each generated as a Barabasi-Albert graph with M
// edges per new node, repeated Iterations times and averaged.
type Config struct {
	ProfileType ProfileType `json:"profile_type"`
	Begin       int         `json:"begin"`
	End         int         `json:"end"`
	Increment   int         `json:"increment"`
	M           int         `json:"m"`
	Seed        int64       `json:"seed"`
	Iterations  int         `json:"iterations"`
	Bits        uint8       `json:"bits"`
	SkipBFS     bool        `json:"skip_bfs"`
}

// DefaultConfig produces a sweep from n=200 to n=2200 in steps of 400,
// preferential attachment with m=5, a single iteration, precision 8.
func DefaultConfig(seed int64) Config {
	return Config{
		ProfileType: ProfileTime,
		Begin:       200,
		End:         2200,
		Increment:   400,
		M:           5,
		Seed:        seed,
		Iterations:  1,
		Bits:        8,
	}
}

func accuracy(reference, estimate float64) float64 {
	if reference == 0 {
		return 100
	}
	diff := reference - estimate
	if diff < 0 {
		diff = -diff
	}
	return 100 - (diff/reference)*100.0
}

// Run executes a sweep described by cfg and returns its accumulated
// result, instrumenting each frame with OTel histograms.
func Run(ctx context.Context, cfg Config) Result {
	meter := otel.Meter("hyperball-go")
	frameDuration, _ := meter.Float64Histogram("hyperball_bench_frame_duration_seconds")
	accuracyHist, _ := meter.Float64Histogram("hyperball_bench_accuracy")

	res := Result{
		RunID:       uuid.NewString(),
		ProfileType: cfg.ProfileType,
		Seed:        cfg.Seed,
		Frames:      make(map[string]interface{}),
	}

	for n := cfg.Begin; n <= cfg.End; n += cfg.Increment {
		t0 := time.Now()
		g := graph.NewBarabasiAlbert(n, cfg.M, cfg.Seed)
		key := fmt.Sprintf("%d", n)
		var acc float64
		switch cfg.ProfileType {
		case ProfileMemory:
			frame := profileMemory(g, cfg)
			res.Frames[key] = frame
			acc = frame.Accuracy
		default:
			frame := profileTime(ctx, g, cfg)
			res.Frames[key] = frame
			acc = frame.Accuracy
		}
		frameDuration.Record(ctx, time.Since(t0).Seconds())
		accuracyHist.Record(ctx, acc)
	}
	res.CompletedAt = time.Now()
	return res
}

func profileTime(ctx context.Context, g graph.Adapter, cfg Config) TimeFrame {
	var sumHB, sumBFS float64

	t0 := time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		e, err := ball.New(cfg.Bits, g)
		if err != nil {
			continue
		}
		_ = e.Run(ctx)
		avg, _ := e.Distribution().Avg()
		sumHB += avg
	}
	hbElapsed := time.Since(t0).Seconds() / float64(cfg.Iterations)
	hbResult := sumHB / float64(cfg.Iterations)

	if cfg.SkipBFS {
		return TimeFrame{AvgHyperball: hbElapsed, AvgBFS: 0, Accuracy: 100}
	}

	t1 := time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		d := bfsref.Distribution(g)
		avg, _ := d.Avg()
		sumBFS += avg
	}
	bfsElapsed := time.Since(t1).Seconds() / float64(cfg.Iterations)
	bfsResult := sumBFS / float64(cfg.Iterations)

	return TimeFrame{
		AvgHyperball: hbElapsed,
		AvgBFS:       bfsElapsed,
		Accuracy:     accuracy(bfsResult, hbResult),
	}
}

func profileMemory(g graph.Adapter, cfg Config) MemoryFrame {
	var sumHB, sumBFS uint64
	var hbResult, bfsResult float64

	for i := 0; i < cfg.Iterations; i++ {
		peak, avg := measureHeap(func() float64 {
			e, err := ball.New(cfg.Bits, g)
			if err != nil {
				return 0
			}
			_ = e.Run(context.Background())
			avg, _ := e.Distribution().Avg()
			return avg
		})
		sumHB += peak
		hbResult += avg
	}
	hbResult /= float64(cfg.Iterations)

	if cfg.SkipBFS {
		return MemoryFrame{AvgPeakHyperball: sumHB / uint64(cfg.Iterations), AvgPeakBFS: 0, Accuracy: 100}
	}

	for i := 0; i < cfg.Iterations; i++ {
		peak, avg := measureHeap(func() float64 {
			d := bfsref.Distribution(g)
			avg, _ := d.Avg()
			return avg
		})
		sumBFS += peak
		bfsResult += avg
	}
	bfsResult /= float64(cfg.Iterations)

	return MemoryFrame{
		AvgPeakHyperball: sumHB / uint64(cfg.Iterations),
		AvgPeakBFS:       sumBFS / uint64(cfg.Iterations),
		Accuracy:         accuracy(bfsResult, hbResult),
	}
}

// measureHeap runs fn and reports the heap growth it caused via
// runtime.ReadMemStats deltas. Go exposes no per-call allocation tracer
// equivalent to tracemalloc; this is the closest approximation without
// external tooling.
func measureHeap(fn func() float64) (peakBytes uint64, result float64) {
	runtime.GC()
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	result = fn()
	runtime.ReadMemStats(&after)
	if after.HeapAlloc > before.HeapAlloc {
		peakBytes = after.HeapAlloc - before.HeapAlloc
	}
	return peakBytes, result
}

// HumanizeBytes renders byte counts the way an operator reads them in logs
// and API responses (e.g. "2.3 MB").
func HumanizeBytes(b uint64) string {
	return humanize.Bytes(b)
}
