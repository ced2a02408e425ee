// Package ball implements the HyperBall iteration engine: a
// breadth-synchronous fixed-point computation that, per node v and radius t,
// maintains a sketch approximating v's ball B(v,t) and accumulates the
// per-radius increments into a distance distribution.
//
// Parallel mode fans iterations out across a bounded worker pool joined by
// a single coordinator barrier per iteration, rather than relying on
// OS-process-level parallelism.
package ball

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/swarmguard/hyperball/internal/freqdist"
	"github.com/swarmguard/hyperball/internal/graph"
	"github.com/swarmguard/hyperball/internal/hllsketch"
)

// DiskEntry is the per-node record staging an iteration's output: the
// previous iteration's sketch, its cardinality estimate, and whether the
// register vector changed when it was produced.
type DiskEntry struct {
	A       *hllsketch.Sketch
	Ea      float64
	Changed bool
}

// Engine is the HyperBall iteration engine over a frozen graph.Adapter.
type Engine struct {
	b    uint8
	hash hllsketch.Hash64
	g    graph.Adapter

	index       *graph.Index
	neighborIdx [][]int

	c    []*hllsketch.Sketch
	disk []DiskEntry

	dist      *freqdist.Dist
	t         int
	converged bool

	workers int // 0 = sequential

	metrics *engineMetrics
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithHash overrides the HLL hash function (default: hllsketch.SHA1Hash64).
func WithHash(h hllsketch.Hash64) Option {
	return func(e *Engine) { e.hash = h }
}

// WithWorkers selects parallel mode with the given worker-pool size. A size
// <= 0 defaults to runtime.NumCPU(). Not calling WithWorkers keeps the
// engine sequential.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		e.workers = n
	}
}

// New constructs a HyperBall engine over g with precision b (register count
// 2^b), requiring 4 <= b <= 16, and immediately initialises it: every node
// is assigned a stable dense index and seeded with its own encoded
// identifier. Initialisation failures (out-of-range precision, or an
// adapter that cannot encode a node) are returned here, never during Run.
func New(b uint8, g graph.Adapter, opts ...Option) (*Engine, error) {
	if b < 4 || b > 16 {
		return nil, fmt.Errorf("ball: %w: got %d", hllsketch.ErrPrecisionOutOfRange, b)
	}
	e := &Engine{b: b, g: g, hash: hllsketch.SHA1Hash64, dist: freqdist.New(20)}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.initialize(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) initialize() error {
	e.index = graph.BuildIndex(e.g)
	n := e.index.N()
	e.c = make([]*hllsketch.Sketch, n)
	e.disk = make([]DiskEntry, n)
	e.neighborIdx = make([][]int, n)

	for i, v := range e.index.Order {
		s, err := hllsketch.New(e.b, e.hash)
		if err != nil {
			return fmt.Errorf("ball: constructing sketch for node %d: %w", v, err)
		}
		enc, err := e.g.Encode(v)
		if err != nil {
			return fmt.Errorf("ball: encoding node %d: %w", v, graph.ErrEncodingUnavailable)
		}
		s.Add(enc)
		e.c[i] = s
		// Seed the disk baseline with the singleton ball's own estimate
		// rather than 0: a node that never grows (e.g. isolated) must
		// contribute a zero delta, not the spurious "discovery" of itself.
		e.disk[i] = DiskEntry{A: nil, Ea: s.Estimate(), Changed: true}
	}
	for i, v := range e.index.Order {
		neighbors := e.g.Neighbors(v)
		idxs := make([]int, 0, len(neighbors))
		for _, w := range neighbors {
			if wi, ok := e.index.IndexOf(w); ok {
				idxs = append(idxs, wi)
			}
		}
		e.neighborIdx[i] = idxs
	}
	e.t = 1
	return nil
}

// Distribution borrows the engine's frequency accumulator.
func (e *Engine) Distribution() *freqdist.Dist {
	return e.dist
}

// N returns the number of nodes captured at initialisation.
func (e *Engine) N() int { return len(e.c) }

// Iterations returns the number of iterations executed so far (1-based;
// incremented after each applied iteration).
func (e *Engine) Iterations() int { return e.t - 1 }

type nodeOutput struct {
	i     int
	entry DiskEntry
	delta float64
}

// processNode computes node i's contribution for the current iteration,
// reading only from the frozen e.c snapshot; disk and the accumulator are
// never touched here, only by the coordinator after the join.
func (e *Engine) processNode(i int) nodeOutput {
	prev := e.disk[i]
	if !prev.Changed {
		return nodeOutput{i: i, entry: prev, delta: 0}
	}
	a := e.c[i].Copy()
	changed := false
	for _, w := range e.neighborIdx[i] {
		ch, _ := a.UnionInPlace(e.c[w]) // same engine, same b: never mismatched
		changed = changed || ch
	}
	ea := a.Estimate()
	return nodeOutput{
		i:     i,
		entry: DiskEntry{A: a, Ea: ea, Changed: changed},
		delta: ea - prev.Ea,
	}
}

// Run executes the engine to a fixed point on the caller's goroutine. A
// second call on an already-converged engine performs zero iterations.
func (e *Engine) Run(ctx context.Context) error {
	if e.converged {
		return nil
	}
	for {
		t0 := time.Now()
		outputs := make([]nodeOutput, len(e.c))
		skipped := 0
		for i := range e.c {
			if !e.disk[i].Changed {
				skipped++
			}
			outputs[i] = e.processNode(i)
		}
		anyChanged := e.applyIteration(ctx, outputs, skipped, t0)
		if !anyChanged {
			e.converged = true
			return nil
		}
	}
}

// RunParallel executes the engine to a fixed point, processing each
// iteration's nodes across a bounded worker pool. The end-of-iteration join
// is the only synchronisation barrier: disk/accumulator updates and the
// C<-disk.A swap happen only after every worker has returned.
func (e *Engine) RunParallel(ctx context.Context) error {
	if e.converged {
		return nil
	}
	workers := e.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	activeGauge := e.metricsOrInit().activeWorkers

	for {
		t0 := time.Now()
		n := len(e.c)
		jobs := make(chan int, n)
		results := make(chan nodeOutput, n)

		skipped := 0
		for i := range e.c {
			if !e.disk[i].Changed {
				skipped++
			}
		}

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if activeGauge != nil {
					activeGauge.Record(ctx, 1)
					defer activeGauge.Record(ctx, -1)
				}
				for i := range jobs {
					results <- e.processNode(i)
				}
			}()
		}
		for i := 0; i < n; i++ {
			jobs <- i
		}
		close(jobs)

		go func() {
			wg.Wait()
			close(results)
		}()

		outputs := make([]nodeOutput, n)
		for out := range results {
			outputs[out.i] = out
		}

		anyChanged := e.applyIteration(ctx, outputs, skipped, t0)
		if !anyChanged {
			e.converged = true
			return nil
		}
	}
}

// applyIteration installs this iteration's outputs (the only place disk and
// the accumulator are mutated), swaps C <- disk.A, and reports whether any
// node changed.
func (e *Engine) applyIteration(ctx context.Context, outputs []nodeOutput, skipped int, started time.Time) bool {
	anyChanged := false
	m := e.metricsOrInit()
	for _, out := range outputs {
		e.disk[out.i] = out.entry
		e.dist.Add(e.t, out.delta)
		anyChanged = anyChanged || out.entry.Changed
		m.estimateHist.Record(ctx, out.entry.Ea)
	}
	for i := range e.c {
		e.c[i] = e.disk[i].A
	}
	e.recordIteration(ctx, skipped, started)
	e.t++
	return anyChanged
}

type engineMetrics struct {
	iterations    metric.Int64Counter
	processed     metric.Int64Counter
	skipped       metric.Int64Counter
	duration      metric.Float64Histogram
	estimateHist  metric.Float64Histogram
	activeWorkers metric.Int64UpDownCounter
}

func (e *Engine) metricsOrInit() *engineMetrics {
	if e.metrics != nil {
		return e.metrics
	}
	meter := otel.Meter("hyperball-go")
	iterations, _ := meter.Int64Counter("hyperball_iterations_total")
	processed, _ := meter.Int64Counter("hyperball_nodes_processed_total")
	skipped, _ := meter.Int64Counter("hyperball_nodes_skipped_total")
	duration, _ := meter.Float64Histogram("hyperball_iteration_duration_seconds")
	estimateHist, _ := meter.Float64Histogram("hyperball_sketch_estimate")
	activeWorkers, _ := meter.Int64UpDownCounter("hyperball_active_workers")
	e.metrics = &engineMetrics{
		iterations:    iterations,
		processed:     processed,
		skipped:       skipped,
		duration:      duration,
		estimateHist:  estimateHist,
		activeWorkers: activeWorkers,
	}
	return e.metrics
}

func (e *Engine) recordIteration(ctx context.Context, skipped int, started time.Time) {
	m := e.metricsOrInit()
	m.iterations.Add(ctx, 1)
	m.processed.Add(ctx, int64(len(e.c)-skipped))
	m.skipped.Add(ctx, int64(skipped))
	m.duration.Record(ctx, time.Since(started).Seconds())
}
