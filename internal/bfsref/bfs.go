// Package bfsref computes the ground-truth distance distribution of a graph
// via per-source breadth-first search, used only to validate a cardinality
// estimator's output — never part of the estimation core itself.
package bfsref

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/swarmguard/hyperball/internal/freqdist"
	"github.com/swarmguard/hyperball/internal/graph"
)

// SingleSource runs a plain BFS from s over g, returning a distribution of
// distances (including distance 0 for s itself) to every node reachable
// from s.
func SingleSource(g graph.Adapter, s graph.NodeID) *freqdist.Dist {
	d := freqdist.New(32)
	visited := map[graph.NodeID]bool{s: true}
	type item struct {
		v graph.NodeID
		d int
	}
	queue := []item{{s, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d.AddOne(cur.d)
		for _, w := range g.Neighbors(cur.v) {
			if !visited[w] {
				visited[w] = true
				queue = append(queue, item{w, cur.d + 1})
			}
		}
	}
	return d
}

// Distribution computes the distance distribution of g over ordered pairs
// minus self-pairs: BFS from every node, merged, distance-0 mass cleared,
// then halved to correct for each unordered pair being discovered from both
// endpoints. Sequential; see DistributionParallel for a concurrent version.
func Distribution(g graph.Adapter) *freqdist.Dist {
	ctx := context.Background()
	ctx, end := startSpan(ctx, "bfsref.Distribution")
	defer end()
	t0 := time.Now()
	defer recordDuration(ctx, t0)

	acc := freqdist.New(32)
	for _, v := range g.Nodes() {
		acc.MergeInPlace(SingleSource(g, v))
	}
	acc.ClearZero()
	acc.Half()
	return acc
}

// DistributionParallel is functionally identical to Distribution but spreads
// the per-source BFS across a bounded worker pool instead of running each
// source sequentially.
func DistributionParallel(g graph.Adapter, workers int) *freqdist.Dist {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx := context.Background()
	ctx, end := startSpan(ctx, "bfsref.DistributionParallel")
	defer end()
	t0 := time.Now()
	defer recordDuration(ctx, t0)

	nodes := g.Nodes()
	jobs := make(chan graph.NodeID, len(nodes))
	results := make(chan *freqdist.Dist, len(nodes))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range jobs {
				results <- SingleSource(g, v)
			}
		}()
	}
	for _, v := range nodes {
		jobs <- v
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	acc := freqdist.New(32)
	for d := range results {
		acc.MergeInPlace(d)
	}
	acc.ClearZero()
	acc.Half()
	return acc
}

func startSpan(ctx context.Context, name string) (context.Context, func()) {
	tr := otel.Tracer("hyperball-go")
	ctx, span := tr.Start(ctx, name)
	return ctx, func() { span.End() }
}

func recordDuration(ctx context.Context, since time.Time) {
	meter := otel.Meter("hyperball-go")
	hist, _ := meter.Float64Histogram("bfs_reference_duration_seconds")
	hist.Record(ctx, time.Since(since).Seconds())
}
