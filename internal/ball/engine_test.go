package ball

import (
	"context"
	"testing"

	"github.com/swarmguard/hyperball/internal/graph"
)

func TestCompleteGraphAvgConverges(t *testing.T) {
	g := graph.NewComplete(40)
	e, err := New(10, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	avg, err := e.Distribution().Avg()
	if err != nil {
		t.Fatalf("unexpected avg error: %v", err)
	}
	if avg < 0.8 || avg > 1.2 {
		t.Fatalf("expected avg close to 1.0 for a complete graph, got %v", avg)
	}
}

func TestTwoNodeEdgeConverges(t *testing.T) {
	b := graph.NewBuilder()
	b.AddEdge(1, 2)
	e, err := New(8, b.Build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	avg, err := e.Distribution().Avg()
	if err != nil {
		t.Fatalf("unexpected avg error: %v", err)
	}
	if avg < 0.7 || avg > 1.3 {
		t.Fatalf("expected avg close to 1.0 for a single edge, got %v", avg)
	}
}

func TestIsolatedNodeEmptyDistribution(t *testing.T) {
	b := graph.NewBuilder()
	b.AddNode(1)
	e, err := New(8, b.Build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if e.Distribution().Count() != 0 {
		t.Fatalf("expected zero accumulated weight for an isolated node, got %v", e.Distribution().Count())
	}
}

func TestRunIsIdempotent(t *testing.T) {
	g := graph.NewErdosRenyi(80, 0.2, 99)
	e, err := New(9, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	before := e.Distribution().Count()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	after := e.Distribution().Count()
	if before != after {
		t.Fatalf("expected a second Run to be a no-op, got count %v before, %v after", before, after)
	}
}

func TestSequentialMatchesParallel(t *testing.T) {
	g := graph.NewErdosRenyi(120, 0.15, 777)
	ctx := context.Background()

	seq, err := New(10, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := seq.Run(ctx); err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}

	par, err := New(10, g, WithWorkers(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := par.RunParallel(ctx); err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	seqAvg, _ := seq.Distribution().Avg()
	parAvg, _ := par.Distribution().Avg()
	if seqAvg != parAvg {
		t.Fatalf("expected identical sequential and parallel averages, got %v vs %v", seqAvg, parAvg)
	}
}

func TestErdosRenyiAvgPlausible(t *testing.T) {
	g := graph.NewErdosRenyi(300, 0.05, 2024)
	e, err := New(12, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	avg, err := e.Distribution().Avg()
	if err != nil {
		t.Fatalf("unexpected avg error: %v", err)
	}
	if avg < 1.5 || avg > 4.5 {
		t.Fatalf("expected a plausible average distance for a sparse random graph, got %v", avg)
	}
}

func TestBarabasiAlbertAvgPlausible(t *testing.T) {
	g := graph.NewBarabasiAlbert(400, 5, 11)
	e, err := New(12, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	avg, err := e.Distribution().Avg()
	if err != nil {
		t.Fatalf("unexpected avg error: %v", err)
	}
	if avg < 1.0 || avg > 6.0 {
		t.Fatalf("expected a plausible average distance for a scale-free graph, got %v", avg)
	}
}

func TestNewRejectsOutOfRangePrecision(t *testing.T) {
	g := graph.NewComplete(5)
	if _, err := New(2, g); err == nil {
		t.Fatalf("expected an error for precision below the supported range")
	}
}
