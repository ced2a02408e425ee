package bfsref

import (
	"testing"

	"github.com/swarmguard/hyperball/internal/graph"
)

func TestCompleteGraphAvgIsOne(t *testing.T) {
	g := graph.NewComplete(50)
	d := Distribution(g)
	avg, err := d.Avg()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg != 1.0 {
		t.Fatalf("expected avg exactly 1.0 for complete graph, got %v", avg)
	}
}

func TestTwoNodeEdgeAvgIsOne(t *testing.T) {
	b := graph.NewBuilder()
	b.AddEdge(1, 2)
	g := b.Build()
	d := Distribution(g)
	avg, err := d.Avg()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg != 1.0 {
		t.Fatalf("expected avg 1.0 for a single edge, got %v", avg)
	}
}

func TestErdosRenyiAvgInRange(t *testing.T) {
	g := graph.NewErdosRenyi(100, 0.32, 4209)
	d := Distribution(g)
	avg, err := d.Avg()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg < 2.5 || avg > 3.5 {
		t.Fatalf("expected avg in [2.5,3.5], got %v", avg)
	}
}

func TestIsolatedNodeEmptyDistribution(t *testing.T) {
	b := graph.NewBuilder()
	b.AddNode(1)
	g := b.Build()
	d := Distribution(g)
	if d.Count() != 0 {
		t.Fatalf("expected zero total weight for a single isolated node, got %v", d.Count())
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	g := graph.NewErdosRenyi(150, 0.1, 42)
	seq := Distribution(g)
	par := DistributionParallel(g, 4)
	seqAvg, _ := seq.Avg()
	parAvg, _ := par.Avg()
	if seqAvg != parAvg {
		t.Fatalf("expected sequential and parallel BFS averages to match exactly, got %v vs %v", seqAvg, parAvg)
	}
}
