package graph

import (
	"strings"
	"testing"
)

func TestAdjacencyGraphBasics(t *testing.T) {
	b := NewBuilder()
	b.AddEdge(1, 2)
	b.AddEdge(2, 3)
	g := b.Build()
	if g.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.NodeCount())
	}
	ns := g.Neighbors(2)
	if len(ns) != 2 {
		t.Fatalf("expected node 2 to have 2 neighbours, got %v", ns)
	}
	b1, err := g.Encode(1)
	if err != nil || len(b1) != 8 {
		t.Fatalf("expected 8-byte encoding, got %v err=%v", b1, err)
	}
}

func TestIndexStability(t *testing.T) {
	b := NewBuilder()
	b.AddEdge(10, 20)
	b.AddEdge(20, 30)
	g := b.Build()
	ix := BuildIndex(g)
	if ix.N() != 3 {
		t.Fatalf("expected N=3, got %d", ix.N())
	}
	i10, ok := ix.IndexOf(10)
	if !ok || i10 != 0 {
		t.Fatalf("expected node 10 at index 0, got %d ok=%v", i10, ok)
	}
	if _, ok := ix.IndexOf(999); ok {
		t.Fatalf("expected unknown node to be absent")
	}
}

func TestNewComplete(t *testing.T) {
	g := NewComplete(10)
	if g.NodeCount() != 10 {
		t.Fatalf("expected 10 nodes, got %d", g.NodeCount())
	}
	for _, v := range g.Nodes() {
		if len(g.Neighbors(v)) != 9 {
			t.Fatalf("expected every node to have degree 9 in K10, got %d", len(g.Neighbors(v)))
		}
	}
}

func TestNewErdosRenyiDeterministic(t *testing.T) {
	g1 := NewErdosRenyi(100, 0.32, 4209)
	g2 := NewErdosRenyi(100, 0.32, 4209)
	if g1.NodeCount() != g2.NodeCount() {
		t.Fatalf("expected same node count across identical seeds")
	}
	for _, v := range g1.Nodes() {
		if len(g1.Neighbors(v)) != len(g2.Neighbors(v)) {
			t.Fatalf("expected identical degree sequence for identical seed")
		}
	}
}

func TestNewBarabasiAlbertNodeCountAndNoIsolatedNodes(t *testing.T) {
	g := NewBarabasiAlbert(200, 5, 1)
	if g.NodeCount() != 200 {
		t.Fatalf("expected 200 nodes, got %d", g.NodeCount())
	}
	for _, v := range g.Nodes() {
		if len(g.Neighbors(v)) == 0 {
			t.Fatalf("expected every node in a BA graph to have at least one edge")
		}
	}
}

func TestLoadEdgeList(t *testing.T) {
	r := strings.NewReader("# comment\n1 2\n2 3\n\n3 1\n")
	g, err := LoadEdgeList(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.NodeCount())
	}
}

func TestLoadEdgeListMalformed(t *testing.T) {
	r := strings.NewReader("1 2 3\n")
	if _, err := LoadEdgeList(r); err == nil {
		t.Fatalf("expected error for malformed line")
	}
}
