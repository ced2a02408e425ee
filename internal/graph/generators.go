package graph

import "math/rand"

// NewComplete builds the complete graph on n nodes (0..n-1), every pair
// connected.
func NewComplete(n int) *AdjacencyGraph {
	b := NewBuilder()
	for i := 0; i < n; i++ {
		b.AddNode(NodeID(i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			b.AddEdge(NodeID(i), NodeID(j))
		}
	}
	return b.Build()
}

// NewErdosRenyi builds a G(n,p) random graph: each of the n(n-1)/2 possible
// undirected edges is present independently with probability p.
func NewErdosRenyi(n int, p float64, seed int64) *AdjacencyGraph {
	rng := rand.New(rand.NewSource(seed))
	b := NewBuilder()
	for i := 0; i < n; i++ {
		b.AddNode(NodeID(i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < p {
				b.AddEdge(NodeID(i), NodeID(j))
			}
		}
	}
	return b.Build()
}

// NewBarabasiAlbert builds a preferential-attachment graph: start from an m-node
// clique and, for each subsequent node, attach m edges chosen with
// probability proportional to existing degree.
func NewBarabasiAlbert(n, m int, seed int64) *AdjacencyGraph {
	if m < 1 {
		m = 1
	}
	if n <= m {
		return NewComplete(n)
	}
	rng := rand.New(rand.NewSource(seed))
	b := NewBuilder()

	// repeatedTargets holds one entry per edge endpoint seen so far, so
	// sampling uniformly from it is equivalent to sampling proportional to
	// degree (the standard preferential-attachment trick).
	var repeatedTargets []NodeID
	for i := 0; i < m; i++ {
		b.AddNode(NodeID(i))
	}
	// Seed clique among the first m nodes so every node starts with degree > 0
	// (for m >= 2; with m == 1 the lone seed node gains its edge from node 1).
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			b.AddEdge(NodeID(i), NodeID(j))
			repeatedTargets = append(repeatedTargets, NodeID(i), NodeID(j))
		}
	}

	for v := m; v < n; v++ {
		node := NodeID(v)
		b.AddNode(node)
		targets := pickTargets(rng, repeatedTargets, m, node)
		if len(repeatedTargets) == 0 {
			// m == 1: the one-node seed has no clique edges, so the first
			// newcomer attaches to the lone seed node directly.
			targets = []NodeID{0}
		}
		for _, t := range targets {
			b.AddEdge(node, t)
			repeatedTargets = append(repeatedTargets, node, t)
		}
	}
	return b.Build()
}

// pickTargets samples m distinct targets from the repeated-target
// multiset, proportional to degree, excluding self.
func pickTargets(rng *rand.Rand, pool []NodeID, m int, self NodeID) []NodeID {
	if len(pool) == 0 {
		return nil
	}
	chosen := make(map[NodeID]bool, m)
	out := make([]NodeID, 0, m)
	attempts := 0
	maxAttempts := m * 50
	for len(out) < m && attempts < maxAttempts {
		attempts++
		cand := pool[rng.Intn(len(pool))]
		if cand == self || chosen[cand] {
			continue
		}
		chosen[cand] = true
		out = append(out, cand)
	}
	return out
}
