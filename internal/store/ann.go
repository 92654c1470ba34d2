package store

import (
	"github.com/coder/hnsw"
)

// Backend selects how Search finds candidates.
type Backend string

const (
	// BackendFlat scores every stored vector.
	BackendFlat Backend = "flat"
	// BackendHNSW shortlists candidates from an HNSW graph and rescores them exactly.
	BackendHNSW Backend = "hnsw"
)

// HNSWOptions tunes the graph.
type HNSWOptions struct {
	M        int
	EfSearch int
}

// annGraph is an in-memory HNSW graph keyed by ordinal position. It is a
// derived structure: the flat vectors are persisted and the graph is
// rebuilt from them on load and after deletions.
type annGraph struct {
	opts  HNSWOptions
	graph *hnsw.Graph[uint64]
}

func newANNGraph(opts HNSWOptions) *annGraph {
	if opts.M <= 0 {
		opts.M = 16
	}
	if opts.EfSearch <= 0 {
		opts.EfSearch = 64
	}
	a := &annGraph{opts: opts}
	a.reset()
	return a
}

func (a *annGraph) reset() {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = a.opts.M
	g.EfSearch = a.opts.EfSearch
	g.Ml = 0.25
	a.graph = g
}

// add inserts a normalized vector. Zero vectors are left out; their
// cosine distance is undefined and they can only score 0 anyway.
func (a *annGraph) add(ordinal int, vec []float32) {
	if isZero(vec) {
		return
	}
	a.graph.Add(hnsw.MakeNode(uint64(ordinal), vec))
}

// rebuild replaces the graph with one over vectors.
func (a *annGraph) rebuild(vectors [][]float32) {
	a.reset()
	for i, v := range vectors {
		a.add(i, v)
	}
}

// candidates returns up to k ordinals near query, in no particular order.
func (a *annGraph) candidates(query []float32, k int) []int {
	if a.graph.Len() == 0 || k <= 0 {
		return nil
	}
	nodes := a.graph.Search(query, k)
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.Key)
	}
	return out
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
