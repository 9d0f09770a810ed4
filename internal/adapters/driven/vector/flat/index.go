// Package flat provides an exact, brute-force nearest-neighbour index.
//
// Vectors are stored contiguously in insertion order and every search scans
// all of them, so results are exact and fully deterministic.
package flat

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
)

// Ensure Index and Builder implement the interfaces.
var (
	_ driven.VectorIndex        = (*Index)(nil)
	_ driven.VectorIndexBuilder = Builder{}
)

// Index is an immutable squared-L2 index.
type Index struct {
	dims int
	n    int
	data []float32
}

// Build copies embeddings into a new Index. All vectors must share one
// length; an empty input yields an empty index.
func Build(embeddings [][]float32) (*Index, error) {
	if len(embeddings) == 0 {
		return &Index{}, nil
	}
	dims := len(embeddings[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: zero-length embedding", domain.ErrInvalidInput)
	}
	data := make([]float32, 0, dims*len(embeddings))
	for i, e := range embeddings {
		if len(e) != dims {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, want %d",
				domain.ErrInvalidInput, i, len(e), dims)
		}
		data = append(data, e...)
	}
	return &Index{dims: dims, n: len(embeddings), data: data}, nil
}

// Builder adapts Build to driven.VectorIndexBuilder.
type Builder struct{}

// Build implements driven.VectorIndexBuilder.
func (Builder) Build(embeddings [][]float32) (driven.VectorIndex, error) {
	return Build(embeddings)
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	return x.n
}

// Dimensions returns the vector size.
func (x *Index) Dimensions() int {
	return x.dims
}

// Search returns the min(k, Len()) closest vectors. A query whose length
// does not match the index yields no matches.
func (x *Index) Search(query []float32, k int) []driven.VectorMatch {
	if x.n == 0 || k <= 0 || len(query) != x.dims {
		return []driven.VectorMatch{}
	}

	matches := make([]driven.VectorMatch, x.n)
	for i := 0; i < x.n; i++ {
		row := x.data[i*x.dims : (i+1)*x.dims]
		matches[i] = driven.VectorMatch{Position: i, Distance: squaredL2(query, row)}
	}

	// Stable sort keeps insertion order among equal distances.
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})
	return matches[:min(k, x.n)]
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
