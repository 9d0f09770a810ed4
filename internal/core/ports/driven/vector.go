package driven

// VectorIndex is an immutable nearest-neighbour structure over one tenant's
// question embeddings. It is built wholesale and never updated in place.
type VectorIndex interface {
	// Search returns the min(k, Len()) nearest stored vectors ordered by
	// ascending squared Euclidean distance. Equal distances are ordered by
	// ascending insertion position. An empty index yields an empty slice.
	Search(query []float32, k int) []VectorMatch

	// Len returns the number of stored vectors.
	Len() int

	// Dimensions returns the vector size, or 0 for an empty index.
	Dimensions() int
}

// VectorIndexBuilder constructs a VectorIndex from embeddings in the given order.
type VectorIndexBuilder interface {
	Build(embeddings [][]float32) (VectorIndex, error)
}

// VectorMatch represents a similarity search result.
type VectorMatch struct {
	// Position is the insertion position of the matched vector.
	Position int

	// Distance is the squared Euclidean distance (0 for an exact match).
	Distance float32
}
