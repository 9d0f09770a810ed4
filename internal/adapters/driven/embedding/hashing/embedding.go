// Package hashing provides a local, deterministic embedding service.
//
// Each token and each adjacent token pair of the normalised text is hashed
// with xxhash into one of D buckets with a sign taken from a second hash bit,
// and the accumulated vector is scaled to unit length. Texts sharing lemmas
// land close together in Euclidean space; identical texts are identical.
package hashing

import (
	"context"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/askme/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "xxhash-bigram"
	DefaultDimensions = 384

	// bigramWeight scales pair features relative to single tokens.
	bigramWeight = 0.5
)

// Config holds configuration for the hashing embedding service.
type Config struct {
	// Dimensions is the embedding vector size (default: 384).
	Dimensions int

	// Seed perturbs the hash so different deployments can use disjoint spaces.
	Seed uint64
}

// EmbeddingService embeds text without any network or model files.
type EmbeddingService struct {
	dimensions int
	seed       []byte
}

// NewEmbeddingService creates a new hashing embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	seed := make([]byte, 8)
	for i := range seed {
		seed[i] = byte(cfg.Seed >> (8 * i))
	}
	return &EmbeddingService{dimensions: cfg.Dimensions, seed: seed}
}

// Embed generates a unit-length vector for text. The empty string and
// whitespace map to the zero vector.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.embed(text), nil
}

// EmbedBatch embeds each text independently; results match Embed exactly.
func (s *EmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.embed(t)
	}
	return out, nil
}

func (s *EmbeddingService) embed(text string) []float32 {
	acc := make([]float64, s.dimensions)
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		s.add(acc, tok, 1)
		if i > 0 {
			s.add(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, s.dimensions)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (s *EmbeddingService) add(acc []float64, feature string, weight float64) {
	d := xxhash.New()
	_, _ = d.Write(s.seed)
	_, _ = d.WriteString(feature)
	h := d.Sum64()

	bucket := h % uint64(len(acc))
	if h>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return DefaultModel
}

// Ping always succeeds; there is nothing remote to reach.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
