// Package domain defines the core business entities for askme.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Tenant: An isolated customer account with its own API key
//   - FAQ: A question/answer pair with the embedding of its normalised question
//   - SearchResult: One retrieved FAQ and its distance from the query
//   - Chunk: One incrementally delivered piece of an answer
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
