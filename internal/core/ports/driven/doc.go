// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - FAQStore: FAQ text and embedding persistence
//   - TenantStore: Tenant, API key and settings persistence
//   - TextNormaliser: Canonicalises text before embedding
//   - EmbeddingService: Generates question and query embeddings
//   - VectorIndexBuilder: Builds per-tenant nearest-neighbour indexes
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Generator: Text generation. Without it, only direct delivery is available.
//   - PromptStore: Custom prompt templates. Without it, built-in defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
