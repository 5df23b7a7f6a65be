// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - FileSource: Discovers and watches input files
//   - Extractor: Converts one file format into a Document
//   - ExtractorRegistry: Selects the extractor for a path
//   - EntityExtractor: Derives typed entities from a Document
//   - EmbeddingService: Turns text into vectors
//   - VectorStore: Persists vectors and answers similarity queries
//   - PostProcessor: Hooks run after indexing
//   - StructuredStore: External store entities are synced to
//   - DocumentStore: Processed documents read back by the CLI and MCP server
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EntityModel: Primary NER model. Without it, rule-based extraction is used.
//   - RateLimiter: Throttles calls to a StructuredStore.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or post-processor package
package driven
