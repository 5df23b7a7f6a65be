// Package domain defines the core business entities for medingest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A normalised source file moving through the pipeline
//   - Entity: A typed medical fact derived from a document
//   - VectorRecord: An embedding plus metadata used for similarity search
//   - SyncResult: The outcome of reconciling one entity with a remote store
//   - RunReport: The aggregate outcome of a pipeline run
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
