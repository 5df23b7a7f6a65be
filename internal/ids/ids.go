// Package ids derives stable identifiers for documents and entities.
//
// Identifiers are name-based UUIDs (version 5) so re-running the pipeline
// over the same input yields the same ids and upserts replace rather than
// duplicate.
package ids

import (
	"path/filepath"

	"github.com/google/uuid"
)

var (
	documentNamespace = uuid.MustParse("4f0e6c1a-2f7b-5a51-9d2e-6b1f0c7a9e01")
	entityNamespace   = uuid.MustParse("9b3d2a44-7c1e-5f60-8a4b-2e6d9c0f1b72")
)

// Document returns the id for a document identified by its source path.
// Paths are cleaned and use forward slashes so ids match across platforms.
func Document(path string) string {
	return uuid.NewSHA1(documentNamespace, []byte(filepath.ToSlash(filepath.Clean(path)))).String()
}

// Content returns the id for a document without a usable source path.
func Content(content []byte) string {
	return uuid.NewSHA1(documentNamespace, content).String()
}

// Entity returns the id for an entity from its encoded dedup key.
func Entity(key string) string {
	return uuid.NewSHA1(entityNamespace, []byte(key)).String()
}
