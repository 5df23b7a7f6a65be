package domain

import "time"

// Metric is the similarity function of a vector store.
// It is fixed for the lifetime of a store.
type Metric string

// Supported similarity metrics.
const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricDot
}

// Metadata keys written on vector records.
const (
	MetaKind       = "kind"
	MetaDocumentID = "document_id"
	MetaEntityType = "entity_type"
	MetaPath       = "path"
	MetaTitle      = "title"

	KindDocument = "document"
	KindEntity   = "entity"
)

// VectorRecord is an embedding plus metadata for one document or entity id.
type VectorRecord struct {
	// ID is the document or entity id.
	ID string

	// Embedding is the vector.
	Embedding []float32

	// Text is the text that produced Embedding, empty when a raw vector
	// was upserted.
	Text string

	// Metadata is used for filtering.
	Metadata map[string]string

	// InsertedAt is when this version of the record was written.
	InsertedAt time.Time

	// Seq is a store-wide monotonically increasing insertion counter.
	// It breaks similarity ties deterministically.
	Seq uint64
}

// VectorFilter restricts results to records whose metadata contains
// every key with an equal value. An empty filter matches everything.
type VectorFilter map[string]string

// Matches reports whether metadata satisfies the filter.
func (f VectorFilter) Matches(metadata map[string]string) bool {
	for k, v := range f {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// VectorHit is a single similarity search result.
type VectorHit struct {
	Record     VectorRecord
	Similarity float64
}
