package domain

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Offset skips the first results, for pagination.
	Offset int

	// Kind restricts results to documents or entities. Empty means both.
	Kind string

	// EntityType restricts entity results to one type.
	EntityType EntityType

	// DocumentID restricts results to one source document.
	DocumentID string
}

// Filter converts the options into a vector metadata filter.
func (o SearchOptions) Filter() VectorFilter {
	f := VectorFilter{}
	if o.Kind != "" {
		f[MetaKind] = o.Kind
	}
	if o.EntityType != "" {
		f[MetaEntityType] = string(o.EntityType)
	}
	if o.DocumentID != "" {
		f[MetaDocumentID] = o.DocumentID
	}
	return f
}

// SearchResult represents a single search hit.
type SearchResult struct {
	// ID is the document or entity id.
	ID string

	// Kind is KindDocument or KindEntity.
	Kind string

	// DocumentID is the source document.
	DocumentID string

	// Title is the document title.
	Title string

	// Path is the document source path.
	Path string

	// EntityType is set for entity hits.
	EntityType EntityType

	// Snippet is a short excerpt of the indexed text.
	Snippet string

	// Score is the similarity.
	Score float64
}
