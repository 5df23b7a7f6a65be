package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

// EntityType identifies the kind of medical fact.
type EntityType string

// Supported entity types.
const (
	EntityCondition  EntityType = "condition"
	EntityMedication EntityType = "medication"
	EntitySymptom    EntityType = "symptom"
	EntityProvider   EntityType = "provider"
	EntityLabResult  EntityType = "lab_result"
	EntityProcedure  EntityType = "procedure"
)

// AllEntityTypes returns entity types in their canonical order.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityCondition,
		EntityMedication,
		EntitySymptom,
		EntityProvider,
		EntityLabResult,
		EntityProcedure,
	}
}

// IsValid returns true if the entity type is recognised.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityCondition, EntityMedication, EntitySymptom,
		EntityProvider, EntityLabResult, EntityProcedure:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t EntityType) String() string {
	return string(t)
}

// Entity is a typed medical fact derived from a document.
// It is immutable once synced except for Confidence and IsVerified.
type Entity struct {
	// ID is derived from the dedup key and is stable across runs.
	ID string

	// Type is the kind of fact.
	Type EntityType

	// Value is the canonical value (e.g. "hypermobile Ehlers-Danlos Syndrome").
	Value string

	// Text is the surface form found in the document.
	Text string

	// Attributes carries type-specific fields (dose, unit, result...).
	Attributes map[string]string

	// SourceDocumentID references the document the entity came from.
	SourceDocumentID string

	// Confidence is the extraction confidence in [0,1].
	Confidence float64

	// IsVerified is true when Confidence reached the configured threshold.
	IsVerified bool
}

// DedupKey identifies an entity for deduplication and sync.
type DedupKey struct {
	Type             EntityType
	Value            string
	SourceDocumentID string
}

// String encodes the key as "type|normalised value|document id".
func (k DedupKey) String() string {
	return string(k.Type) + "|" + k.Value + "|" + k.SourceDocumentID
}

// Key returns the entity's dedup key.
func (e Entity) Key() DedupKey {
	return DedupKey{
		Type:             e.Type,
		Value:            NormalizeValue(e.Value),
		SourceDocumentID: e.SourceDocumentID,
	}
}

// ContentHash hashes the entity's content fields. Confidence and
// verification are compared separately by the sync layer.
func (e Entity) ContentHash() string {
	h := sha256.New()
	h.Write([]byte(e.Type))
	h.Write([]byte{0})
	h.Write([]byte(e.Value))
	h.Write([]byte{0})
	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(e.Attributes[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeValue folds a value for equality checks: lower case,
// whitespace collapsed to single spaces, surrounding punctuation trimmed.
func NormalizeValue(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// EntitySet maps entity types to ordered candidates.
type EntitySet map[EntityType][]Entity

// All returns every entity, grouped in canonical type order.
func (s EntitySet) All() []Entity {
	var out []Entity
	for _, t := range AllEntityTypes() {
		out = append(out, s[t]...)
	}
	return out
}

// Count returns the number of entities across all types.
func (s EntitySet) Count() int {
	n := 0
	for _, list := range s {
		n += len(list)
	}
	return n
}

// AssociationType names the relationship between two entities.
type AssociationType string

// Supported associations.
const (
	AssociationTreatedWith AssociationType = "treated_with"
	AssociationDiagnosedBy AssociationType = "diagnosed_by"
	AssociationSymptomOf   AssociationType = "symptom_of"
	AssociationMentions    AssociationType = "mentions"
)

// Association is a many-to-many link between entities or between a
// document and an entity.
type Association struct {
	Type             AssociationType
	FromID           string
	ToID             string
	SourceDocumentID string
	Confidence       float64
}
