package entities

import (
	"math"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// associationRules lists which entity type pairs are linked when they
// co-occur in a section.
var associationRules = []struct {
	from, to domain.EntityType
	kind     domain.AssociationType
}{
	{domain.EntityCondition, domain.EntityMedication, domain.AssociationTreatedWith},
	{domain.EntityCondition, domain.EntityProvider, domain.AssociationDiagnosedBy},
	{domain.EntitySymptom, domain.EntityCondition, domain.AssociationSymptomOf},
}

// associate links entities that appear in the same section, and links
// the document to every condition it mentions. sectionEntities holds
// the dedup keys found in each section.
func associate(docID string, byKey map[domain.DedupKey]domain.Entity, sectionEntities [][]domain.DedupKey) []domain.Association {
	seen := make(map[[3]string]bool)
	var out []domain.Association
	add := func(kind domain.AssociationType, from, to string, conf float64) {
		k := [3]string{string(kind), from, to}
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, domain.Association{
			Type:             kind,
			FromID:           from,
			ToID:             to,
			SourceDocumentID: docID,
			Confidence:       conf,
		})
	}

	for _, keys := range sectionEntities {
		for _, rule := range associationRules {
			for _, fk := range keys {
				from := byKey[fk]
				if from.Type != rule.from || from.Attributes["negated"] == "true" {
					continue
				}
				for _, tk := range keys {
					to := byKey[tk]
					if to.Type != rule.to || to.Attributes["negated"] == "true" {
						continue
					}
					add(rule.kind, from.ID, to.ID, math.Min(from.Confidence, to.Confidence))
				}
			}
		}
	}
	for _, keys := range sectionEntities {
		for _, k := range keys {
			if e := byKey[k]; e.Type == domain.EntityCondition {
				add(domain.AssociationMentions, docID, e.ID, e.Confidence)
			}
		}
	}
	return out
}
