// Package entities implements the entity extraction engine. It combines an
// optional primary model with deterministic rules, merges candidates across
// document sections, and attaches ids, confidence and verification flags.
package entities

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/ids"
	"github.com/custodia-labs/medingest/internal/logger"
)

// Ensure Engine implements the interface.
var _ driven.EntityExtractor = (*Engine)(nil)

// Entity sources recorded in document metadata.
const (
	SourceModel = "model"
	SourceRules = "rules"
)

// Config configures the engine.
type Config struct {
	// ConfidenceThreshold is the score at or above which entities are verified.
	ConfidenceThreshold float64

	// ModelTimeout bounds each model call. Defaults to 30s.
	ModelTimeout time.Duration
}

// Engine extracts entities from documents. The rule path is always
// available; the model is consulted first when configured.
type Engine struct {
	model        driven.EntityModel
	rules        *Rules
	threshold    float64
	modelTimeout time.Duration
	modelDown    atomic.Bool
}

// New creates an engine. model may be nil for rules-only extraction.
func New(model driven.EntityModel, cfg Config) *Engine {
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = 30 * time.Second
	}
	return &Engine{
		model:        model,
		rules:        NewRules(),
		threshold:    cfg.ConfidenceThreshold,
		modelTimeout: cfg.ModelTimeout,
	}
}

// Degraded reports whether the model was found unavailable and the
// engine now runs on rules only.
func (e *Engine) Degraded() bool {
	return e.model == nil || e.modelDown.Load()
}

type candidateKey struct {
	entityType domain.EntityType
	value      string
}

// Extract replaces the document's derived entity fields.
func (e *Engine) Extract(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.ErrInvalidInput
	}
	doc.ResetDerived()

	sections := doc.Sections
	if len(sections) == 0 {
		sections = []domain.Section{{Kind: "body", Text: doc.Content}}
	}

	merged := make(map[candidateKey]*driven.EntityCandidate)
	var order []candidateKey
	sectionKeys := make([][]candidateKey, 0, len(sections))
	source := SourceRules

	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		cands, src := e.infer(ctx, s.Text)
		if src == SourceModel {
			source = SourceModel
		}
		var keys []candidateKey
		for _, c := range cands {
			if !c.Type.IsValid() || strings.TrimSpace(c.Value) == "" {
				continue
			}
			k := candidateKey{c.Type, domain.NormalizeValue(c.Value)}
			keys = append(keys, k)
			existing, ok := merged[k]
			if !ok {
				c := c
				merged[k] = &c
				order = append(order, k)
				continue
			}
			mergeCandidate(existing, c)
		}
		sectionKeys = append(sectionKeys, keys)
	}

	byKey := make(map[domain.DedupKey]domain.Entity, len(order))
	set := domain.EntitySet{}
	var confSum float64
	for _, k := range order {
		c := merged[k]
		conf := clamp(c.Confidence)
		ent := domain.Entity{
			Type:             c.Type,
			Value:            strings.TrimSpace(c.Value),
			Text:             c.Text,
			Attributes:       c.Attributes,
			SourceDocumentID: doc.ID,
			Confidence:       conf,
			IsVerified:       conf >= e.threshold,
		}
		ent.ID = ids.Entity(ent.Key().String())
		byKey[ent.Key()] = ent
		set[ent.Type] = append(set[ent.Type], ent)
		confSum += conf
	}

	sectionDedup := make([][]domain.DedupKey, 0, len(sectionKeys))
	for _, keys := range sectionKeys {
		var dk []domain.DedupKey
		for _, k := range keys {
			dk = append(dk, domain.DedupKey{Type: k.entityType, Value: k.value, SourceDocumentID: doc.ID})
		}
		sectionDedup = append(sectionDedup, dk)
	}

	doc.Entities = set
	doc.Associations = associate(doc.ID, byKey, sectionDedup)
	doc.ExtractedDates = ExtractDates(doc.Content + "\n" + strings.Join(doc.Metadata.Dates, "\n"))
	doc.Providers = providers(set[domain.EntityProvider], doc.Metadata.Providers)

	quality := doc.Metadata.Quality
	if n := len(order); n > 0 {
		doc.Confidence = round3((quality + confSum/float64(n)) / 2)
	} else {
		doc.Confidence = round3(quality)
	}
	if doc.Metadata.Extra == nil {
		doc.Metadata.Extra = map[string]any{}
	}
	doc.Metadata.Extra["entity_source"] = source
	return nil
}

// infer runs the model when available and always runs the rules.
func (e *Engine) infer(ctx context.Context, text string) ([]driven.EntityCandidate, string) {
	ruleCands := e.rules.Extract(text)
	if e.model == nil || e.modelDown.Load() || strings.TrimSpace(text) == "" {
		return ruleCands, SourceRules
	}

	mctx, cancel := context.WithTimeout(ctx, e.modelTimeout)
	defer cancel()
	modelCands, err := e.model.Infer(mctx, text)
	if err != nil {
		switch {
		case ctx.Err() != nil:
		case errors.Is(err, domain.ErrModelUnavailable):
			if e.modelDown.CompareAndSwap(false, true) {
				logger.Warn("entity model %s unavailable, using rules: %v", e.model.Name(), err)
			}
		default:
			logger.Warn("entity model %s failed, using rules for section: %v", e.model.Name(), err)
		}
		return ruleCands, SourceRules
	}
	return append(modelCands, ruleCands...), SourceModel
}

// mergeCandidate folds c into dst keeping the higher confidence and the
// union of attributes.
func mergeCandidate(dst *driven.EntityCandidate, c driven.EntityCandidate) {
	if c.Confidence > dst.Confidence {
		attrs := dst.Attributes
		dst.Value, dst.Text, dst.Confidence, dst.Attributes = c.Value, c.Text, c.Confidence, c.Attributes
		c.Attributes = attrs
	}
	for k, v := range c.Attributes {
		if dst.Attributes == nil {
			dst.Attributes = map[string]string{}
		}
		if _, ok := dst.Attributes[k]; !ok {
			dst.Attributes[k] = v
		}
	}
}

func providers(entities []domain.Entity, fromMetadata []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range fromMetadata {
		if n := domain.NormalizeValue(name); n != "" && !seen[n] {
			seen[n] = true
			out = append(out, name)
		}
	}
	for _, e := range entities {
		if n := domain.NormalizeValue(e.Value); !seen[n] {
			seen[n] = true
			out = append(out, e.Value)
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
