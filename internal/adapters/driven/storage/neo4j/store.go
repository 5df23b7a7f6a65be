// Package neo4j provides a graph structured store. Entities become
// :MedicalEntity nodes linked from their :Document node.
package neo4j

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.StructuredStore = (*Store)(nil)

// Config holds connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// queryFunc executes one Cypher statement.
type queryFunc func(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)

// Store writes records to Neo4j (or Memgraph) over Bolt.
type Store struct {
	driver neo4j.DriverWithContext
	run    queryFunc
}

const upsertQuery = `
MERGE (e:MedicalEntity {collection: $collection, id: $id})
SET e.key = $key,
    e.type = $type,
    e.value = $value,
    e.text = $text,
    e.attributes = $attributes,
    e.source_document_id = $source_document_id,
    e.confidence = $confidence,
    e.verified = $verified,
    e.content_hash = $content_hash,
    e.updated_at = $updated_at
MERGE (d:Document {id: $source_document_id})
MERGE (d)-[:MENTIONS]->(e)`

const queryByKey = `
MATCH (e:MedicalEntity {collection: $collection, key: $key})
RETURN e.id AS id, e.key AS key, e.type AS type, e.value AS value, e.text AS text,
       e.attributes AS attributes, e.source_document_id AS source_document_id,
       e.confidence AS confidence, e.verified AS verified,
       e.content_hash AS content_hash, e.updated_at AS updated_at
LIMIT 1`

var indexQueries = []string{
	"CREATE INDEX medical_entity_key IF NOT EXISTS FOR (e:MedicalEntity) ON (e.collection, e.key)",
	"CREATE INDEX medical_entity_id IF NOT EXISTS FOR (e:MedicalEntity) ON (e.collection, e.id)",
	"CREATE INDEX document_id IF NOT EXISTS FOR (d:Document) ON (d.id)",
}

// New connects, verifies connectivity and creates indices.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j: uri is required: %w", domain.ErrConfiguration)
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: %w: %v", domain.ErrConfiguration, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: connectivity: %w", err)
	}

	var opts []neo4j.ExecuteQueryConfigurationOption
	if cfg.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(cfg.Database))
	}
	s := &Store{
		driver: driver,
		run: func(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
			return neo4j.ExecuteQuery(ctx, driver, query, params, neo4j.EagerResultTransformer, opts...)
		},
	}

	for _, q := range indexQueries {
		if _, err := s.run(ctx, q, nil); err != nil {
			logger.Warn("neo4j: failed to create index: %v", err)
		}
	}
	return s, nil
}

// newWithQuery builds a store around a query function, for tests.
func newWithQuery(run queryFunc) *Store {
	return &Store{run: run}
}

// Name identifies the target.
func (s *Store) Name() string {
	return string(domain.SyncTargetNeo4j)
}

// Upsert merges the entity node for id and links it to its document.
// Attributes are stored as a JSON string since node properties cannot be maps.
func (s *Store) Upsert(ctx context.Context, collection, id string, rec domain.Record) error {
	if collection == "" || id == "" || rec.Key == "" {
		return fmt.Errorf("neo4j: collection, id and key are required: %w", domain.ErrSyncPermanent)
	}
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("neo4j: marshalling attributes: %w: %v", domain.ErrSyncPermanent, err)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.run(ctx, upsertQuery, map[string]any{
		"collection":         collection,
		"id":                 id,
		"key":                rec.Key,
		"type":               string(rec.Type),
		"value":              rec.Value,
		"text":               rec.Text,
		"attributes":         string(attrs),
		"source_document_id": rec.SourceDocumentID,
		"confidence":         rec.Confidence,
		"verified":           rec.Verified,
		"content_hash":       rec.ContentHash,
		"updated_at":         updatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return classify("upsert", err)
	}
	return nil
}

// Query returns the record whose dedup key is key, or nil.
func (s *Store) Query(ctx context.Context, collection, key string) (*domain.Record, error) {
	res, err := s.run(ctx, queryByKey, map[string]any{"collection": collection, "key": key})
	if err != nil {
		return nil, classify("query", err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	r := res.Records[0]

	rec := domain.Record{
		ID:               stringValue(r, "id"),
		Key:              stringValue(r, "key"),
		Type:             domain.EntityType(stringValue(r, "type")),
		Value:            stringValue(r, "value"),
		Text:             stringValue(r, "text"),
		SourceDocumentID: stringValue(r, "source_document_id"),
		ContentHash:      stringValue(r, "content_hash"),
	}
	if v, ok := r.Get("confidence"); ok {
		rec.Confidence, _ = v.(float64)
	}
	if v, ok := r.Get("verified"); ok {
		rec.Verified, _ = v.(bool)
	}
	if raw := stringValue(r, "attributes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Attributes); err != nil {
			return nil, fmt.Errorf("neo4j: decoding attributes: %w", err)
		}
	}
	if ts := stringValue(r, "updated_at"); ts != "" {
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return &rec, nil
}

// Close closes the driver.
func (s *Store) Close() error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(context.Background())
}

func stringValue(r *neo4j.Record, key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// classify marks retryable driver errors transient, and client errors
// such as authentication or syntax failures permanent.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("neo4j %s: %w", op, err)
	}
	if neo4j.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("neo4j %s: %w: %v", op, domain.ErrSyncTransient, err)
	}
	var dbErr *neo4j.Neo4jError
	if errors.As(err, &dbErr) && strings.HasPrefix(dbErr.Code, "Neo.ClientError.") {
		return fmt.Errorf("neo4j %s: %w: %v", op, domain.ErrSyncPermanent, err)
	}
	return fmt.Errorf("neo4j %s: %w", op, err)
}
