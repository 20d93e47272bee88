// Package milvus stores records in a Milvus collection with an HNSW index
// over cosine distance.
package milvus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/kart-io/logger"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"ragpipeline/internal/domain"
)

const (
	fieldID       = "id"
	fieldContent  = "content"
	fieldVector   = "vector"
	fieldMetadata = "metadata"
)

type Config struct {
	Address    string
	Database   string
	Username   string
	Password   string
	Collection string
}

// Store is a domain.VectorStore backed by Milvus. The collection is created
// on the first upsert with the dimension of the incoming vectors.
type Store struct {
	client     *milvusclient.Client
	collection string

	mu    sync.Mutex
	ready bool
}

var _ domain.VectorStore = (*Store)(nil)

// Open connects to Milvus.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("milvus address is required")
	}
	database := cfg.Database
	if database == "" {
		database = "default"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "documents"
	}

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		DBName:   database,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client (address: %s, database: %s): %w", cfg.Address, database, err)
	}
	logger.Infow("connected to milvus", "address", cfg.Address, "database", database, "collection", collection)
	return &Store{client: client, collection: collection}, nil
}

// collectionFields describes the record schema for dimension dim.
func collectionFields(dim int) []*entity.Field {
	return []*entity.Field{
		{
			Name:       fieldID,
			DataType:   entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "256"},
			PrimaryKey: true,
		},
		{
			Name:       fieldContent,
			DataType:   entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "65535"},
		},
		{
			Name:       fieldVector,
			DataType:   entity.FieldTypeFloatVector,
			TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
		},
		{
			Name:     fieldMetadata,
			DataType: entity.FieldTypeJSON,
		},
	}
}

func (s *Store) exists(ctx context.Context) (bool, error) {
	has, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	if err != nil {
		return false, fmt.Errorf("failed to check if collection exists: %w", err)
	}
	return has, nil
}

func (s *Store) ensureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	has, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !has {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "document chunks and their embeddings",
			AutoID:         false,
			Fields:         collectionFields(dim),
		}
		err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(s.collection, schema).WithIndexOptions(
			milvusclient.NewCreateIndexOption(s.collection, fieldVector, index.NewHNSWIndex(entity.COSINE, 64, 128))))
		if err != nil {
			return fmt.Errorf("failed to create milvus collection: %w", err)
		}
		logger.Infow("created milvus collection", "collection", s.collection, "dimension", dim)
	}

	if _, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collection)); err != nil {
		return fmt.Errorf("failed to load milvus collection: %w", err)
	}
	s.ready = true
	return nil
}

func (s *Store) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Vector)
	columns, err := buildColumns(records, dim)
	if err != nil {
		return err
	}
	if err := s.ensureCollection(ctx, dim); err != nil {
		return err
	}

	result, err := s.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(s.collection, columns...))
	if err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	logger.Debugw("upserted milvus records", "collection", s.collection, "count", result.UpsertCount)
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 4
	}
	has, err := s.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	if err := s.ensureCollection(ctx, len(vector)); err != nil {
		return nil, err
	}

	opt := milvusclient.NewSearchOption(s.collection, topK, []entity.Vector{entity.FloatVector(toFloat32(vector))}).
		WithANNSField(fieldVector).
		WithOutputFields(fieldID, fieldContent, fieldMetadata).
		WithConsistencyLevel(entity.ClBounded)
	results, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return decodeResults(results[0].Fields, results[0].Scores)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	has, err := s.exists(ctx)
	if err != nil || !has {
		return 0, err
	}
	stats, err := s.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(s.collection))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("bad row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

// Clear drops the collection.
func (s *Store) Clear(ctx context.Context) error {
	has, err := s.exists(ctx)
	if err != nil || !has {
		return err
	}
	if err := s.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(s.collection)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	logger.Infow("dropped milvus collection", "collection", s.collection)
	return nil
}

func (s *Store) Close() error {
	return s.client.Close(context.Background())
}

func buildColumns(records []domain.Record, dim int) ([]column.Column, error) {
	ids := make([]string, len(records))
	contents := make([]string, len(records))
	vectors := make([][]float32, len(records))
	metadata := make([][]byte, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, errors.New("record without id")
		}
		if len(r.Vector) != dim {
			return nil, fmt.Errorf("%w: record %s has %d, want %d", domain.ErrDimensionMismatch, r.ID, len(r.Vector), dim)
		}
		meta := r.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		b, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		ids[i] = r.ID
		contents[i] = r.Content
		vectors[i] = toFloat32(r.Vector)
		metadata[i] = b
	}
	return []column.Column{
		column.NewColumnVarChar(fieldID, ids),
		column.NewColumnVarChar(fieldContent, contents),
		column.NewColumnFloatVector(fieldVector, dim, vectors),
		column.NewColumnJSONBytes(fieldMetadata, metadata),
	}, nil
}

func decodeResults(columns []column.Column, scores []float32) ([]domain.SearchResult, error) {
	if len(columns) == 0 {
		return nil, nil
	}
	n := columns[0].Len()
	out := make([]domain.SearchResult, n)
	for i := 0; i < n && i < len(scores); i++ {
		out[i].Score = float64(scores[i])
	}

	for _, col := range columns {
		for i := 0; i < col.Len() && i < n; i++ {
			val, err := col.Get(i)
			if err != nil {
				return nil, fmt.Errorf("failed to get %s: %w", col.Name(), err)
			}
			switch col.Name() {
			case fieldID:
				out[i].Record.ID, _ = val.(string)
			case fieldContent:
				out[i].Record.Content, _ = val.(string)
			case fieldMetadata:
				var raw []byte
				switch v := val.(type) {
				case []byte:
					raw = v
				case json.RawMessage:
					raw = v
				case string:
					raw = []byte(v)
				}
				if len(raw) == 0 {
					continue
				}
				if err := json.Unmarshal(raw, &out[i].Record.Metadata); err != nil {
					return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
				}
			}
		}
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
