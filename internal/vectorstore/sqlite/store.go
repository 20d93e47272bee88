// Package sqlite is the persistent vector store: one SQLite database inside
// the persist directory, embeddings stored as float32 BLOBs and ranked by
// cosine similarity at query time.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/kart-io/logger"
	_ "modernc.org/sqlite" // SQLite driver

	"ragpipeline/internal/domain"
	"ragpipeline/internal/vectorstore"
	"ragpipeline/internal/vectorstore/sqlite/migrations"
)

// DBFile is the database file name inside the persist directory.
const DBFile = "vectors.db"

// Store keeps the records of one collection.
type Store struct {
	db         *sql.DB
	path       string
	collection string
}

var _ domain.VectorStore = (*Store)(nil)

// Open creates or opens the store under dir.
func Open(dir, collection string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("persist directory is required")
	}
	if collection == "" {
		collection = "documents"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating persist directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath, collection: collection}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Debugw("opened sqlite vector store", "path", dbPath, "collection", collection)
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert stores records, replacing any with the same ID.
func (s *Store) Upsert(ctx context.Context, records []domain.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, collection, content, metadata, embedding, dimension)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if r.ID == "" {
			return errors.New("record without id")
		}
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling record metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, s.collection, r.Content,
			string(metadataJSON), float64SliceToBytes(r.Vector), len(r.Vector)); err != nil {
			return fmt.Errorf("saving record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search ranks every record of the collection whose dimension matches vector.
func (s *Store) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata, embedding
		FROM records WHERE collection = ? AND dimension = ?
		ORDER BY rowid
	`, s.collection, len(vector))
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return vectorstore.Rank(vector, records, topK), nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE collection = ?", s.collection)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE collection = ?", s.collection); err != nil {
		return fmt.Errorf("clearing collection: %w", err)
	}
	return nil
}

// migrate applies every embedded NNN_name.up.sql newer than the recorded
// schema version. Each file runs in its own transaction together with its
// schema_migrations row.
func (s *Store) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var applied int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= applied {
			continue // unnumbered or already applied
		}
		ddl, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(ddl)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		logger.Debugw("applied sqlite migration", "file", name, "version", version)
	}
	return nil
}

func (s *Store) applyMigration(version int, ddl string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(ddl); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

func scanRecord(rows *sql.Rows) (*domain.Record, error) {
	var r domain.Record
	var metadataJSON string
	var embeddingBlob []byte
	if err := rows.Scan(&r.ID, &r.Content, &metadataJSON, &embeddingBlob); err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	r.Vector = bytesToFloat64Slice(embeddingBlob)
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling record metadata: %w", err)
		}
	}
	return &r, nil
}

// float64SliceToBytes narrows to float32 and encodes little-endian.
func float64SliceToBytes(floats []float64) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(f)))
	}
	return buf
}

func bytesToFloat64Slice(data []byte) []float64 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float64, len(data)/4)
	for i := range floats {
		floats[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return floats
}
