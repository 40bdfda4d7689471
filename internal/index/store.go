package index

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Record is one content-addressed chunk with its embedding and metadata,
// ready to be written to a collection.
type Record struct {
	ID        string
	Document  string
	Repo      string
	Path      string
	Embedding []float32
}

// Match is one retrieval result: the stored text, its metadata, and the
// store-native distance to the query vector (cosine, smaller is closer).
type Match struct {
	Document string
	Repo     string
	Path     string
	Distance float64
}

// Store persists chunk embeddings in Postgres with the pgvector extension.
// A collection is the set of rows sharing a collection name; dropping a
// collection deletes those rows wholesale. The embedding column carries no
// dimension modifier on purpose: wrong-length vectors from an earlier model
// must stay observable so the corruption heuristic can find them.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on top of an open database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the pgvector extension and the chunks table if needed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS chunks (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			document   TEXT NOT NULL,
			repo       TEXT NOT NULL,
			path       TEXT NOT NULL,
			embedding  vector,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS chunks_collection_idx ON chunks (collection)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// GetEmbeddings fetches the stored vectors for the given IDs within one
// collection. IDs with no row are absent from the result; IDs stored with a
// NULL embedding map to a nil vector.
func (s *Store) GetEmbeddings(ctx context.Context, collection string, ids []string) (map[string][]float32, error) {
	if len(ids) == 0 {
		return map[string][]float32{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding::text FROM chunks WHERE collection = $1 AND id = ANY($2)`,
		collection, pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("get embeddings: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]float32)
	for rows.Next() {
		var id string
		var raw sql.NullString
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		if !raw.Valid {
			result[id] = nil
			continue
		}
		vec, err := parseVector(raw.String)
		if err != nil {
			// A value pgvector emitted but we cannot read counts as broken.
			result[id] = nil
			continue
		}
		result[id] = vec
	}
	return result, rows.Err()
}

// Upsert inserts or overwrites one record in a collection.
func (s *Store) Upsert(ctx context.Context, collection string, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (collection, id, document, repo, path, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6::vector)
		 ON CONFLICT (collection, id) DO UPDATE SET
		   document = EXCLUDED.document,
		   repo = EXCLUDED.repo,
		   path = EXCLUDED.path,
		   embedding = EXCLUDED.embedding`,
		collection, rec.ID, rec.Document, rec.Repo, rec.Path, vectorToString(rec.Embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", rec.ID, err)
	}
	return nil
}

// Query returns the topK nearest records to the query vector within one
// collection, ordered by cosine distance.
func (s *Store) Query(ctx context.Context, collection string, vector []float32, topK int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document, repo, path, embedding <=> $2::vector AS distance
		 FROM chunks
		 WHERE collection = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2::vector
		 LIMIT $3`,
		collection, vectorToString(vector), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Document, &m.Repo, &m.Path, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Drop deletes a whole collection. Dropping a collection that does not exist
// is a no-op.
func (s *Store) Drop(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("drop collection %s: %w", collection, err)
	}
	return nil
}

// ListCollections returns the names of all non-empty collections.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT collection FROM chunks ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Count returns the number of chunks stored in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM chunks WHERE collection = $1`, collection,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", collection, err)
	}
	return count, nil
}

// vectorToString converts a float32 slice to pgvector text format: [0.1,0.2].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVector reads pgvector text format back into a float32 slice.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed vector literal %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []float32{}, nil
	}

	parts := strings.Split(inner, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector element %q: %w", p, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}
