package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGStore is the pgvector backend: a single chunks table in PostgreSQL with
// an embedding vector(dim) column, cosine-ordered by the <=> operator.
// Suited to deployments where several replicas share one index.
type PGStore struct {
	pool       *pgxpool.Pool
	collection string
	dims       int
}

var _ Store = (*PGStore)(nil)

// OpenPG connects to PostgreSQL and ensures the chunks schema exists.
func OpenPG(ctx context.Context, cfg Config) (*PGStore, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("pgvector backend requires a postgres DSN")
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PGStore{
		pool:       pool,
		collection: cfg.Collection,
		dims:       cfg.Dimensions,
	}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return s, nil
}

func (s *PGStore) createSchema(ctx context.Context) error {
	// The dimensionality is baked into the column type; switching embedding
	// models requires a manual migration.
	schema := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS chunks (
		id            TEXT PRIMARY KEY,
		file_id       TEXT NOT NULL,
		chunk_index   INT NOT NULL,
		source        TEXT NOT NULL,
		document_text TEXT NOT NULL,
		embedding     vector(%d) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_file_id ON chunks(file_id);

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	`, s.dims)

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Add implements Store. Existing IDs are deleted first so the insert never
// conflicts and reindexing stays idempotent.
func (s *PGStore) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry %d has an empty ID", i)
		}
		if len(e.Embedding) != s.dims {
			return ErrDimensionMismatch{Expected: s.dims, Got: len(e.Embedding)}
		}
		ids[i] = e.ID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM chunks WHERE id = ANY($1)", ids); err != nil {
		return fmt.Errorf("delete existing chunks: %w", err)
	}

	const insert = `
		INSERT INTO chunks (id, file_id, chunk_index, source, document_text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, e := range entries {
		_, err := tx.Exec(ctx, insert,
			e.ID, e.Metadata.FileID, e.Metadata.ChunkIndex, e.Metadata.Source,
			e.Text, pgvector.NewVector(e.Embedding))
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", e.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// Query implements Store. Filtering happens in SQL, ordering by the cosine
// distance operator.
func (s *PGStore) Query(ctx context.Context, embedding []float32, topK int, filter *Filter) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if len(embedding) != s.dims {
		return nil, ErrDimensionMismatch{Expected: s.dims, Got: len(embedding)}
	}

	query := `
		SELECT id, file_id, chunk_index, source, document_text,
		       embedding <=> $1 AS distance
		FROM chunks`
	args := []any{pgvector.NewVector(embedding)}

	if filter != nil {
		clause, filterArgs := pgFilterClause(*filter, len(args)+1)
		query += clause
		args = append(args, filterArgs...)
	}

	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args)+1)
	args = append(args, topK)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var distance float64
		if err := rows.Scan(&r.ID, &r.Metadata.FileID, &r.Metadata.ChunkIndex,
			&r.Metadata.Source, &r.Text, &distance); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		r.Distance = float32(distance)
		r.Score = distanceToScore(r.Distance, "cos")
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}

	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// DeleteWhere implements Store. An empty filter is refused; use Clear to
// drop the whole collection.
func (s *PGStore) DeleteWhere(ctx context.Context, filter Filter) (int, error) {
	if filter.IsZero() {
		return 0, fmt.Errorf("refusing to delete with an empty filter (use Clear)")
	}

	clause, args := pgFilterClause(filter, 1)
	tag, err := s.pool.Exec(ctx, "DELETE FROM chunks"+clause, args...)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Clear implements Store. TRUNCATE does not report affected rows, so the
// table is counted first.
func (s *PGStore) Clear(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := s.pool.Exec(ctx, "TRUNCATE chunks"); err != nil {
		return 0, fmt.Errorf("truncate chunks: %w", err)
	}
	return n, nil
}

// Count implements Store.
func (s *PGStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// Sample implements Store.
func (s *PGStore) Sample(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, file_id, chunk_index, source, document_text
		FROM chunks ORDER BY file_id, chunk_index LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("sample chunks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Metadata.FileID, &e.Metadata.ChunkIndex,
			&e.Metadata.Source, &e.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Collection implements Store. The table name is fixed; the collection name
// is kept for display.
func (s *PGStore) Collection() string {
	return s.collection
}

// Backend implements Store.
func (s *PGStore) Backend() string {
	return "pgvector"
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// pgFilterClause renders a Filter as a WHERE clause with placeholders
// numbered from startArg. A zero filter renders as an empty clause.
func pgFilterClause(f Filter, startArg int) (string, []any) {
	var clauses []string
	var args []any
	if f.FileID != "" {
		clauses = append(clauses, fmt.Sprintf("file_id = $%d", startArg+len(args)))
		args = append(args, f.FileID)
	}
	if f.Source != "" {
		clauses = append(clauses, fmt.Sprintf("source = $%d", startArg+len(args)))
		args = append(args, f.Source)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
