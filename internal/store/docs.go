package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// DocRow is one chunk as persisted in the SQLite document store.
type DocRow struct {
	ID         string
	FileID     string
	ChunkIndex int
	Source     string
	Text       string
	Embedding  []float32
}

// Metadata converts the row's metadata columns to the gateway shape.
func (r DocRow) Metadata() Metadata {
	return Metadata{
		FileID:     r.FileID,
		ChunkIndex: r.ChunkIndex,
		Source:     r.Source,
	}
}

// DocStore persists chunk text, metadata, and raw embeddings in SQLite
// (modernc.org/sqlite, pure Go). It is the durable half of the local
// backend: the HNSW graph can always be rebuilt from these rows.
type DocStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// validateDocDBIntegrity checks a document database before opening it.
// Returns nil if the file is absent or healthy.
func validateDocDBIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name='documents'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}

	return nil
}

// NewDocStore opens (or creates) the document database at path. An empty
// path opens an in-memory database for the ephemeral backend. A corrupt
// file is moved aside with a .corrupt suffix and replaced with a fresh one.
func NewDocStore(path string) (*DocStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}

		if validErr := validateDocDBIntegrity(path); validErr != nil {
			slog.Warn("document_db_corrupt",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			quarantine := path + ".corrupt." + time.Now().Format("20060102-150405")
			if renameErr := os.Rename(path, quarantine); renameErr != nil && !os.IsNotExist(renameErr) {
				return nil, fmt.Errorf("document db corrupted at %s and cannot move aside: %w (original error: %v)", path, renameErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("document_db_recreated",
				slog.String("path", path),
				slog.String("moved_to", quarantine))
		}

		// WAL mode for concurrent readers; _busy_timeout handles lock
		// contention gracefully.
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer keeps SQLite lock contention out of the picture.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite, so set the pragmas
	// explicitly as well.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &DocStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *DocStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		id            TEXT PRIMARY KEY,
		file_id       TEXT NOT NULL,
		chunk_index   INTEGER NOT NULL,
		source        TEXT NOT NULL,
		document_text TEXT NOT NULL,
		embedding     BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_documents_file_id ON documents(file_id);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database path, empty for in-memory stores.
func (s *DocStore) Path() string {
	return s.path
}

// Put upserts rows in one transaction.
func (s *DocStore) Put(ctx context.Context, rows []DocRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("document store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO documents (id, file_id, chunk_index, source, document_text, embedding)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.FileID, row.ChunkIndex, row.Source, row.Text, encodeVector(row.Embedding)); err != nil {
			return fmt.Errorf("insert document %s: %w", row.ID, err)
		}
	}

	return tx.Commit()
}

// Get returns the rows for the given IDs, keyed by ID. Missing IDs are
// simply absent from the map. Embeddings are not loaded.
func (s *DocStore) Get(ctx context.Context, ids []string) (map[string]DocRow, error) {
	if len(ids) == 0 {
		return map[string]DocRow{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, file_id, chunk_index, source, document_text
		FROM documents WHERE id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	out := make(map[string]DocRow, len(ids))
	for rows.Next() {
		var r DocRow
		if err := rows.Scan(&r.ID, &r.FileID, &r.ChunkIndex, &r.Source, &r.Text); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out[r.ID] = r
	}

	return out, rows.Err()
}

// IDsMatching returns the IDs of rows whose metadata satisfies the filter.
// A zero filter matches every row.
func (s *DocStore) IDsMatching(ctx context.Context, f Filter) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	query := `SELECT id FROM documents`
	var clauses []string
	var args []any
	if f.FileID != "" {
		clauses = append(clauses, "file_id = ?")
		args = append(args, f.FileID)
	}
	if f.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, f.Source)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DeleteIDs removes rows by ID and returns how many existed.
func (s *DocStore) DeleteIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("document store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM documents WHERE id IN (%s)", strings.Join(placeholders, ","))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted documents: %w", err)
	}
	return int(n), nil
}

// DeleteAll removes every row and returns how many existed.
func (s *DocStore) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("document store is closed")
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM documents")
	if err != nil {
		return 0, fmt.Errorf("clear documents: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared documents: %w", err)
	}
	return int(n), nil
}

// Count returns the number of stored rows.
func (s *DocStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("document store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// CountFiles returns the number of distinct file IDs.
func (s *DocStore) CountFiles(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("document store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT file_id) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}

// Sample returns up to n rows in document order. Embeddings are not loaded.
func (s *DocStore) Sample(ctx context.Context, n int) ([]DocRow, error) {
	if n <= 0 {
		return []DocRow{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, chunk_index, source, document_text
		FROM documents ORDER BY file_id, chunk_index LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("sample documents: %w", err)
	}
	defer rows.Close()

	var out []DocRow
	for rows.Next() {
		var r DocRow
		if err := rows.Scan(&r.ID, &r.FileID, &r.ChunkIndex, &r.Source, &r.Text); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// AllIDs returns every row ID in lexical order. Used for reconciling the
// document store with the vector index.
func (s *DocStore) AllIDs(ctx context.Context) ([]string, error) {
	return s.IDsMatching(ctx, Filter{})
}

// AllEmbeddings returns the stored embedding for every row that has one,
// keyed by ID. Rows persisted without an embedding are skipped.
func (s *DocStore) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, embedding FROM documents WHERE embedding IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		if vec := decodeVector(blob); vec != nil {
			out[id] = vec
		}
	}

	return out, rows.Err()
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *DocStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// encodeVector packs a vector as little-endian float32s, 4 bytes each.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. Malformed blobs decode to nil.
func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}
