// Package status persists per-file indexing state.
//
// All records live in one JSON document keyed by file_id, loaded once at
// Open and rewritten atomically (temp file + rename) after every mutation.
// A single store-wide mutex serializes read-modify-write sequences so the
// retry worker and interactive requests cannot lose updates to the same
// record; a gofrs/flock lock on the data directory keeps a second process
// away from the single-writer file entirely.
package status

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// State is the lifecycle state of one indexed file.
type State string

const (
	// StateUploaded marks a file stored on disk, pending indexing.
	StateUploaded State = "uploaded"
	// StateIndexing marks an ingestion attempt in progress.
	StateIndexing State = "indexing"
	// StateRetrying marks a file picked up by the retry worker.
	StateRetrying State = "retrying"
	// StateIndexed marks a successfully indexed file.
	StateIndexed State = "indexed"
	// StateError marks a failed ingestion attempt.
	StateError State = "error"
)

// lockFileName is created next to the status file to fence other processes.
const lockFileName = ".docindex.lock"

// Record tracks one file through the ingestion lifecycle.
type Record struct {
	// FileID is the map key; restored on load, never serialized twice.
	FileID string `json:"-"`

	// OriginalName is the filename as uploaded, before the file_id rename.
	OriginalName string `json:"original_name,omitempty"`
	Status       State  `json:"status"`
	Message      string `json:"message"`
	Attempts     int    `json:"attempts"`
	// IndexedCount is the number of chunks stored on the last success.
	IndexedCount int `json:"indexed_count,omitempty"`
	// Debug carries the raw failure behind the truncated Message.
	Debug     string    `json:"debug,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistent status map. Safe for concurrent use.
type Store struct {
	path string
	lock *flock.Flock

	mu      sync.Mutex
	records map[string]*Record
}

// Open loads the status file at path, creating its directory as needed.
// A held directory lock means another docindex process owns this data dir.
// A corrupt status file is moved aside and replaced with an empty map.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dirLock := flock.New(filepath.Join(dir, lockFileName))
	acquired, err := dirLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire data directory lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("data directory %s is locked by another process", dir)
	}

	s := &Store{
		path:    path,
		lock:    dirLock,
		records: make(map[string]*Record),
	}

	if err := s.load(); err != nil {
		_ = dirLock.Unlock()
		return nil, err
	}
	return s, nil
}

// load reads the JSON document, quarantining it when unparseable.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read status file: %w", err)
	}

	var records map[string]*Record
	if err := json.Unmarshal(data, &records); err != nil {
		quarantine := s.path + ".corrupt." + time.Now().Format("20060102-150405")
		if renameErr := os.Rename(s.path, quarantine); renameErr != nil {
			return fmt.Errorf("failed to quarantine corrupt status file: %w", renameErr)
		}
		slog.Warn("status_file_corrupt",
			slog.String("path", s.path),
			slog.String("moved_to", quarantine),
			slog.String("error", err.Error()))
		return nil
	}

	for fileID, rec := range records {
		if rec == nil {
			continue
		}
		rec.FileID = fileID
		s.records[fileID] = rec
	}
	return nil
}

// persist rewrites the status file. Callers must hold s.mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status map: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save status file: %w", err)
	}
	return nil
}

// Close releases the data directory lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release data directory lock: %w", err)
	}
	s.lock = nil
	return nil
}

// Path returns the status file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the record for fileID.
func (s *Store) Get(fileID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[fileID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Set stores rec under fileID, stamping zero timestamps.
func (s *Store) Set(fileID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec.FileID = fileID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	s.records[fileID] = &rec
	return s.persist()
}

// Update applies fn to the record for fileID under the store mutex,
// creating the record first if it does not exist. The whole
// read-modify-write runs as one critical section, so concurrent updates
// to the same file cannot drop each other's changes.
func (s *Store) Update(fileID string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[fileID]
	if !ok {
		rec = &Record{
			FileID:    fileID,
			CreatedAt: time.Now().UTC(),
		}
		s.records[fileID] = rec
	}

	fn(rec)
	rec.FileID = fileID
	rec.UpdatedAt = time.Now().UTC()
	return s.persist()
}

// Delete removes the record for fileID. Removing a missing record is a
// no-op that still succeeds.
func (s *Store) Delete(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[fileID]; !ok {
		return nil
	}
	delete(s.records, fileID)
	return s.persist()
}

// Clear removes every record.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*Record)
	return s.persist()
}

// Len returns the number of tracked files.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Snapshot returns copies of all records, most recently updated first.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].FileID < out[j].FileID
	})
	return out
}
