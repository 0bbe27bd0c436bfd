package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	dxerrors "github.com/servibot/docindex/internal/errors"
	"github.com/servibot/docindex/internal/status"
	"github.com/servibot/docindex/internal/store"
	"github.com/servibot/docindex/internal/watcher"
)

// Document identifies a stored upload.
type Document struct {
	FileID       string `json:"file_id"`
	Path         string `json:"path"`
	OriginalName string `json:"original_filename"`
}

// ClearResult reports what ClearAll removed.
type ClearResult struct {
	FilesDeleted   int `json:"files_deleted"`
	VectorsCleared int `json:"vectors_cleared"`
}

// SubmitUpload validates sourcePath, copies it into the uploads directory
// under a fresh file id, records the uploaded status, and enqueues
// indexing. The returned Document carries the id used for every later
// operation on this file.
func (e *Engine) SubmitUpload(ctx context.Context, sourcePath, originalName string) (Document, error) {
	if originalName == "" {
		originalName = filepath.Base(sourcePath)
	}

	v := e.validator()
	if err := v.CheckName(originalName); err != nil {
		return Document{}, err
	}
	if err := v.CheckFile(sourcePath); err != nil {
		return Document{}, err
	}

	fileID := uuid.NewString()
	destPath := filepath.Join(e.cfg.UploadsPath(), fileID+filepath.Ext(originalName))

	if err := copyFile(sourcePath, destPath); err != nil {
		return Document{}, dxerrors.IOError("failed to store upload", err)
	}

	if err := e.status.Set(fileID, status.Record{
		OriginalName: originalName,
		Status:       status.StateUploaded,
	}); err != nil {
		_ = os.Remove(destPath)
		return Document{}, fmt.Errorf("record upload: %w", err)
	}

	e.service.Submit(destPath, fileID)

	slog.Info("upload_accepted",
		"file_id", fileID,
		"name", originalName)

	return Document{FileID: fileID, Path: destPath, OriginalName: originalName}, nil
}

// SubmitForIndexing enqueues an already-stored file for indexing.
// Fire-and-forget: progress is observable through Status.
func (e *Engine) SubmitForIndexing(ctx context.Context, path, fileID string) {
	e.service.Submit(path, fileID)
}

// InFlight reports the file ids currently being indexed.
func (e *Engine) InFlight() []string {
	return e.service.InFlight()
}

// Status returns the indexing record for fileID.
func (e *Engine) Status(fileID string) (status.Record, error) {
	rec, ok := e.status.Get(fileID)
	if !ok {
		return status.Record{}, dxerrors.New(dxerrors.ErrCodeFileNotFound,
			fmt.Sprintf("no document with id %q", fileID), nil)
	}
	return rec, nil
}

// ListStatuses returns every indexing record, most recently updated first.
func (e *Engine) ListStatuses() []status.Record {
	records := e.status.Snapshot()
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records
}

// Reindex resets the retry budget for fileID and re-runs the pipeline,
// regardless of how the previous attempt failed. Returns false if the
// file is already being indexed.
func (e *Engine) Reindex(ctx context.Context, fileID string) (bool, error) {
	rec, ok := e.status.Get(fileID)
	if !ok {
		return false, dxerrors.New(dxerrors.ErrCodeFileNotFound,
			fmt.Sprintf("no document with id %q", fileID), nil)
	}

	path, err := e.resolveUploadPath(rec)
	if err != nil {
		return false, dxerrors.New(dxerrors.ErrCodeFileNotFound,
			"stored upload file is missing", err)
	}

	if err := e.status.Update(fileID, func(r *status.Record) {
		r.Attempts = 0
		r.Message = ""
	}); err != nil {
		return false, err
	}

	submitted := e.service.Submit(path, fileID)
	if !submitted {
		slog.Debug("reindex coalesced with in-flight run", "file_id", fileID)
	}
	return submitted, nil
}

// Delete removes every index entry for fileID, its status record, and
// the stored upload file. It returns the number of vector entries
// removed.
func (e *Engine) Delete(ctx context.Context, fileID string) (int, error) {
	rec, ok := e.status.Get(fileID)
	if !ok {
		return 0, dxerrors.New(dxerrors.ErrCodeFileNotFound,
			fmt.Sprintf("no document with id %q", fileID), nil)
	}

	deleted, err := e.store.DeleteWhere(ctx, store.Filter{FileID: fileID})
	if err != nil {
		return 0, dxerrors.StoreError("failed to delete index entries", err)
	}

	if err := e.status.Delete(fileID); err != nil {
		return deleted, fmt.Errorf("delete status record: %w", err)
	}

	if path, perr := e.resolveUploadPath(rec); perr == nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("upload file not removed", "file_id", fileID, "error", rmErr)
		}
	}

	slog.Info("document_deleted", "file_id", fileID, "entries", deleted)
	return deleted, nil
}

// ClearAll removes all uploads, all vector entries, and all status
// records.
func (e *Engine) ClearAll(ctx context.Context) (ClearResult, error) {
	var result ClearResult

	cleared, err := e.store.Clear(ctx)
	if err != nil {
		return result, dxerrors.StoreError("failed to clear vector store", err)
	}
	result.VectorsCleared = cleared

	entries, err := os.ReadDir(e.cfg.UploadsPath())
	if err != nil && !os.IsNotExist(err) {
		return result, dxerrors.IOError("failed to list uploads", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(e.cfg.UploadsPath(), entry.Name())); err != nil {
			slog.Warn("upload file not removed", "name", entry.Name(), "error", err)
			continue
		}
		result.FilesDeleted++
	}

	if err := e.status.Clear(); err != nil {
		return result, fmt.Errorf("clear status store: %w", err)
	}

	slog.Info("store_cleared",
		"files_deleted", result.FilesDeleted,
		"vectors_cleared", result.VectorsCleared)
	return result, nil
}

// IndexDir walks root and uploads every admissible file. Returns the
// number of files submitted.
func (e *Engine) IndexDir(ctx context.Context, root string) (int, error) {
	return e.intake.IndexDir(ctx, root)
}

// Watch blocks watching root for new or changed files, uploading each
// one, until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, root string) error {
	return e.intake.Watch(ctx, root, watcher.Options{
		DebounceWindow: e.cfg.WatchDebounceDuration(),
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
