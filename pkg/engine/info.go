package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/servibot/docindex/internal/status"
	"github.com/servibot/docindex/internal/store"
	"github.com/servibot/docindex/internal/ui"
)

// StatusInfo gathers engine health for the status command. The embedder
// probe is the only part that can block; ctx bounds it.
func (e *Engine) StatusInfo(ctx context.Context) (ui.StatusInfo, error) {
	info := ui.StatusInfo{
		Collection:    e.store.Collection(),
		StoreBackend:  e.store.Backend(),
		EmbedderModel: e.embedder.ModelName(),
		WatcherStatus: "n/a",
	}

	if e.embedder.Available(ctx) {
		info.EmbedderStatus = "ready"
	} else {
		info.EmbedderStatus = "offline"
	}
	info.EmbedderType = embedderType(e.embedder.ModelName())

	chunks, err := e.store.Count(ctx)
	if err != nil {
		return info, err
	}
	info.TotalChunks = chunks

	for _, rec := range e.status.Snapshot() {
		info.TotalDocuments++
		if rec.Status == status.StateIndexed && rec.UpdatedAt.After(info.LastIndexed) {
			info.LastIndexed = rec.UpdatedAt
		}
	}

	info.UploadsSize = dirSize(e.cfg.UploadsPath())
	info.StatusSize = fileSize(e.cfg.StatusPath())
	info.VectorSize = dirSize(e.cfg.VectorPath())
	info.TelemetrySize = fileSize(e.cfg.TelemetryPath())
	info.TotalSize = info.UploadsSize + info.StatusSize + info.VectorSize + info.TelemetrySize

	return info, nil
}

func embedderType(model string) string {
	switch model {
	case "static", "static768":
		return "static"
	default:
		return "ollama"
	}
}

// ConsistencyReport summarizes a doctor pass over the three durable
// stores.
type ConsistencyReport struct {
	// OrphanFileIDs have vector entries but no status record.
	OrphanFileIDs []string `json:"orphan_file_ids"`
	// MissingFileIDs have an indexed status record but no vector entries.
	MissingFileIDs []string `json:"missing_file_ids"`
	// StrandedUploads are files in the uploads directory with no record.
	StrandedUploads []string `json:"stranded_uploads"`
	// Repaired counts fixes applied when repair was requested.
	Repaired int `json:"repaired"`
}

// Clean reports whether the stores agree.
func (r ConsistencyReport) Clean() bool {
	return len(r.OrphanFileIDs) == 0 && len(r.MissingFileIDs) == 0 && len(r.StrandedUploads) == 0
}

// CheckConsistency cross-checks vector entries, status records, and the
// uploads directory. With repair set, orphaned vectors are deleted,
// missing-index records are marked for reindex, and stranded uploads are
// removed.
func (e *Engine) CheckConsistency(ctx context.Context, repair bool) (ConsistencyReport, error) {
	var report ConsistencyReport

	records := e.status.Snapshot()
	known := make(map[string]status.Record, len(records))
	for _, rec := range records {
		known[rec.FileID] = rec
	}

	// The sample walk is bounded by the store size; doctor is explicitly
	// an offline command.
	count, err := e.store.Count(ctx)
	if err != nil {
		return report, err
	}
	entries, err := e.store.Sample(ctx, count)
	if err != nil {
		return report, err
	}

	indexed := make(map[string]int)
	for _, entry := range entries {
		indexed[entry.Metadata.FileID]++
	}

	for fileID := range indexed {
		if _, ok := known[fileID]; !ok {
			report.OrphanFileIDs = append(report.OrphanFileIDs, fileID)
		}
	}
	for fileID, rec := range known {
		if rec.Status == status.StateIndexed && indexed[fileID] == 0 {
			report.MissingFileIDs = append(report.MissingFileIDs, fileID)
		}
	}

	uploads, err := os.ReadDir(e.cfg.UploadsPath())
	if err != nil && !os.IsNotExist(err) {
		return report, err
	}
	for _, entry := range uploads {
		if entry.IsDir() {
			continue
		}
		fileID := trimExt(entry.Name())
		if _, ok := known[fileID]; !ok {
			report.StrandedUploads = append(report.StrandedUploads, entry.Name())
		}
	}

	if !repair {
		return report, nil
	}

	for _, fileID := range report.OrphanFileIDs {
		if _, err := e.store.DeleteWhere(ctx, store.Filter{FileID: fileID}); err != nil {
			slog.Warn("orphan cleanup failed", "file_id", fileID, "error", err)
			continue
		}
		report.Repaired++
	}
	for _, fileID := range report.MissingFileIDs {
		if err := e.status.Update(fileID, func(r *status.Record) {
			r.Status = status.StateError
			r.Message = "index entries missing; reindex required"
		}); err != nil {
			slog.Warn("missing-index mark failed", "file_id", fileID, "error", err)
			continue
		}
		report.Repaired++
	}
	for _, name := range report.StrandedUploads {
		if err := os.Remove(filepath.Join(e.cfg.UploadsPath(), name)); err != nil {
			slog.Warn("stranded upload not removed", "name", name, "error", err)
			continue
		}
		report.Repaired++
	}

	return report, nil
}

// Compact rebuilds the vector index dropping lazily-deleted entries.
// Returns the number of entries dropped, or an error when the active
// backend has nothing to compact.
func (e *Engine) Compact(ctx context.Context) (int, error) {
	compacter, ok := e.store.(interface {
		Compact(ctx context.Context) (int, error)
	})
	if !ok {
		return 0, fmt.Errorf("backend %q does not support compaction", e.store.Backend())
	}
	return compacter.Compact(ctx)
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// trimExt strips the extension from an uploads filename,
// recovering the file id.
func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
