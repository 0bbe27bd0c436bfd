package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servibot/docindex/internal/config"
	dxerrors "github.com/servibot/docindex/internal/errors"
	"github.com/servibot/docindex/internal/status"
)

const sampleText = `Service agreements define the obligations of both parties.
The provider commits to a monthly uptime target of 99.9 percent,
measured across all production regions.

Billing disputes must be raised within thirty days of the invoice
date. After that window the invoice is considered accepted and the
amounts are due in full.

Either party may terminate with ninety days written notice. Data
export assistance is provided during the notice period at no
additional charge.`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := testConfig(t)
	e, err := New(context.Background(), cfg, Options{
		DisableRetryWorker: true,
		DisableTelemetry:   true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Close(ctx)
	})
	return e
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.Backend = "memory"
	cfg.Embeddings.Provider = "static"
	cfg.Ingest.Workers = 2
	return cfg
}

func writeUploadSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func waitIndexed(t *testing.T, e *Engine, fileID string) status.Record {
	t.Helper()
	var rec status.Record
	require.Eventually(t, func() bool {
		r, err := e.Status(fileID)
		if err != nil {
			return false
		}
		rec = r
		return r.Status == status.StateIndexed || r.Status == status.StateError
	}, 10*time.Second, 20*time.Millisecond)
	require.Equal(t, status.StateIndexed, rec.Status, "message: %s", rec.Message)
	return rec
}

func TestEngine_SubmitUpload_IndexesDocument(t *testing.T) {
	// Given: a running engine and a text document
	e := newTestEngine(t)
	src := writeUploadSource(t, "agreement.txt", sampleText)

	// When: the document is uploaded
	doc, err := e.SubmitUpload(context.Background(), src, "agreement.txt")
	require.NoError(t, err)
	require.NotEmpty(t, doc.FileID)
	assert.FileExists(t, doc.Path)

	// Then: it reaches indexed with stored chunks
	rec := waitIndexed(t, e, doc.FileID)
	assert.Equal(t, "agreement.txt", rec.OriginalName)
	assert.Greater(t, rec.IndexedCount, 0)

	count, err := e.Store().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rec.IndexedCount, count)
}

func TestEngine_SubmitUpload_RejectsUnsupportedExtension(t *testing.T) {
	// Given: a file outside the extension allowlist
	e := newTestEngine(t)
	src := writeUploadSource(t, "archive.zip", "binary")

	// When: it is uploaded
	_, err := e.SubmitUpload(context.Background(), src, "archive.zip")

	// Then: the upload is rejected before anything is stored
	var engineErr *dxerrors.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, dxerrors.ErrCodeUnsupportedFormat, engineErr.Code)
	assert.Empty(t, e.ListStatuses())
}

func TestEngine_Status_UnknownID(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Status("no-such-id")

	var engineErr *dxerrors.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, dxerrors.ErrCodeFileNotFound, engineErr.Code)
}

func TestEngine_Search_FindsIndexedContent(t *testing.T) {
	// Given: an indexed document
	e := newTestEngine(t)
	src := writeUploadSource(t, "agreement.txt", sampleText)
	doc, err := e.SubmitUpload(context.Background(), src, "agreement.txt")
	require.NoError(t, err)
	waitIndexed(t, e, doc.FileID)

	// When: searching
	results, err := e.Search(context.Background(), "billing disputes", 5, "")
	require.NoError(t, err)

	// Then: results come back sorted and attributed to the document
	require.NotEmpty(t, results)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
	for _, r := range results {
		assert.Equal(t, doc.FileID, r.Metadata.FileID)
	}
}

func TestEngine_Search_FileIDFilter(t *testing.T) {
	// Given: two indexed documents
	e := newTestEngine(t)
	docA, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "a.txt", sampleText), "a.txt")
	require.NoError(t, err)
	docB, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "b.txt", "An unrelated note about office plants and watering schedules for the winter months."), "b.txt")
	require.NoError(t, err)
	waitIndexed(t, e, docA.FileID)
	waitIndexed(t, e, docB.FileID)

	// When: searching restricted to one document
	results, err := e.Search(context.Background(), "uptime", 10, docA.FileID)
	require.NoError(t, err)

	// Then: nothing from the other document leaks in
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, docA.FileID, r.Metadata.FileID)
	}
}

func TestEngine_ContextForQuery(t *testing.T) {
	// Given: an indexed document
	e := newTestEngine(t)
	doc, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "agreement.txt", sampleText), "agreement.txt")
	require.NoError(t, err)
	waitIndexed(t, e, doc.FileID)

	// When: building a context block
	block, err := e.ContextForQuery(context.Background(), "termination notice", 5, 0)
	require.NoError(t, err)

	// Then: the block is non-empty and names its source
	assert.NotEmpty(t, block)
	assert.Contains(t, block, "agreement.txt")
}

func TestEngine_Reindex_NoDuplicateEntries(t *testing.T) {
	// Given: an indexed document
	e := newTestEngine(t)
	doc, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "agreement.txt", sampleText), "agreement.txt")
	require.NoError(t, err)
	first := waitIndexed(t, e, doc.FileID)

	// When: reindexing
	submitted, err := e.Reindex(context.Background(), doc.FileID)
	require.NoError(t, err)
	require.True(t, submitted)

	require.Eventually(t, func() bool {
		if len(e.InFlight()) != 0 {
			return false
		}
		rec, err := e.Status(doc.FileID)
		return err == nil && rec.Status == status.StateIndexed
	}, 10*time.Second, 20*time.Millisecond)

	// Then: the entry count is unchanged
	count, err := e.Store().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.IndexedCount, count)
}

func TestEngine_Delete_RemovesEntriesStatusAndUpload(t *testing.T) {
	// Given: an indexed document
	e := newTestEngine(t)
	doc, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "agreement.txt", sampleText), "agreement.txt")
	require.NoError(t, err)
	rec := waitIndexed(t, e, doc.FileID)

	// When: deleting it
	deleted, err := e.Delete(context.Background(), doc.FileID)
	require.NoError(t, err)

	// Then: entries, status, and the stored file are all gone
	assert.Equal(t, rec.IndexedCount, deleted)
	_, err = e.Status(doc.FileID)
	assert.Error(t, err)
	assert.NoFileExists(t, doc.Path)

	count, err := e.Store().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEngine_ClearAll(t *testing.T) {
	// Given: two indexed documents
	e := newTestEngine(t)
	docA, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "a.txt", sampleText), "a.txt")
	require.NoError(t, err)
	docB, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "b.md", sampleText), "b.md")
	require.NoError(t, err)
	waitIndexed(t, e, docA.FileID)
	waitIndexed(t, e, docB.FileID)

	// When: clearing everything
	result, err := e.ClearAll(context.Background())
	require.NoError(t, err)

	// Then: uploads, vectors, and statuses are empty
	assert.Equal(t, 2, result.FilesDeleted)
	assert.Greater(t, result.VectorsCleared, 0)
	assert.Empty(t, e.ListStatuses())

	count, err := e.Store().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEngine_ListStatuses_SortedByUpdate(t *testing.T) {
	// Given: two documents indexed in sequence
	e := newTestEngine(t)
	docA, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "a.txt", sampleText), "a.txt")
	require.NoError(t, err)
	waitIndexed(t, e, docA.FileID)
	docB, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "b.txt", sampleText), "b.txt")
	require.NoError(t, err)
	waitIndexed(t, e, docB.FileID)

	// When: listing
	records := e.ListStatuses()

	// Then: most recently updated first
	require.Len(t, records, 2)
	assert.False(t, records[0].UpdatedAt.Before(records[1].UpdatedAt))
}

func TestEngine_Collections(t *testing.T) {
	// Given: an indexed document
	e := newTestEngine(t)
	doc, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "agreement.txt", sampleText), "agreement.txt")
	require.NoError(t, err)
	rec := waitIndexed(t, e, doc.FileID)

	// When: introspecting collections
	infos, err := e.Collections(context.Background())
	require.NoError(t, err)

	// Then: the collection reports its count and bounded samples
	require.Len(t, infos, 1)
	info := infos[0]
	assert.Equal(t, "servibot_docs", info.Name)
	assert.Equal(t, rec.IndexedCount, info.Count)
	assert.NotEmpty(t, info.Samples)
	assert.LessOrEqual(t, len(info.Samples), 5)
	for _, sample := range info.Samples {
		assert.LessOrEqual(t, len([]rune(sample.Preview)), 303)
	}
}

func TestEngine_IndexDir(t *testing.T) {
	// Given: a drop directory with mixed content
	e := newTestEngine(t)
	dropDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dropDir, "one.txt"), []byte(sampleText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dropDir, "two.md"), []byte(sampleText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dropDir, "skip.bin"), []byte("x"), 0o644))

	// When: indexing the directory
	submitted, err := e.IndexDir(context.Background(), dropDir)
	require.NoError(t, err)

	// Then: only admissible files are uploaded
	assert.Equal(t, 2, submitted)
	require.Eventually(t, func() bool {
		for _, rec := range e.ListStatuses() {
			if rec.Status != status.StateIndexed {
				return false
			}
		}
		return len(e.ListStatuses()) == 2
	}, 10*time.Second, 20*time.Millisecond)
}

func TestEngine_StatusInfo(t *testing.T) {
	// Given: an indexed document
	e := newTestEngine(t)
	doc, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "agreement.txt", sampleText), "agreement.txt")
	require.NoError(t, err)
	rec := waitIndexed(t, e, doc.FileID)

	// When: gathering status info
	info, err := e.StatusInfo(context.Background())
	require.NoError(t, err)

	// Then: counts and component health are populated
	assert.Equal(t, "servibot_docs", info.Collection)
	assert.Equal(t, 1, info.TotalDocuments)
	assert.Equal(t, rec.IndexedCount, info.TotalChunks)
	assert.Equal(t, "memory", info.StoreBackend)
	assert.Equal(t, "static", info.EmbedderType)
	assert.Equal(t, "ready", info.EmbedderStatus)
	assert.False(t, info.LastIndexed.IsZero())
	assert.Greater(t, info.UploadsSize, int64(0))
}

func TestEngine_CheckConsistency_CleanAfterIndex(t *testing.T) {
	// Given: an indexed document
	e := newTestEngine(t)
	doc, err := e.SubmitUpload(context.Background(),
		writeUploadSource(t, "agreement.txt", sampleText), "agreement.txt")
	require.NoError(t, err)
	waitIndexed(t, e, doc.FileID)

	// When: running a doctor pass
	report, err := e.CheckConsistency(context.Background(), false)
	require.NoError(t, err)

	// Then: the stores agree
	assert.True(t, report.Clean())
}

func TestEngine_CheckConsistency_RepairsStrandedUpload(t *testing.T) {
	// Given: a file in the uploads directory with no status record
	e := newTestEngine(t)
	stray := filepath.Join(e.Config().UploadsPath(), "deadbeef.txt")
	require.NoError(t, os.WriteFile(stray, []byte("stray"), 0o644))

	// When: running doctor with repair
	report, err := e.CheckConsistency(context.Background(), true)
	require.NoError(t, err)

	// Then: the stray file is reported and removed
	assert.Equal(t, []string{"deadbeef.txt"}, report.StrandedUploads)
	assert.Equal(t, 1, report.Repaired)
	assert.NoFileExists(t, stray)
}
