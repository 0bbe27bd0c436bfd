package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocStore(t *testing.T) *DocStore {
	t.Helper()
	s, err := NewDocStore(filepath.Join(t.TempDir(), "servibot_docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func docRow(fileID string, i int, text string) DocRow {
	return DocRow{
		ID:         fileID + "_" + string(rune('0'+i)),
		FileID:     fileID,
		ChunkIndex: i,
		Source:     fileID + ".txt",
		Text:       text,
		Embedding:  []float32{float32(i), 1, 0, 0},
	}
}

func TestDocStore_PutAndGet(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	rows := []DocRow{docRow("informe", 0, "primer fragmento"), docRow("informe", 1, "segundo fragmento")}
	require.NoError(t, s.Put(ctx, rows))

	got, err := s.Get(ctx, []string{"informe_0", "informe_1", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	r := got["informe_0"]
	assert.Equal(t, "informe", r.FileID)
	assert.Equal(t, 0, r.ChunkIndex)
	assert.Equal(t, "informe.txt", r.Source)
	assert.Equal(t, "primer fragmento", r.Text)
}

func TestDocStore_PutOverwrites(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []DocRow{docRow("doc", 0, "old text")}))

	updated := docRow("doc", 0, "new text")
	require.NoError(t, s.Put(ctx, []DocRow{updated}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := s.Get(ctx, []string{"doc_0"})
	require.NoError(t, err)
	assert.Equal(t, "new text", got["doc_0"].Text)
}

func TestDocStore_IDsMatching(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []DocRow{
		docRow("alpha", 0, "a"),
		docRow("alpha", 1, "b"),
		docRow("beta", 0, "c"),
	}))

	ids, err := s.IDsMatching(ctx, Filter{FileID: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha_0", "alpha_1"}, ids)

	ids, err = s.IDsMatching(ctx, Filter{Source: "beta.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta_0"}, ids)

	ids, err = s.IDsMatching(ctx, Filter{FileID: "alpha", Source: "beta.txt"})
	require.NoError(t, err)
	assert.Empty(t, ids)

	// The zero filter matches every row.
	ids, err = s.IDsMatching(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestDocStore_DeleteIDs(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []DocRow{
		docRow("alpha", 0, "a"),
		docRow("alpha", 1, "b"),
	}))

	n, err := s.DeleteIDs(ctx, []string{"alpha_0", "not-there"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err = s.DeleteIDs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDocStore_DeleteAll(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []DocRow{
		docRow("alpha", 0, "a"),
		docRow("beta", 0, "b"),
		docRow("beta", 1, "c"),
	}))

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	n, err = s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "clearing an empty store is not an error")
}

func TestDocStore_CountFiles(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []DocRow{
		docRow("alpha", 0, "a"),
		docRow("alpha", 1, "b"),
		docRow("beta", 0, "c"),
	}))

	files, err := s.CountFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, files)
}

func TestDocStore_SampleOrder(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []DocRow{
		docRow("beta", 1, "b1"),
		docRow("alpha", 0, "a0"),
		docRow("beta", 0, "b0"),
	}))

	rows, err := s.Sample(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alpha_0", rows[0].ID)
	assert.Equal(t, "beta_0", rows[1].ID)

	rows, err = s.Sample(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDocStore_AllEmbeddings(t *testing.T) {
	s := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []DocRow{
		docRow("alpha", 0, "a"),
		docRow("alpha", 1, "b"),
	}))

	embeddings, err := s.AllEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0, 1, 0, 0}, embeddings["alpha_0"])
	assert.Equal(t, []float32{1, 1, 0, 0}, embeddings["alpha_1"])
}

func TestDocStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servibot_docs.db")
	ctx := context.Background()

	s1, err := NewDocStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, []DocRow{docRow("alpha", 0, "sobrevive al reinicio")}))
	require.NoError(t, s1.Close())

	s2, err := NewDocStore(path)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	got, err := s2.Get(ctx, []string{"alpha_0"})
	require.NoError(t, err)
	assert.Equal(t, "sobrevive al reinicio", got["alpha_0"].Text)

	embeddings, err := s2.AllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0, 0}, embeddings["alpha_0"])
}

func TestDocStore_CorruptFileMovedAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "servibot_docs.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database"), 0644))

	s, err := NewDocStore(path)
	require.NoError(t, err, "a corrupt file must not block opening")
	defer func() { _ = s.Close() }()

	// The corrupt file was quarantined, not destroyed.
	matches, err := filepath.Glob(path + ".corrupt.*")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// And the fresh store works.
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, []DocRow{docRow("alpha", 0, "fresh start")}))
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDocStore_InMemory(t *testing.T) {
	s, err := NewDocStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Equal(t, "", s.Path())

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, []DocRow{docRow("alpha", 0, "ephemeral")}))
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDocStore_ClosedOperationsFail(t *testing.T) {
	s := newTestDocStore(t)
	require.NoError(t, s.Close())

	err := s.Put(context.Background(), []DocRow{docRow("alpha", 0, "x")})
	assert.ErrorContains(t, err, "closed")

	_, err = s.Count(context.Background())
	assert.ErrorContains(t, err, "closed")

	assert.NoError(t, s.Close(), "close is idempotent")
}

func TestEncodeDecodeVector(t *testing.T) {
	v := []float32{0.25, -1.5, 3.75}
	assert.Equal(t, v, decodeVector(encodeVector(v)))

	assert.Nil(t, encodeVector(nil))
	assert.Nil(t, decodeVector(nil))
	assert.Nil(t, decodeVector([]byte{1, 2, 3}), "truncated blobs decode to nil")
}
