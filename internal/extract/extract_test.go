package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dxerrors "github.com/servibot/docindex/internal/errors"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtract_PlainTextUTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notas.txt", []byte("Configuración del módulo.\nSegunda línea.\n"))

	e := New(Config{})
	got, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Configuración del módulo.\nSegunda línea.\n", got)
}

func TestExtract_StripsUTF8BOM(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bom.txt", []byte("\xEF\xBB\xBFHola"))

	e := New(Config{})
	got, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hola", got)
}

func TestExtract_Windows1252Fallback(t *testing.T) {
	// A legacy export: e-acute and curly quotes in cp1252 bytes.
	path := writeFile(t, t.TempDir(), "legacy.txt", []byte("Caf\xe9 \x93quoted\x94"))

	e := New(Config{})
	got, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Café “quoted”", got)
}

func TestExtract_Markdown(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", []byte("# Título\n\nCuerpo del documento."))

	e := New(Config{})
	got, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, got, "Cuerpo del documento.")
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := New(Config{})
	_, err := e.Extract(context.Background(), "/tmp/report.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.Equal(t, dxerrors.ErrCodeUnsupportedFormat, dxerrors.GetCode(err))
}

func TestExtract_MissingTextFile(t *testing.T) {
	e := New(Config{})
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
	assert.Equal(t, dxerrors.ErrCodeFileNotFound, dxerrors.GetCode(err))
}

func TestExtract_CorruptPDFYieldsEmptyText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", []byte("this is not a pdf"))

	e := New(Config{})
	got, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIsEncryptionError(t *testing.T) {
	assert.True(t, isEncryptionError(errors.New("pdfcpu: please provide the correct password")))
	assert.True(t, isEncryptionError(errors.New("pdfcpu: unknown encryption")))
	assert.False(t, isEncryptionError(errors.New("unexpected EOF")))
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"manual.pdf", true},
		{"scan.PNG", true},
		{"photo.jpeg", true},
		{"notes.md", true},
		{"readme.txt", true},
		{"legacy.tiff", true},
		{"archive.zip", false},
		{"report.docx", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSupported(tt.path), tt.path)
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	assert.Contains(t, exts, ".pdf")
	assert.Contains(t, exts, ".md")
	for _, ext := range exts {
		assert.True(t, IsSupported("file"+ext), ext)
	}
}

func TestDecodeText_ValidUTF8Unchanged(t *testing.T) {
	in := "año nuevo — résumé"
	assert.Equal(t, in, decodeText([]byte(in)))
}
