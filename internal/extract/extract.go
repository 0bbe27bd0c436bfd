// Package extract converts uploaded documents into plain text.
//
// Dispatch is by file extension: plain text and markdown are read directly
// (UTF-8 with a Windows-1252 fallback), PDFs are parsed with pdfcpu and
// their content streams scraped for text operators, and images are run
// through the tesseract OCR binary when it is installed. Extraction never
// decides whether empty output is an error; that classification belongs to
// the ingestion pipeline.
package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	dxerrors "github.com/servibot/docindex/internal/errors"
)

const (
	// DefaultOCRBinary is the tesseract executable resolved via PATH.
	DefaultOCRBinary = "tesseract"

	// DefaultOCRLanguages is the tesseract language spec. Spanish first
	// because that is what most uploaded support documents are written in.
	DefaultOCRLanguages = "spa+eng"

	// DefaultTimeout bounds a single file extraction.
	DefaultTimeout = 60 * time.Second
)

// Config configures an Extractor.
type Config struct {
	// OCRBinary is the tesseract executable name or path.
	OCRBinary string
	// OCRLanguages is passed to tesseract as -l. If the language data is
	// not installed the extractor retries without it.
	OCRLanguages string
	// Timeout bounds one Extract call end to end.
	Timeout time.Duration
}

// Extractor converts files into plain text.
type Extractor struct {
	ocrBinary string
	ocrLangs  string
	timeout   time.Duration

	// For testing: override command execution
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
	lookPath    func(file string) (string, error)
}

// New creates an Extractor with defaults applied for zero-value fields.
func New(cfg Config) *Extractor {
	if cfg.OCRBinary == "" {
		cfg.OCRBinary = DefaultOCRBinary
	}
	if cfg.OCRLanguages == "" {
		cfg.OCRLanguages = DefaultOCRLanguages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Extractor{
		ocrBinary:   cfg.OCRBinary,
		ocrLangs:    cfg.OCRLanguages,
		timeout:     cfg.Timeout,
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
}

// SupportedExtensions returns the extensions Extract accepts, sorted.
func SupportedExtensions() []string {
	return []string{".bmp", ".jpeg", ".jpg", ".md", ".pdf", ".png", ".tiff", ".txt"}
}

// IsSupported reports whether the file's extension has an extraction path.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".bmp":
		return true
	}
	return false
}

// Extract converts the file at path into plain text. Unsupported extensions
// and password-protected documents fail with permanent, classified errors;
// parse and OCR failures on otherwise readable files yield empty text so the
// caller can report that nothing could be extracted.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		return e.extractPlainText(path)
	case ".pdf":
		return e.extractPDF(ctx, path)
	case ".png", ".jpg", ".jpeg", ".tiff", ".bmp":
		return e.extractImage(ctx, path)
	default:
		return "", dxerrors.New(dxerrors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported format %q", ext), nil)
	}
}

func (e *Extractor) extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", dxerrors.New(dxerrors.ErrCodeFileNotFound, "file not found", err)
		}
		return "", dxerrors.IOError("reading file", err)
	}
	return decodeText(data), nil
}

// decodeText interprets raw file bytes as UTF-8, falling back to
// Windows-1252 for legacy exports. A leading BOM is stripped.
func decodeText(data []byte) string {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return string(data)
	}

	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		r := win1252Rune(c)
		if r == 0 {
			r = rune(c)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// win1252Table maps the 0x80-0x9F range where Windows-1252 diverges from
// Latin-1. Zero marks the five code points 1252 leaves undefined.
var win1252Table = [32]rune{
	0x20AC, 0, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021,
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0, 0x017D, 0,
	0, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014,
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0, 0x017E, 0x0178,
}

// win1252Rune maps a single Windows-1252 byte to its rune. Bytes outside
// the divergent range map as Latin-1. Returns 0 for undefined code points.
func win1252Rune(c byte) rune {
	if c >= 0x80 && c <= 0x9F {
		return win1252Table[c-0x80]
	}
	return rune(c)
}
