package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dxerrors "github.com/servibot/docindex/internal/errors"
)

// Validator gates files before they enter the pipeline: extension
// allowlist and size cap, shared between upload intake and the CLI.
type Validator struct {
	// MaxSize is the upload size cap in bytes. Zero disables the check.
	MaxSize int64
	// AllowedExtensions is the dot-prefixed allowlist. Empty allows
	// every extension the extractor supports.
	AllowedExtensions []string
}

// CheckName validates a filename's extension against the allowlist.
func (v Validator) CheckName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return dxerrors.New(dxerrors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported format: %q has no extension", filepath.Base(name)), nil)
	}
	if len(v.AllowedExtensions) == 0 {
		return nil
	}
	for _, allowed := range v.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return nil
		}
	}
	return dxerrors.New(dxerrors.ErrCodeUnsupportedFormat,
		fmt.Sprintf("unsupported format %q", ext), nil).
		WithSuggestion("allowed extensions: " + strings.Join(v.AllowedExtensions, ", "))
}

// CheckFile validates a file on disk: extension, existence, and size cap.
func (v Validator) CheckFile(path string) error {
	if err := v.CheckName(path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dxerrors.New(dxerrors.ErrCodeFileNotFound, "file not found", err)
		}
		return dxerrors.IOError("cannot stat file", err)
	}
	if info.IsDir() {
		return dxerrors.New(dxerrors.ErrCodeInvalidPath,
			fmt.Sprintf("%s is a directory", path), nil)
	}
	if v.MaxSize > 0 && info.Size() > v.MaxSize {
		return dxerrors.New(dxerrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte upload limit", v.MaxSize), nil)
	}
	return nil
}
