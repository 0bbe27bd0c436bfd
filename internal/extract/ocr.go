package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ocrStderrLimit caps how much tesseract stderr ends up in logs.
const ocrStderrLimit = 400

// extractImage runs the OCR binary against the image, writing recognized
// text to stdout. A missing binary or a failed recognition yields empty
// text rather than an error: the pipeline reports both as nothing
// extractable, which is exactly what they are. Only a timeout is surfaced,
// so the attempt can be retried.
func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	binPath, err := e.lookPath(e.ocrBinary)
	if err != nil {
		slog.Warn("ocr_unavailable",
			slog.String("binary", e.ocrBinary),
			slog.String("error", err.Error()))
		return "", nil
	}

	text, err := e.runOCR(ctx, binPath, path, e.ocrLangs)
	if err != nil && isLanguageError(err) && e.ocrLangs != "" {
		// The configured traineddata is not installed; tesseract's own
		// default language usually is.
		slog.Warn("ocr_language_missing",
			slog.String("languages", e.ocrLangs),
			slog.String("error", err.Error()))
		text, err = e.runOCR(ctx, binPath, path, "")
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ocr timed out: %w", ctx.Err())
		}
		slog.Error("ocr_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return "", nil
	}

	return text, nil
}

// runOCR invokes tesseract once: `tesseract <image> stdout [-l langs]`.
func (e *Extractor) runOCR(ctx context.Context, binPath, imagePath, langs string) (string, error) {
	args := []string{imagePath, "stdout"}
	if langs != "" {
		args = append(args, "-l", langs)
	}

	var stdout, stderr bytes.Buffer
	cmd := e.execCommand(ctx, binPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > ocrStderrLimit {
			msg = msg[:ocrStderrLimit]
		}
		if msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}

	return stdout.String(), nil
}

// isLanguageError matches tesseract's complaint about missing traineddata.
func isLanguageError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "failed loading language") ||
		strings.Contains(s, "tessdata")
}

// OCRAvailable reports whether the OCR binary resolves, and to what path.
func (e *Extractor) OCRAvailable() (string, bool) {
	path, err := e.lookPath(e.ocrBinary)
	if err != nil {
		return "", false
	}
	return path, true
}

// OCRVersion probes `tesseract --version` and returns the first line.
func (e *Extractor) OCRVersion(ctx context.Context) (string, error) {
	binPath, err := e.lookPath(e.ocrBinary)
	if err != nil {
		return "", fmt.Errorf("ocr binary %q not found: %w", e.ocrBinary, err)
	}

	var stdout bytes.Buffer
	cmd := e.execCommand(ctx, binPath, "--version")
	cmd.Stdout = &stdout
	cmd.Stderr = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ocr version probe: %w", err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(stdout.String()), "\n")
	return strings.TrimSpace(line), nil
}
