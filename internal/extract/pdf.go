package extract

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	dxerrors "github.com/servibot/docindex/internal/errors"
)

// extractPDF reads the document, scrapes each page's content stream and
// joins non-empty pages with blank lines. Encrypted documents fail with a
// permanent classified error; other parse failures log and yield empty
// text, mirroring how unreadable uploads have always been reported.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		if isEncryptionError(err) {
			return "", dxerrors.New(dxerrors.ErrCodeProtectedDocument,
				"password-protected document", err)
		}
		slog.Warn("pdf_parse_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return "", nil
	}

	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil || r == nil {
			slog.Debug("pdf_page_skipped",
				slog.String("path", path),
				slog.Int("page", pageNr))
			continue
		}

		raw, err := io.ReadAll(r)
		if err != nil {
			continue
		}

		if text := contentText(raw); text != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// isEncryptionError matches pdfcpu's password and encryption failures.
// pdfcpu reports these as plain errors, so the match is on message text.
func isEncryptionError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "password") || strings.Contains(s, "encrypt")
}
