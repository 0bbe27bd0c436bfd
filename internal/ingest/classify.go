package ingest

import "strings"

// permanentErrorSubstrings classifies stored failure messages whose cause
// will not resolve on retry. The retry worker skips these forever; only a
// manual reindex clears them.
var permanentErrorSubstrings = []string{
	"file is empty",
	"no text could be extracted",
	"password-protected",
	"unsupported format",
	"file not found",
}

// IsPermanentMessage reports whether a status message describes a permanent
// ingestion failure. Matching is case-insensitive substring matching because
// messages are truncated free text, not codes.
func IsPermanentMessage(message string) bool {
	m := strings.ToLower(message)
	for _, s := range permanentErrorSubstrings {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}
