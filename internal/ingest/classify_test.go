package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPermanentMessage(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		permanent bool
	}{
		{"empty file", "file is empty", true},
		{"no text", "no text could be extracted", true},
		{"protected", "password-protected document", true},
		{"unsupported", `unsupported format ".exe"`, true},
		{"missing", "file not found", true},
		{"case insensitive", "File Is Empty", true},
		{"embedded in sentence", "indexing failed: no text could be extracted from scan", true},
		{"timeout is transient", "embedding timed out after 1m0s", false},
		{"store failure is transient", "failed to add index entries", false},
		{"no chunks is transient", "no chunks created from extracted text", false},
		{"empty message", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.permanent, IsPermanentMessage(tt.message))
		})
	}
}
