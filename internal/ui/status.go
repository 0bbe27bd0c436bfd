package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/servibot/docindex/internal/status"
)

// StatusInfo contains engine health information.
type StatusInfo struct {
	Collection     string    `json:"collection"`
	TotalDocuments int       `json:"total_documents"`
	TotalChunks    int       `json:"total_chunks"`
	LastIndexed    time.Time `json:"last_indexed"`

	// Storage sizes (in bytes)
	UploadsSize   int64 `json:"uploads_size"`
	StatusSize    int64 `json:"status_size"`
	VectorSize    int64 `json:"vector_size"`
	TelemetrySize int64 `json:"telemetry_size"`
	TotalSize     int64 `json:"total_size"`

	// Component status
	StoreBackend   string `json:"store_backend"`
	EmbedderType   string `json:"embedder_type"`
	EmbedderStatus string `json:"embedder_status"` // "ready", "offline", "error"
	EmbedderModel  string `json:"embedder_model,omitempty"`
	WatcherStatus  string `json:"watcher_status"` // "running", "stopped", "n/a"
}

// StatusRenderer displays engine status and document tables.
type StatusRenderer struct {
	out     io.Writer
	styles  Styles
	noColor bool
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:     out,
		styles:  GetStyles(noColor),
		noColor: noColor,
	}
}

// Render displays engine status to the terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Collection: "+info.Collection))

	_, _ = fmt.Fprintf(r.out, "  Documents:    %d\n", info.TotalDocuments)
	_, _ = fmt.Fprintf(r.out, "  Chunks:       %d\n", info.TotalChunks)
	if !info.LastIndexed.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last indexed: %s\n", formatTime(info.LastIndexed))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    Uploads:   %s\n", FormatBytes(info.UploadsSize))
	_, _ = fmt.Fprintf(r.out, "    Status:    %s\n", FormatBytes(info.StatusSize))
	_, _ = fmt.Fprintf(r.out, "    Vectors:   %s\n", FormatBytes(info.VectorSize))
	_, _ = fmt.Fprintf(r.out, "    Telemetry: %s\n", FormatBytes(info.TelemetrySize))
	_, _ = fmt.Fprintf(r.out, "    Total:     %s\n", FormatBytes(info.TotalSize))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Type:   %s\n", info.EmbedderType)
	_, _ = fmt.Fprintf(r.out, "    Status: %s\n", r.renderStatus(info.EmbedderStatus))
	if info.EmbedderModel != "" {
		_, _ = fmt.Fprintf(r.out, "    Model:  %s\n", info.EmbedderModel)
	}
	if info.StoreBackend != "" {
		_, _ = fmt.Fprintf(r.out, "    Store:  %s\n", info.StoreBackend)
	}
	_, _ = fmt.Fprintln(r.out)

	if info.WatcherStatus != "" && info.WatcherStatus != "n/a" {
		_, _ = fmt.Fprintf(r.out, "  Watcher: %s\n", r.renderStatus(info.WatcherStatus))
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// RenderDocuments displays a table of document status records, newest
// first.
func (r *StatusRenderer) RenderDocuments(records []status.Record) error {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(r.out, "No documents.")
		return nil
	}

	sorted := make([]status.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	nameWidth := len("NAME")
	for _, rec := range sorted {
		if l := len(rec.OriginalName); l > nameWidth {
			nameWidth = l
		}
	}
	if nameWidth > 40 {
		nameWidth = 40
	}

	_, _ = fmt.Fprintf(r.out, "%-38s %-*s %-10s %-8s %s\n",
		"ID", nameWidth, "NAME", "STATUS", "CHUNKS", "UPDATED")
	for _, rec := range sorted {
		name := rec.OriginalName
		if len(name) > nameWidth {
			name = name[:nameWidth-3] + "..."
		}
		chunks := "-"
		if rec.IndexedCount > 0 {
			chunks = fmt.Sprintf("%d", rec.IndexedCount)
		}
		_, _ = fmt.Fprintf(r.out, "%-38s %-*s %-10s %-8s %s\n",
			rec.FileID, nameWidth, name,
			r.renderState(rec.Status), chunks, formatTime(rec.UpdatedAt))
	}
	return nil
}

// RenderDocument displays a single record with its message and attempt
// count.
func (r *StatusRenderer) RenderDocument(rec status.Record) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render(rec.OriginalName))
	_, _ = fmt.Fprintf(r.out, "  ID:       %s\n", rec.FileID)
	_, _ = fmt.Fprintf(r.out, "  Status:   %s\n", r.renderState(rec.Status))
	if rec.Message != "" {
		_, _ = fmt.Fprintf(r.out, "  Message:  %s\n", rec.Message)
	}
	if rec.Attempts > 0 {
		_, _ = fmt.Fprintf(r.out, "  Attempts: %d\n", rec.Attempts)
	}
	if rec.IndexedCount > 0 {
		_, _ = fmt.Fprintf(r.out, "  Chunks:   %d\n", rec.IndexedCount)
	}
	_, _ = fmt.Fprintf(r.out, "  Created:  %s\n", formatTime(rec.CreatedAt))
	_, _ = fmt.Fprintf(r.out, "  Updated:  %s\n", formatTime(rec.UpdatedAt))
	return nil
}

// renderState colors a document lifecycle state.
func (r *StatusRenderer) renderState(s status.State) string {
	text := string(s)
	switch s {
	case status.StateIndexed:
		return r.styles.Success.Render(text)
	case status.StateIndexing, status.StateRetrying, status.StateUploaded:
		return r.styles.Warning.Render(text)
	case status.StateError:
		return r.styles.Error.Render(text)
	default:
		return text
	}
}

// renderStatus formats a component status string with color.
func (r *StatusRenderer) renderStatus(s string) string {
	switch s {
	case "ready", "running":
		return r.styles.Success.Render(s)
	case "offline", "stopped":
		return r.styles.Warning.Render(s)
	case "error":
		return r.styles.Error.Render(s)
	default:
		return s
	}
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to a human-readable size.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
