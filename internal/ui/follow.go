package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/servibot/docindex/internal/status"
)

// SnapshotFunc returns the current document status records.
type SnapshotFunc func() []status.Record

// followModel is the bubbletea model for live status following. It
// polls the snapshot function on an interval and rerenders the table.
type followModel struct {
	snapshot SnapshotFunc
	interval time.Duration
	styles   Styles
	records  []status.Record
	width    int
	quitting bool
}

type followTickMsg time.Time

// NewFollowModel creates a model that refreshes document statuses on
// the given interval.
func NewFollowModel(snapshot SnapshotFunc, interval time.Duration, noColor bool) tea.Model {
	if interval <= 0 {
		interval = time.Second
	}
	return &followModel{
		snapshot: snapshot,
		interval: interval,
		styles:   GetStyles(noColor),
		records:  snapshot(),
		width:    80,
	}
}

// Init implements tea.Model.
func (m *followModel) Init() tea.Cmd {
	return m.tick()
}

func (m *followModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return followTickMsg(t)
	})
}

// Update implements tea.Model.
func (m *followModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case followTickMsg:
		m.records = m.snapshot()
		return m, m.tick()
	}

	return m, nil
}

// View implements tea.Model.
func (m *followModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render("Documents"))
	b.WriteString("\n\n")

	if len(m.records) == 0 {
		b.WriteString(m.styles.Dim.Render("No documents yet."))
		b.WriteString("\n")
	} else {
		sorted := make([]status.Record, len(m.records))
		copy(sorted, m.records)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
		})

		for _, rec := range sorted {
			b.WriteString(m.renderRow(rec))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Dim.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *followModel) renderRow(rec status.Record) string {
	var state string
	switch rec.Status {
	case status.StateIndexed:
		state = m.styles.Success.Render("● indexed ")
	case status.StateError:
		state = m.styles.Error.Render("✗ error   ")
	case status.StateRetrying:
		state = m.styles.Warning.Render("↻ retrying")
	case status.StateIndexing:
		state = m.styles.Warning.Render("… indexing")
	default:
		state = m.styles.Dim.Render("○ uploaded")
	}

	name := rec.OriginalName
	if name == "" {
		name = rec.FileID
	}
	maxName := m.width - 36
	if maxName < 12 {
		maxName = 12
	}
	if len(name) > maxName {
		name = name[:maxName-3] + "..."
	}

	detail := rec.Message
	if rec.Status == status.StateIndexed && rec.IndexedCount > 0 {
		detail = fmt.Sprintf("%d chunks", rec.IndexedCount)
	}
	if detail != "" {
		detail = m.styles.Label.Render("  " + detail)
	}

	return fmt.Sprintf("%s  %-*s%s", state, maxName, name, detail)
}
