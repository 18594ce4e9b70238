package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/detective-go/internal/models"
	"github.com/raphaelgruber/detective-go/internal/service"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// docResultMsg carries one document's ingestion outcome.
type docResultMsg struct {
	result *service.IngestResult
	err    error
}

// ingestModel is the bubbletea model for case ingestion. Documents are
// processed one at a time; each completed document advances the bar.
type ingestModel struct {
	svc      *service.IngestService
	caseID   string
	docs     []models.Document
	opts     service.IngestOptions
	progress progress.Model
	theme    Theme

	idx        int
	chunks     int
	embeddings int
	warnings   []string
	done       bool
	aborted    bool
	err        error
}

func newIngestModel(svc *service.IngestService, caseID string, docs []models.Document, opts service.IngestOptions) ingestModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return ingestModel{
		svc:      svc,
		caseID:   caseID,
		docs:     docs,
		opts:     opts,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init kicks off the first document.
func (m ingestModel) Init() tea.Cmd {
	return tea.Batch(
		m.ingestNext(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.aborted = true
			m.done = true
			return m, tea.Quit
		}

	case docResultMsg:
		if msg.err != nil {
			// Per-document failures are warnings; the run continues
			docID, _ := models.RecordIDString(m.docs[m.idx].ID)
			m.warnings = append(m.warnings, fmt.Sprintf("document %s: %v", docID, msg.err))
		} else {
			m.chunks += msg.result.ChunksCreated
			m.embeddings += msg.result.EmbeddingsGenerated
		}

		m.idx++
		if m.idx >= len(m.docs) {
			m.done = true
			return m, tea.Quit
		}
		return m, m.ingestNext()

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m ingestModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m ingestModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	pct := float64(m.idx) / float64(len(m.docs))

	status := m.theme.statusStyle().Render("[ingesting]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d documents", m.idx, len(m.docs))
	hint := m.theme.hintStyle().Render("Press Ctrl+C to abort")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m ingestModel) finalView() string {
	if m.aborted {
		return m.theme.hintStyle().Render(
			fmt.Sprintf("\nAborted after %d/%d documents. Re-run to continue; already\ningested documents are replaced, not duplicated.\n", m.idx, len(m.docs)))
	}

	var output string
	output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	output += fmt.Sprintf("  Documents processed: %d\n", m.idx-len(m.warnings))
	output += fmt.Sprintf("  Chunks created:      %d\n", m.chunks)
	output += fmt.Sprintf("  Embeddings:          %d\n", m.embeddings)
	if m.opts.SkipEmbeddings {
		output += m.theme.hintStyle().Render("  (embeddings skipped, evidence not searchable yet)\n")
	}
	if len(m.warnings) > 0 {
		output += m.theme.errorStyle().Render(fmt.Sprintf("\nWarnings (%d):\n", len(m.warnings)))
		for _, w := range m.warnings {
			output += fmt.Sprintf("  • %s\n", w)
		}
	}
	return output
}

// ingestNext ingests the current document in a command goroutine so Update()
// stays responsive.
func (m ingestModel) ingestNext() tea.Cmd {
	doc := m.docs[m.idx]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		docID, err := models.RecordIDString(doc.ID)
		if err != nil {
			return docResultMsg{err: err}
		}
		result, err := m.svc.IngestDocument(ctx, m.caseID, docID, m.opts)
		return docResultMsg{result: result, err: err}
	}
}

// RunIngestProgress runs the interactive progress UI for a case ingestion.
func RunIngestProgress(svc *service.IngestService, caseID string, docs []models.Document, opts service.IngestOptions) error {
	model := newIngestModel(svc, caseID, docs, opts)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(ingestModel); ok {
		if m.err != nil {
			return m.err
		}
	}
	return nil
}
