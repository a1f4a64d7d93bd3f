package chat

import (
	"fmt"
	"strings"

	"copilotbench/internal/harness"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.styles.RenderDivider(m.width),
		m.textarea.View(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := "copilotbench"
	if m.backend != "" {
		title += " · answer: " + m.backend
	}
	return m.styles.Header.Width(m.width).Render(title)
}

func (m Model) renderFooter() string {
	var parts []string
	switch {
	case m.turn != nil:
		parts = append(parts, m.spinner.View()+" Answering (Ctrl+X to stop)")
	case m.evaluating:
		parts = append(parts, m.spinner.View()+" Evaluating (Ctrl+X to stop)")
	}
	parts = append(parts,
		fmt.Sprintf("%s in %s", pluralTests(m.corpusCount), m.session.Settings.TestSet()),
		"Ctrl+C quit")
	return m.styles.Footer.Render(strings.Join(parts, " · "))
}

func pluralTests(n int) string {
	if n == 1 {
		return "1 test case"
	}
	return fmt.Sprintf("%d test cases", n)
}

// syncViewport re-renders the transcript and scrolls to its end.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// renderTranscript renders every view. Details are indented under their
// parent; the answer being streamed is shown last.
func (m Model) renderTranscript() string {
	var sb strings.Builder
	depth := make(map[uuid.UUID]int, len(m.transcript))

	for _, v := range m.transcript {
		if v.IsDetail() {
			d := depth[v.ParentID] + 1
			depth[v.ID] = d
			sb.WriteString(m.renderDetail(v, d))
			continue
		}
		sb.WriteString(m.authorLabel(v) + "\n")
		sb.WriteString(m.renderCached(v))
		sb.WriteString("\n")
	}

	if m.turn != nil {
		sb.WriteString(m.styles.AssistantAuthor.MarginTop(1).Render(harness.AuthorAssistant) + "\n")
		if answer := m.turn.Answer(); answer != "" {
			sb.WriteString(m.styles.Message.Render(answer))
		} else {
			sb.WriteString(m.styles.Muted.PaddingLeft(2).Render("..."))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) authorLabel(v harness.View) string {
	style := m.styles.BenchAuthor
	switch {
	case v.Error:
		style = m.styles.Error
	case v.Author == harness.AuthorUser:
		style = m.styles.UserAuthor
	case v.Author == harness.AuthorAssistant:
		style = m.styles.AssistantAuthor
	}
	return style.MarginTop(1).Render(v.Author)
}

func (m Model) renderDetail(v harness.View, depth int) string {
	return m.styles.Detail.
		MarginLeft(2*(depth-1)).
		Render(strings.TrimRight(m.renderCached(v), "\n")) + "\n"
}

// renderCached renders v's markdown once per width.
func (m Model) renderCached(v harness.View) string {
	if out, ok := m.rendered[v.ID]; ok {
		return out
	}
	out := m.safeRenderMarkdown(v.Content)
	m.rendered[v.ID] = out
	return out
}

// safeRenderMarkdown renders markdown with panic recovery
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}
