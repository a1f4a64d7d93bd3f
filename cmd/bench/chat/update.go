package chat

import (
	"strings"

	"copilotbench/internal/command"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const (
	headerHeight = 1
	footerHeight = 1
)

// Update handles one message. It is the only place the session changes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.shutdown()
			return m, tea.Quit

		case tea.KeyCtrlX:
			m.stop()
			return m, nil

		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case tea.KeyEnter:
			if !msg.Alt {
				return m.submit()
			}
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case streamStartedMsg:
		return m.handleStreamStarted(msg)

	case deltaMsg:
		return m.handleDelta(msg)

	case evalDoneMsg:
		return m.handleEvalDone(msg)

	case corpusCountMsg:
		if !msg.ok {
			return m, nil
		}
		// The watcher follows the startup corpus only.
		if m.session.Settings.TestSet() == m.watchedPath {
			m.corpusCount = msg.count
		}
		return m, m.waitForCorpusCount()
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// submit parses the input line and starts its command. Input is ignored
// while a turn or an evaluation runs.
func (m Model) submit() (tea.Model, tea.Cmd) {
	input := m.textarea.Value()
	if strings.TrimSpace(input) == "" || m.busy() {
		return m, nil
	}
	m.textarea.Reset()

	cmd := command.Parse(input)
	m.logger.Debug("Command received", zap.Stringer("kind", cmd.Kind))
	next, teaCmd := m.dispatch(cmd)
	next.syncViewport()
	return next, teaCmd
}

// stop cancels the running turn or evaluation.
func (m *Model) stop() {
	switch {
	case m.turn != nil:
		m.logger.Info("Stopping chat turn")
		m.turn.Cancel()
	case m.evaluating && m.evalCancel != nil:
		m.logger.Info("Stopping evaluation")
		m.evalCancel()
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	m.textarea.SetWidth(width)
	m.viewport.Width = width
	m.viewport.Height = max(3, height-headerHeight-footerHeight-1-m.textarea.Height())

	m.renderer = newRenderer(m.styles, max(20, min(width-4, m.wordWrap)))
	clear(m.rendered)
	m.ready = true
	m.syncViewport()
}
