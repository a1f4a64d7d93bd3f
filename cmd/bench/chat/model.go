// Package chat is the interactive terminal UI of copilotbench. The Model
// owns one conversation; every session change happens in Update, and
// pipeline calls run as commands on worker goroutines.
package chat

import (
	"context"

	"copilotbench/cmd/bench/ui"
	"copilotbench/internal/corpus"
	"copilotbench/internal/harness"
	"copilotbench/internal/pipeline"
	"copilotbench/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures a Model.
type Options struct {
	Harness *harness.Harness
	Session *session.Session
	Styles  ui.Styles
	// WordWrap caps the markdown width.
	WordWrap int
	// Watcher, when set, keeps the footer's test count current while the
	// corpus is edited elsewhere.
	Watcher *corpus.Watcher
	// Backend names the answer pipeline in the header.
	Backend string
	Logger  *zap.Logger
}

// Model is the bubbletea model of the bench UI.
type Model struct {
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	styles   ui.Styles
	wordWrap int

	harness *harness.Harness
	session *session.Session
	backend string
	logger  *zap.Logger

	transcript []harness.View
	// rendered caches the markdown rendering of transcript views.
	rendered map[uuid.UUID]string

	// In-flight work
	turn       *harness.Turn
	turnErr    error
	replaying  bool
	evaluating bool
	evalCancel context.CancelFunc

	// Footer test count
	corpusCount int
	watcher     *corpus.Watcher
	watchedPath string

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc

	width  int
	height int
	ready  bool
}

// Messages produced by worker commands.
type (
	// streamStartedMsg carries the delta channel of a turn, or the error
	// that kept it from starting.
	streamStartedMsg struct {
		turn   *harness.Turn
		deltas <-chan pipeline.Delta
		err    error
	}

	// deltaMsg is one delta of the running turn. ok is false once the
	// channel is closed.
	deltaMsg struct {
		turn   *harness.Turn
		deltas <-chan pipeline.Delta
		delta  pipeline.Delta
		ok     bool
	}

	evalDoneMsg struct {
		view harness.View
		err  error
	}

	corpusCountMsg struct {
		count int
		ok    bool
	}
)

// New creates the UI model.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	wordWrap := opts.WordWrap
	if wordWrap <= 0 {
		wordWrap = 100
	}

	ta := textarea.New()
	ta.Placeholder = "Ask a question or type /help (Enter to send, Ctrl+C to exit)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4096
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Styles.Spinner

	vp := viewport.New(80, 20)

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		textarea:       ta,
		viewport:       vp,
		spinner:        sp,
		styles:         opts.Styles,
		wordWrap:       wordWrap,
		harness:        opts.Harness,
		session:        opts.Session,
		backend:        opts.Backend,
		logger:         logger,
		rendered:       make(map[uuid.UUID]string),
		watcher:        opts.Watcher,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}
	if opts.Watcher != nil {
		m.watchedPath = opts.Session.Settings.TestSet()
	}
	m.renderer = newRenderer(m.styles, min(80, wordWrap))
	m.refreshCorpusCount()
	m.transcript = append(m.transcript, m.harness.Help(m.session))
	return m
}

func newRenderer(styles ui.Styles, width int) *glamour.TermRenderer {
	style := "light"
	if styles.Theme.IsDark {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return renderer
}

// Init starts the cursor blink, the spinner and the corpus listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.waitForCorpusCount(),
	)
}

// busy reports whether a turn or an evaluation is running.
func (m Model) busy() bool {
	return m.turn != nil || m.evaluating
}

func (m *Model) refreshCorpusCount() {
	count, err := m.harness.Store(m.session.Settings.TestSet()).Count()
	if err != nil {
		m.logger.Warn("Failed to count test cases", zap.Error(err))
		return
	}
	m.corpusCount = count
}

func (m Model) waitForCorpusCount() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	updates := m.watcher.Updates()
	return func() tea.Msg {
		count, ok := <-updates
		return corpusCountMsg{count: count, ok: ok}
	}
}

// shutdown stops in-flight work and the corpus watcher.
func (m *Model) shutdown() {
	if m.turn != nil {
		m.turn.Cancel()
	}
	if m.evalCancel != nil {
		m.evalCancel()
	}
	m.shutdownCancel()
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			m.logger.Warn("Failed to close corpus watcher", zap.Error(err))
		}
	}
}
