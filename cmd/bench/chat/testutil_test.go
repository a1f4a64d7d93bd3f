package chat

import (
	"context"
	"path/filepath"
	"testing"

	"copilotbench/cmd/bench/ui"
	"copilotbench/internal/config"
	"copilotbench/internal/corpus"
	"copilotbench/internal/harness"
	"copilotbench/internal/pipeline"
	"copilotbench/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

// testEnv bundles a model with the pipelines behind it.
type testEnv struct {
	answer  *pipeline.MockAnswer
	eval    *pipeline.MockEvaluator
	session *session.Session
	corpus  string
}

type testOption func(*harness.Options)

func withAnswer(a pipeline.AnswerPipeline) testOption {
	return func(o *harness.Options) { o.Answer = a }
}

// newTestModel builds a sized model over mock pipelines and an empty
// corpus in a temporary directory.
func newTestModel(t *testing.T, opts ...testOption) (Model, *testEnv) {
	t.Helper()

	env := &testEnv{
		answer: &pipeline.MockAnswer{
			Chunks: []string{"We carry ", "the TrailMaster tent."},
			Context: &pipeline.Context{
				CustomerData: map[string]any{"id": "8", "firstName": "Sarah"},
				Citations:    []map[string]any{{"title": "TrailMaster", "content": "A 4-person tent."}},
			},
		},
		eval:   pipeline.NewMockEvaluator(),
		corpus: filepath.Join(t.TempDir(), "data", "testdata.jsonl"),
	}

	cfg := config.DefaultConfig().Session
	cfg.TestSet = env.corpus
	env.session = session.New(cfg)

	hopts := harness.Options{Answer: env.answer, Eval: env.eval}
	for _, opt := range opts {
		opt(&hopts)
	}

	m := New(Options{
		Harness: harness.New(hopts),
		Session: env.session,
		Styles:  ui.NewStyles(ui.LightTheme()),
		Backend: "mock",
	})
	t.Cleanup(m.shutdown)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), env
}

// drive runs cmd and feeds its messages back into the model until no
// command is left.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 1000, "command loop did not settle")
		msg := cmd()
		if msg == nil {
			break
		}
		next, c := m.Update(msg)
		m = next.(Model)
		cmd = c
	}
	return m
}

// send types input and presses Enter, running everything it starts.
func send(t *testing.T, m Model, input string) Model {
	t.Helper()
	m.textarea.SetValue(input)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return drive(t, next.(Model), cmd)
}

func contents(views []harness.View) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Content
	}
	return out
}

func lastView(t *testing.T, m Model) harness.View {
	t.Helper()
	require.NotEmpty(t, m.transcript)
	return m.transcript[len(m.transcript)-1]
}

// stalledAnswer streams nothing until its context is done.
type stalledAnswer struct{}

func (stalledAnswer) Stream(ctx context.Context, _ *pipeline.ChatRequest) (<-chan pipeline.Delta, error) {
	out := make(chan pipeline.Delta)
	go func() {
		defer close(out)
		<-ctx.Done()
	}()
	return out, nil
}

func addRecords(t *testing.T, path string, questions ...string) {
	t.Helper()
	store := corpus.NewStore(path)
	q := "earlier question"
	a := "earlier answer"
	for _, question := range questions {
		_, err := store.Append(&corpus.Record{
			CustomerID: "2",
			ChatHistory: []pipeline.FlowTurn{{
				Inputs:  pipeline.FlowInputs{Question: &q},
				Outputs: pipeline.FlowOutputs{Answer: &a},
			}},
			Question: question,
		})
		require.NoError(t, err)
	}
}
