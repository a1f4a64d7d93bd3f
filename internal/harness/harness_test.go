package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"copilotbench/internal/command"
	"copilotbench/internal/config"
	"copilotbench/internal/corpus"
	"copilotbench/internal/pipeline"
	"copilotbench/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	h      *Harness
	s      *session.Session
	answer *pipeline.MockAnswer
	eval   *pipeline.MockEvaluator
	corpus string
	views  []View
}

func newFixture(t *testing.T, answer *pipeline.MockAnswer) *fixture {
	t.Helper()
	if answer == nil {
		answer = &pipeline.MockAnswer{Chunks: []string{"Hello", ", ", "world"}, Context: sampleContext()}
	}
	f := &fixture{
		answer: answer,
		eval:   pipeline.NewMockEvaluator(),
		corpus: filepath.Join(t.TempDir(), "data", "testdata.jsonl"),
	}
	f.h = New(Options{Answer: f.answer, Eval: f.eval, DebugViews: true, Logger: zap.NewNop()})
	cfg := config.DefaultConfig().Session
	cfg.TestSet = f.corpus
	f.s = session.New(cfg)
	return f
}

func (f *fixture) emit(v View) {
	f.views = append(f.views, v)
}

func (f *fixture) run(t *testing.T, input string) error {
	t.Helper()
	f.views = nil
	return f.h.Handle(context.Background(), f.s, command.Parse(input), f.emit)
}

func (f *fixture) contents() string {
	var parts []string
	for _, v := range f.views {
		parts = append(parts, v.Content)
	}
	return strings.Join(parts, "\n---\n")
}

func sampleContext() *pipeline.Context {
	return &pipeline.Context{
		CustomerData: map[string]any{
			"id":        "8",
			"firstName": "Amanda",
			"_rid":      "internal",
			"orders": []any{
				map[string]any{"id": float64(29), "total": 45.5},
				map[string]any{"id": float64(30), "total": 12.0},
			},
		},
		Citations: []map[string]any{
			{"id": "1", "title": "TrailMaster Tent", "content": "A four person tent."},
			{"id": "2", "content": "Hiking boots."},
		},
	}
}

func strPtr(s string) *string { return &s }

func writeCorpus(t *testing.T, path string, records ...corpus.Record) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var sb strings.Builder
	for _, rec := range records {
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		sb.Write(data)
		sb.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
}

func testRecords(n int) []corpus.Record {
	records := make([]corpus.Record, n)
	for i := range records {
		records[i] = corpus.Record{
			CustomerID: corpus.CustomerID(fmt.Sprint(i + 1)),
			ChatHistory: []pipeline.FlowTurn{{
				Inputs:  pipeline.FlowInputs{Question: strPtr(fmt.Sprintf("earlier question %d", i+1))},
				Outputs: pipeline.FlowOutputs{Answer: strPtr(fmt.Sprintf("earlier answer %d", i+1))},
			}},
			Question: fmt.Sprintf("question %d", i+1),
		}
	}
	return records
}

func TestChatTurnCompletes(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.run(t, "  What tents do you have?  "))

	assert.Equal(t, []pipeline.Message{
		{Role: pipeline.RoleUser, Content: "What tents do you have?"},
		{Role: pipeline.RoleAssistant, Content: "Hello, world"},
	}, f.s.History)
	require.Len(t, f.s.Messages, 2)
	assert.NotNil(t, f.s.Messages[1].Context)

	require.NotNil(t, f.s.Pending)
	assert.Equal(t, "What tents do you have?", f.s.Pending.Question)
	assert.Equal(t, corpus.CustomerID("8"), f.s.Pending.CustomerID)
	assert.Empty(t, f.s.Pending.ChatHistory, "history excludes the question")
	require.NotNil(t, f.s.Pending.Context)
	assert.Len(t, f.s.Pending.Context.Citations, 2)

	require.NotEmpty(t, f.views)
	assert.Equal(t, AuthorUser, f.views[0].Author)
	last := f.views[len(f.views)-1]
	assert.Equal(t, AuthorAssistant, last.Author)
	assert.Equal(t, "Hello, world", last.Content)
}

func TestChatTurnPendingQuestionIsVerbatim(t *testing.T) {
	f := newFixture(t, nil)
	question := "Does the *TrailMaster* tent fit `4` people?\tThanks!"

	require.NoError(t, f.h.RunTurn(context.Background(), f.s, question, nil, f.emit))

	require.NotNil(t, f.s.Pending)
	assert.Equal(t, question, f.s.Pending.Question)
}

func TestChatTurnRecordHistoryBeforeQuestion(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.run(t, "first"))
	require.NoError(t, f.run(t, "second"))

	assert.Equal(t, []pipeline.Message{
		{Role: pipeline.RoleUser, Content: "first"},
		{Role: pipeline.RoleAssistant, Content: "Hello, world"},
	}, f.s.Pending.Messages())
	assert.Equal(t, "second", f.s.Pending.Question)

	reqs := f.answer.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].Messages, 3, "the pipeline receives the full history")
	assert.Equal(t, "./rag_flow", reqs[1].Flow)
}

func TestChatTurnRendersContextViews(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.run(t, "hi"))

	question := f.views[0]
	var customer, citations *View
	var orders, cites int
	for i := range f.views {
		v := &f.views[i]
		switch {
		case strings.HasPrefix(v.Content, "#### Customer Data:"):
			customer = v
		case strings.HasPrefix(v.Content, "#### Citations:"):
			citations = v
		}
	}
	require.NotNil(t, customer)
	require.NotNil(t, citations)
	assert.Equal(t, question.ID, customer.ParentID)
	assert.Equal(t, question.ID, citations.ParentID)
	assert.Contains(t, customer.Content, `"firstName": "Amanda"`)
	assert.NotContains(t, customer.Content, "orders")
	assert.NotContains(t, customer.Content, "_rid")

	for _, v := range f.views {
		if v.ParentID == customer.ID {
			orders++
			assert.True(t, strings.HasPrefix(v.Content, "## Order "), v.Content)
		}
		if v.ParentID == citations.ID {
			cites++
		}
	}
	assert.Equal(t, 2, orders)
	assert.Equal(t, 2, cites)
	assert.Contains(t, f.contents(), "## Order 29")
	assert.Contains(t, f.contents(), "##### TrailMaster Tent\nA four person tent.")
}

func TestChatTurnDebugViews(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.run(t, "hi"))

	out := f.contents()
	assert.Contains(t, out, "#### Messages:\n```yaml\n- role: user\n  content: hi\n")
	assert.Contains(t, out, "#### Context:\n```yaml\ncustomerId: \"8\"\n")
	assert.Contains(t, out, "#### Download as testcase:\n```json\n{\"customerId\":\"8\"")

	f.h.debugViews = false
	require.NoError(t, f.run(t, "again"))
	assert.NotContains(t, f.contents(), "#### Messages:")
	assert.NotContains(t, f.contents(), "Download as testcase")
}

func TestChatTurnContentOnlyStream(t *testing.T) {
	f := newFixture(t, &pipeline.MockAnswer{Chunks: []string{"The tent ", "sleeps ", "four."}})

	require.NoError(t, f.run(t, "How many people fit?"))

	require.Len(t, f.s.Messages, 2)
	assert.Equal(t, "The tent sleeps four.", f.s.Messages[1].Content)
	assert.Nil(t, f.s.Messages[1].Context)
	out := f.contents()
	assert.NotContains(t, out, "Customer Data")
	assert.NotContains(t, out, "Citations")
	assert.NotContains(t, out, "## Order")
}

func TestTurnFirstContextWins(t *testing.T) {
	f := newFixture(t, nil)
	turn, _, err := f.h.BeginTurn(f.s, "hi", nil)
	require.NoError(t, err)

	views, err := turn.Apply(pipeline.Delta{Context: &pipeline.Context{}})
	require.NoError(t, err)
	assert.Empty(t, views, "an empty context is not the context")

	first := &pipeline.Context{Citations: []map[string]any{{"content": "first"}}}
	views, err = turn.Apply(pipeline.Delta{Content: "a", Context: first})
	require.NoError(t, err)
	assert.Len(t, views, 2)

	views, err = turn.Apply(pipeline.Delta{Content: "b", Context: sampleContext()})
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.Same(t, first, turn.Context())
	assert.Equal(t, "ab", turn.Answer())
}

func TestChatTurnFailure(t *testing.T) {
	tests := []struct {
		name   string
		answer *pipeline.MockAnswer
	}{
		{"call error", &pipeline.MockAnswer{Err: errors.New("endpoint unreachable")}},
		{"mid-stream error", &pipeline.MockAnswer{Chunks: []string{"partial"}, StreamErr: errors.New("connection reset")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.answer)

			err := f.run(t, "hi")
			require.Error(t, err)

			assert.Equal(t, []pipeline.Message{{Role: pipeline.RoleUser, Content: "hi"}}, f.s.History)
			assert.Len(t, f.s.Messages, 1)
			assert.Nil(t, f.s.Pending)

			last := f.views[len(f.views)-1]
			assert.True(t, last.Error)
			assert.Contains(t, last.Content, "Chat failed")
		})
	}
}

func TestChatTurnFailureKeepsEarlierPending(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.run(t, "first"))
	pending := f.s.Pending

	f.answer.Err = errors.New("down")
	require.Error(t, f.run(t, "second"))
	assert.Same(t, pending, f.s.Pending)
}

type stalledAnswer struct{}

func (stalledAnswer) Stream(ctx context.Context, _ *pipeline.ChatRequest) (<-chan pipeline.Delta, error) {
	out := make(chan pipeline.Delta)
	go func() {
		defer close(out)
		<-ctx.Done()
	}()
	return out, nil
}

func TestChatTurnTimeout(t *testing.T) {
	f := newFixture(t, nil)
	f.h = New(Options{Answer: stalledAnswer{}, Eval: f.eval, AnswerTimeout: 20 * time.Millisecond})

	err := f.h.RunTurn(context.Background(), f.s, "hi", nil, f.emit)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, f.s.Pending)
	assert.Len(t, f.s.History, 1)
}

func TestTurnCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.h = New(Options{Answer: stalledAnswer{}, Eval: f.eval})

	turn, _, err := f.h.BeginTurn(f.s, "hi", nil)
	require.NoError(t, err)
	deltas, err := f.h.Stream(context.Background(), turn)
	require.NoError(t, err)

	turn.Cancel()
	for range deltas {
	}
	assert.ErrorIs(t, turn.Interrupted(), context.Canceled)
}

func TestConfigThenChatUsesCustomerID(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.run(t, "/config customer_id 42"))
	assert.Equal(t, "#### Set `customer_id` to `42`", f.views[0].Content)

	require.NoError(t, f.run(t, "What did I order?"))

	reqs := f.answer.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]any{"customerId": "42"}, reqs[0].Context)
	assert.Equal(t, corpus.CustomerID("42"), f.s.Pending.CustomerID)
}

func TestConfigCommand(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.run(t, "/config"))
	table := f.views[0].Content
	assert.True(t, strings.HasPrefix(table, "| **Property** | **Value** |\n| --- | --- |\n"))
	assert.Contains(t, table, "| customer_id | 8 |")
	assert.Less(t, strings.Index(table, "promptflow_folder"), strings.Index(table, "customer_id"))

	require.NoError(t, f.run(t, "/config customer_id"))
	assert.Equal(t, table, f.views[0].Content, "a lone name lists the settings")

	err := f.run(t, "/config model gpt-4")
	assert.ErrorIs(t, err, ErrUnknownSetting)
	assert.Equal(t, "#### Unknown config property `model`", f.views[0].Content)
	assert.True(t, f.views[0].Error)

	require.NoError(t, f.run(t, "/config"))
	assert.Equal(t, table, f.views[0].Content, "configuration unchanged")
}

func TestEvalBeforeAnyTurn(t *testing.T) {
	f := newFixture(t, nil)

	err := f.run(t, "/eval")
	assert.ErrorIs(t, err, ErrNoMessagesToEvaluate)
	assert.Equal(t, "#### No messages to evaluate", f.views[0].Content)
	assert.Empty(t, f.eval.Requests())
}

func TestEvalAfterFailedTurn(t *testing.T) {
	f := newFixture(t, &pipeline.MockAnswer{Err: errors.New("down")})
	require.Error(t, f.run(t, "hi"))

	assert.ErrorIs(t, f.run(t, "/eval"), ErrNoMessagesToEvaluate)
	assert.Empty(t, f.eval.Requests())
}

func TestEvalWithoutContext(t *testing.T) {
	f := newFixture(t, &pipeline.MockAnswer{Chunks: []string{"no context"}})
	require.NoError(t, f.run(t, "hi"))

	err := f.run(t, "/eval")
	assert.ErrorIs(t, err, ErrNoContext)
	assert.Equal(t, "#### No context to evaluate", f.views[0].Content)
	assert.Empty(t, f.eval.Requests())
}

func TestEvalRequest(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.run(t, "first"))
	require.NoError(t, f.run(t, "second"))

	require.NoError(t, f.run(t, "/eval"))

	reqs := f.eval.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "./eval_flow", req.Flow)
	assert.Equal(t, "second", req.Question)
	assert.Equal(t, "Hello, world", req.Answer)
	assert.Equal(t, []pipeline.Message{
		{Role: pipeline.RoleUser, Content: "first"},
		{Role: pipeline.RoleAssistant, Content: "Hello, world"},
	}, pipeline.FromFlowHistory(req.ChatHistory))

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Context), &payload))
	assert.Contains(t, payload, "customerData")
	assert.Contains(t, payload, "citations")

	assert.True(t, strings.HasPrefix(f.views[0].Content, "```yaml\ngpt_groundedness: 5\n"), f.views[0].Content)
}

func TestEvalFailure(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.run(t, "hi"))
	f.eval.Err = errors.New("judge unavailable")

	err := f.run(t, "/eval")
	require.Error(t, err)
	assert.True(t, f.views[0].Error)
	assert.Contains(t, f.views[0].Content, "Judge unavailable")
}

func TestAddTestWithoutPending(t *testing.T) {
	t.Run("missing corpus", func(t *testing.T) {
		f := newFixture(t, nil)

		assert.ErrorIs(t, f.run(t, "/add_test"), ErrNoPendingTest)
		assert.Equal(t, "#### No messages to add", f.views[0].Content)
		_, err := os.Stat(f.corpus)
		assert.True(t, os.IsNotExist(err), "corpus must not be created")
	})

	t.Run("existing corpus", func(t *testing.T) {
		f := newFixture(t, nil)
		writeCorpus(t, f.corpus, testRecords(2)...)
		before, err := os.ReadFile(f.corpus)
		require.NoError(t, err)

		assert.ErrorIs(t, f.run(t, "/add_test"), ErrNoPendingTest)

		after, err := os.ReadFile(f.corpus)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("after failed turn", func(t *testing.T) {
		f := newFixture(t, &pipeline.MockAnswer{Chunks: []string{"x"}, StreamErr: errors.New("cut")})
		require.Error(t, f.run(t, "hi"))

		assert.ErrorIs(t, f.run(t, "/add_test"), ErrNoPendingTest)
		_, err := os.Stat(f.corpus)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestAddTest(t *testing.T) {
	f := newFixture(t, nil)
	writeCorpus(t, f.corpus, testRecords(2)...)
	require.NoError(t, f.run(t, "Is the tent waterproof?"))

	require.NoError(t, f.run(t, "/add_test"))

	out := f.views[0].Content
	assert.True(t, strings.HasPrefix(out, "Added the following test case:\n\n```yaml\n"), out)
	assert.Contains(t, out, "question: Is the tent waterproof?")
	assert.True(t, strings.HasSuffix(out, "Its number is 3"), out)

	entries, err := corpus.NewStore(f.corpus).Load()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Is the tent waterproof?", entries[2].Record.Question)
	assert.NotNil(t, entries[2].Record.Context)
}

func TestReplaySelection(t *testing.T) {
	for n := 0; n <= 3; n++ {
		t.Run(fmt.Sprintf("corpus of %d", n), func(t *testing.T) {
			f := newFixture(t, nil)
			writeCorpus(t, f.corpus, testRecords(n)...)

			last, lastErr := f.h.SelectTest(f.s, command.Parse("/test").Test)
			explicit, explicitErr := f.h.SelectTest(f.s, command.Parse(fmt.Sprintf("/test %d", n)).Test)
			if n == 0 {
				assert.ErrorIs(t, lastErr, ErrTestOutOfRange)
				assert.ErrorIs(t, explicitErr, ErrTestOutOfRange)
				return
			}
			require.NoError(t, lastErr)
			require.NoError(t, explicitErr)
			assert.Equal(t, explicit, last)
			assert.Equal(t, fmt.Sprintf("question %d", n), last.Question)
		})
	}
}

func TestReplayOutOfRangeLeavesSession(t *testing.T) {
	for n := 0; n <= 3; n++ {
		for _, k := range []int{0, -1, n + 1, n + 10} {
			t.Run(fmt.Sprintf("corpus of %d, test %d", n, k), func(t *testing.T) {
				f := newFixture(t, nil)
				writeCorpus(t, f.corpus, testRecords(n)...)
				require.NoError(t, f.run(t, "hi"))
				id, history, messages, pending := f.s.ID, f.s.History, f.s.Messages, f.s.Pending

				err := f.run(t, fmt.Sprintf("/test %d", k))
				assert.ErrorIs(t, err, ErrTestOutOfRange)
				require.Len(t, f.views, 1)
				assert.Contains(t, f.views[0].Content, fmt.Sprintf("Valid test case numbers are 1-%d", n))

				assert.Equal(t, id, f.s.ID)
				assert.Equal(t, history, f.s.History)
				assert.Equal(t, messages, f.s.Messages)
				assert.Same(t, pending, f.s.Pending)
				assert.Len(t, f.answer.Requests(), 1)
			})
		}
	}
}

func TestReplayInvalidNumber(t *testing.T) {
	f := newFixture(t, nil)
	writeCorpus(t, f.corpus, testRecords(2)...)

	err := f.run(t, "/test two")
	assert.ErrorIs(t, err, ErrInvalidTestNumber)
	assert.Contains(t, f.views[0].Content, "Please provide an integer number.")
	assert.Empty(t, f.s.History)
	assert.Empty(t, f.answer.Requests())
}

func TestReplayMalformedRecord(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.corpus), 0o755))
	require.NoError(t, os.WriteFile(f.corpus, []byte("{broken\n"), 0o644))

	err := f.run(t, "/test 1")
	require.Error(t, err)
	assert.Contains(t, f.views[0].Content, "malformed")
	assert.Empty(t, f.answer.Requests())
}

func TestReplayThenAddTest(t *testing.T) {
	f := newFixture(t, nil)
	records := testRecords(3)
	writeCorpus(t, f.corpus, records...)
	require.NoError(t, f.run(t, "unrelated"))

	require.NoError(t, f.run(t, "/test 2"))

	reqs := f.answer.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []pipeline.Message{
		{Role: pipeline.RoleUser, Content: "earlier question 2"},
		{Role: pipeline.RoleAssistant, Content: "earlier answer 2"},
		{Role: pipeline.RoleUser, Content: "question 2"},
	}, reqs[1].Messages)
	assert.Equal(t, map[string]any{"customerId": "2"}, reqs[1].Context)

	assert.Equal(t, AuthorUser, f.views[0].Author)
	assert.Equal(t, "earlier question 2", f.views[0].Content)
	assert.Equal(t, AuthorAssistant, f.views[1].Author)
	assert.Equal(t, AuthorUser, f.views[2].Author)
	assert.Equal(t, "question 2", f.views[2].Content)

	require.Len(t, f.eval.Requests(), 1, "replay evaluates the answer")
	assert.Equal(t, "question 2", f.eval.Requests()[0].Question)

	count, err := corpus.NewStore(f.corpus).Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count, "replay does not append")

	require.NoError(t, f.run(t, "/add_test"))
	entries, err := corpus.NewStore(f.corpus).Load()
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "question 2", entries[3].Record.Question)
	assert.Equal(t, records[1].ChatHistory, entries[3].Record.ChatHistory)
	// The captured test belongs to the configured customer, not the replayed one.
	assert.Equal(t, corpus.CustomerID("8"), entries[3].Record.CustomerID)
}

func TestReplayEvaluatesEvenWhenTurnFails(t *testing.T) {
	f := newFixture(t, &pipeline.MockAnswer{Err: errors.New("down")})
	writeCorpus(t, f.corpus, testRecords(1)...)

	err := f.run(t, "/test")
	require.Error(t, err)

	out := f.contents()
	assert.Contains(t, out, "Chat failed")
	assert.Contains(t, out, "#### No messages to evaluate")
	assert.Empty(t, f.eval.Requests())
	assert.Nil(t, f.s.Pending)
}

func TestListTests(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.run(t, "/list_tests"))
	assert.Contains(t, f.views[0].Content, "No test cases")

	writeCorpus(t, f.corpus, testRecords(2)...)
	file, err := os.OpenFile(f.corpus, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, f.run(t, "/list_tests"))
	out := f.views[0].Content
	assert.Contains(t, out, "- number: 1\n")
	assert.Contains(t, out, "- number: 3\n")
	assert.Contains(t, out, "question: question 2")
	assert.Contains(t, out, "error: ")
	assert.Contains(t, out, "test case 3 is malformed")
	assert.Less(t, strings.Index(out, "number: 1"), strings.Index(out, "customerId"))
}

func TestHelpCountsCorpusAtDispatch(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.run(t, "/help"))
	assert.Contains(t, f.views[0].Content, "`1-0`")

	writeCorpus(t, f.corpus, testRecords(5)...)
	require.NoError(t, f.run(t, "/help"))
	assert.Contains(t, f.views[0].Content, "`1-5`")
	assert.Contains(t, f.views[0].Content, f.corpus)
}

func TestClear(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.run(t, "hi"))

	require.NoError(t, f.run(t, "/clear"))
	assert.Equal(t, "#### Chat history cleared", f.views[0].Content)
	assert.Empty(t, f.s.History)
	assert.Empty(t, f.s.Messages)
	assert.Nil(t, f.s.Pending)
}

func TestStoreSharedPerPath(t *testing.T) {
	h := New(Options{})
	assert.Same(t, h.Store("a.jsonl"), h.Store("a.jsonl"))
	assert.NotSame(t, h.Store("a.jsonl"), h.Store("b.jsonl"))
}
