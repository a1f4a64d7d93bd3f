// Package session holds the state of one conversation: its settings, the
// two message sequences and the pending test case.
package session

import (
	"copilotbench/internal/config"
	"copilotbench/internal/corpus"
	"copilotbench/internal/pipeline"

	"github.com/google/uuid"
)

// Message is a conversation message as shown to the operator. Assistant
// messages carry the context the pipeline returned with them.
type Message struct {
	Role    string
	Content string
	Context *pipeline.Context
}

// Session is the state of one conversation. It is owned by a single event
// loop and is not safe for concurrent use.
type Session struct {
	// ID changes on every reset so that views of an old conversation can
	// be told apart from the current one.
	ID       uuid.UUID
	Settings Settings

	// History is what the answer pipeline receives.
	History []pipeline.Message
	// Messages is the annotated log the evaluation reads from.
	Messages []Message
	// Pending is the test case of the most recently completed turn.
	Pending *corpus.Record
}

// New starts a conversation with settings seeded from cfg.
func New(cfg config.SessionConfig) *Session {
	return &Session{
		ID:       uuid.New(),
		Settings: NewSettings(cfg),
	}
}

// Reset clears both message sequences and the pending test case. Settings
// survive.
func (s *Session) Reset() {
	s.ID = uuid.New()
	s.History = nil
	s.Messages = nil
	s.Pending = nil
}

// AppendUser appends a question to both sequences.
func (s *Session) AppendUser(content string) {
	s.History = append(s.History, pipeline.Message{Role: pipeline.RoleUser, Content: content})
	s.Messages = append(s.Messages, Message{Role: pipeline.RoleUser, Content: content})
}

// Restore appends a replayed message to both sequences.
func (s *Session) Restore(msg pipeline.Message) {
	s.History = append(s.History, msg)
	s.Messages = append(s.Messages, Message{Role: msg.Role, Content: msg.Content})
}

// CompleteTurn appends the finished answer to both sequences and makes
// rec the pending test case, replacing any earlier one.
func (s *Session) CompleteTurn(answer string, payload *pipeline.Context, rec *corpus.Record) {
	s.History = append(s.History, pipeline.Message{Role: pipeline.RoleAssistant, Content: answer})
	s.Messages = append(s.Messages, Message{Role: pipeline.RoleAssistant, Content: answer, Context: payload})
	if rec != nil {
		rec.Context = corpus.NewContext(payload)
	}
	s.Pending = rec
}

// LastTurn returns the final question/answer pair and the messages before
// it. ok is false unless the log ends with an assistant message directly
// preceded by a user message.
func (s *Session) LastTurn() (before []Message, question, answer Message, ok bool) {
	n := len(s.Messages)
	if n < 2 {
		return nil, Message{}, Message{}, false
	}
	question, answer = s.Messages[n-2], s.Messages[n-1]
	if question.Role != pipeline.RoleUser || answer.Role != pipeline.RoleAssistant {
		return nil, Message{}, Message{}, false
	}
	return s.Messages[:n-2], question, answer, true
}

// ToPipeline strips the annotations from messages.
func ToPipeline(messages []Message) []pipeline.Message {
	out := make([]pipeline.Message, len(messages))
	for i, m := range messages {
		out[i] = pipeline.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
