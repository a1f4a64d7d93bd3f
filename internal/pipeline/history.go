package pipeline

// FlowTurn is one entry of a prompt-flow chat_history:
//
//	{"inputs": {"question": "..."}, "outputs": {"answer": "..."}}
//
// Either side may be missing so that unanswered questions and
// consecutive same-role messages survive the conversion.
type FlowTurn struct {
	Inputs  FlowInputs  `json:"inputs"`
	Outputs FlowOutputs `json:"outputs"`
}

// FlowInputs holds the user side of a flow turn.
type FlowInputs struct {
	Question *string `json:"question,omitempty"`
}

// FlowOutputs holds the assistant side of a flow turn.
type FlowOutputs struct {
	Answer *string `json:"answer,omitempty"`
}

// ToFlowHistory converts role/content messages into flow turns. A user
// message opens a turn; an assistant message closes the open turn or, if
// there is none, becomes an answer-only turn. Any role other than user is
// treated as assistant output.
func ToFlowHistory(messages []Message) []FlowTurn {
	turns := make([]FlowTurn, 0, (len(messages)+1)/2)
	for _, msg := range messages {
		content := msg.Content
		if msg.Role == RoleUser {
			turns = append(turns, FlowTurn{Inputs: FlowInputs{Question: &content}})
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].Outputs.Answer == nil {
			turns[n-1].Outputs.Answer = &content
			continue
		}
		turns = append(turns, FlowTurn{Outputs: FlowOutputs{Answer: &content}})
	}
	return turns
}

// FromFlowHistory converts flow turns back into role/content messages.
// Turns with neither side set produce nothing.
func FromFlowHistory(turns []FlowTurn) []Message {
	messages := make([]Message, 0, len(turns)*2)
	for _, turn := range turns {
		if turn.Inputs.Question != nil {
			messages = append(messages, Message{Role: RoleUser, Content: *turn.Inputs.Question})
		}
		if turn.Outputs.Answer != nil {
			messages = append(messages, Message{Role: RoleAssistant, Content: *turn.Outputs.Answer})
		}
	}
	return messages
}
