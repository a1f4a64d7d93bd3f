// Package corpus stores regression test cases captured from chat sessions.
// The corpus is a JSONL file: one record per line, append-only, and a
// record's 1-based line number is its test number.
package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"

	"copilotbench/internal/pipeline"
)

// Record is one captured test case: the conversation before the question,
// the question itself and the customer it was asked for. The answer is not
// stored; replaying the record regenerates it.
type Record struct {
	CustomerID  CustomerID          `json:"customerId"`
	ChatHistory []pipeline.FlowTurn `json:"chat_history"`
	Question    string              `json:"question"`
	Context     *Context            `json:"context,omitempty"`
}

// Context is the context the answer pipeline returned when the record was
// captured, in the shape the evaluation flow consumes.
type Context struct {
	CustomerData map[string]any   `json:"customerData"`
	Citations    []map[string]any `json:"citations"`
}

// NewContext converts a pipeline context into its record form.
func NewContext(c *pipeline.Context) *Context {
	if c.IsEmpty() {
		return nil
	}
	return &Context{CustomerData: c.CustomerData, Citations: c.Citations}
}

// CustomerID accepts both JSON strings and numbers so that hand-written
// corpora with numeric ids still parse. It always marshals as a string.
type CustomerID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *CustomerID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CustomerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("customerId must be a string or a number: %w", err)
	}
	*id = CustomerID(n.String())
	return nil
}

// Messages returns the record's chat history as role/content messages.
func (r *Record) Messages() []pipeline.Message {
	return pipeline.FromFlowHistory(r.ChatHistory)
}

// Entry is one line of the corpus file. Exactly one of Record and Err is
// set.
type Entry struct {
	Number int
	Record *Record
	Err    error
}

func parseEntry(number int, line []byte) Entry {
	entry := Entry{Number: number}
	if len(bytes.TrimSpace(line)) == 0 {
		entry.Err = fmt.Errorf("test case %d is empty", number)
		return entry
	}
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		entry.Err = fmt.Errorf("test case %d is malformed: %w", number, err)
		return entry
	}
	entry.Record = &rec
	return entry
}
