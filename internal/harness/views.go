package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"copilotbench/internal/corpus"
	"copilotbench/internal/pipeline"
	"copilotbench/internal/session"

	"github.com/google/uuid"
)

// View authors.
const (
	AuthorUser      = "User"
	AuthorAssistant = "Assistant"
	AuthorBench     = "Bench"
)

// View is one rendered block of the transcript. Views with a ParentID are
// details of another view (a question, the customer data, the citations).
type View struct {
	ID       uuid.UUID
	ParentID uuid.UUID
	Author   string
	// Content is markdown.
	Content string
	// Error marks views that report a failure.
	Error bool
}

// IsDetail reports whether v hangs off another view.
func (v View) IsDetail() bool {
	return v.ParentID != uuid.Nil
}

func newView(author, content string) View {
	return View{ID: uuid.New(), Author: author, Content: content}
}

func detailView(parent uuid.UUID, content string) View {
	return View{ID: uuid.New(), ParentID: parent, Author: AuthorBench, Content: content}
}

func replyView(content string) View {
	return newView(AuthorBench, content)
}

// ErrorView renders err as a reply. The first letter is capitalized so
// that sentinel messages read as headings.
func ErrorView(err error) View {
	v := replyView("#### " + capitalize(err.Error()))
	v.Error = true
	return v
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func fenced(lang, body string) string {
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return "```" + lang + "\n" + body + "```"
}

// requestView dumps what is sent to the answer pipeline.
func requestView(parent uuid.UUID, req *pipeline.ChatRequest) (View, error) {
	messages, err := pipeline.ToYAML(req.Messages)
	if err != nil {
		return View{}, err
	}
	payload, err := pipeline.ToYAML(req.Context)
	if err != nil {
		return View{}, err
	}
	return detailView(parent,
		"#### Messages:\n"+fenced("yaml", messages)+"\n#### Context:\n"+fenced("yaml", payload)), nil
}

// contextViews renders a turn's context: the customer data without its
// orders and reserved keys, one view per order under it, and one view per
// citation under a citations view.
func contextViews(parent uuid.UUID, payload *pipeline.Context) ([]View, error) {
	var views []View

	if payload.CustomerData != nil {
		info := make(map[string]any, len(payload.CustomerData))
		for k, v := range payload.CustomerData {
			if k == "orders" || strings.HasPrefix(k, "_") {
				continue
			}
			info[k] = v
		}
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to render customer data: %w", err)
		}
		customer := detailView(parent, "#### Customer Data:\n"+fenced("json", string(data)))
		views = append(views, customer)

		for _, order := range payload.Orders() {
			data, err := json.MarshalIndent(order, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to render order: %w", err)
			}
			views = append(views, detailView(customer.ID,
				fmt.Sprintf("## Order %v\n%s", order["id"], fenced("json", string(data)))))
		}
	}

	if payload.Citations != nil {
		citations := detailView(parent, "#### Citations:\n")
		views = append(views, citations)
		for _, item := range payload.Citations {
			views = append(views, detailView(citations.ID, citationMarkdown(item)))
		}
	}
	return views, nil
}

func citationMarkdown(item map[string]any) string {
	content := fmt.Sprint(item["content"])
	if title, ok := item["title"].(string); ok && title != "" {
		return "##### " + title + "\n" + content
	}
	return content
}

// testCaseView shows the record a turn would add to the corpus.
func testCaseView(parent uuid.UUID, rec *corpus.Record) (View, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return View{}, fmt.Errorf("failed to render test case: %w", err)
	}
	return detailView(parent, "#### Download as testcase:\n"+fenced("json", string(data))), nil
}

func reportView(report *pipeline.Report) (View, error) {
	out, err := report.YAML()
	if err != nil {
		return View{}, err
	}
	return replyView(fenced("yaml", out)), nil
}

func settingsView(settings session.Settings) View {
	var sb strings.Builder
	sb.WriteString("| **Property** | **Value** |\n| --- | --- |\n")
	for _, e := range settings.Entries() {
		fmt.Fprintf(&sb, "| %s | %s |\n", e.Key, e.Value)
	}
	return replyView(sb.String())
}

// listedTest is one /list_tests entry: the record's fields after its
// number, or an error for lines that do not parse.
type listedTest struct {
	Number int `json:"number"`
	*corpus.Record
	Error string `json:"error,omitempty"`
}

func testListView(path string, entries []corpus.Entry) (View, error) {
	if len(entries) == 0 {
		return replyView(fmt.Sprintf("#### No test cases in `%s`", path)), nil
	}
	list := make([]listedTest, len(entries))
	for i, e := range entries {
		list[i] = listedTest{Number: e.Number, Record: e.Record}
		if e.Err != nil {
			list[i].Error = e.Err.Error()
		}
	}
	out, err := pipeline.ToYAML(list)
	if err != nil {
		return View{}, err
	}
	return replyView(fenced("yaml", out)), nil
}
