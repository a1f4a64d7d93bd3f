package command

import (
	"fmt"
	"strings"
)

// Info describes a command for matching and for the help listing.
type Info struct {
	Kind  Kind
	Name  string
	Usage []Usage
}

// Usage is one help line. Description may contain {test_set} and {range}.
type Usage struct {
	Syntax      string
	Description string
}

// Registry lists the commands in matching order.
var Registry = []Info{
	{
		Kind: KindConfig,
		Name: "/config",
		Usage: []Usage{
			{"/config", "show the current configuration"},
			{"/config <name> <value>", "set the configuration value"},
		},
	},
	{
		Kind:  KindEval,
		Name:  "/eval",
		Usage: []Usage{{"/eval", "evaluate the current conversation"}},
	},
	{
		Kind:  KindAddTest,
		Name:  "/add_test",
		Usage: []Usage{{"/add_test", "add the current conversation to the test set (`{test_set}`)"}},
	},
	{
		Kind:  KindHelp,
		Name:  "/help",
		Usage: []Usage{{"/help", "show this help message"}},
	},
	{
		Kind:  KindClear,
		Name:  "/clear",
		Usage: []Usage{{"/clear", "clear the chat history"}},
	},
	{
		Kind: KindTest,
		Name: "/test",
		Usage: []Usage{{"/test [<number>]",
			"run the test case with the given number (`{range}`). If no number is given, run the last test case."}},
	},
	{
		Kind:  KindListTests,
		Name:  "/list_tests",
		Usage: []Usage{{"/list_tests", "list all test cases"}},
	},
}

// Lookup returns the registry entry for kind, or nil for chat.
func Lookup(kind Kind) *Info {
	for i := range Registry {
		if Registry[i].Kind == kind {
			return &Registry[i]
		}
	}
	return nil
}

// Help renders the command listing as markdown. count is the current
// corpus size and bounds the /test range.
func Help(testSet string, count int) string {
	r := strings.NewReplacer(
		"{test_set}", testSet,
		"{range}", fmt.Sprintf("1-%d", count),
	)

	var sb strings.Builder
	sb.WriteString("#### Commands:\n")
	for _, info := range Registry {
		for _, u := range info.Usage {
			fmt.Fprintf(&sb, "- `%s` - %s\n", u.Syntax, r.Replace(u.Description))
		}
	}
	sb.WriteString("- anything else - continue the conversation\n")
	return sb.String()
}
