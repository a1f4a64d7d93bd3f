// Package command classifies operator input into the closed set of bench
// commands. Input is parsed once; each command carries its arguments.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a command.
type Kind int

const (
	KindChat Kind = iota
	KindConfig
	KindEval
	KindAddTest
	KindHelp
	KindClear
	KindTest
	KindListTests
)

// String returns the command keyword, or "chat".
func (k Kind) String() string {
	if info := Lookup(k); info != nil {
		return info.Name
	}
	if k == KindChat {
		return "chat"
	}
	return "unknown"
}

// ErrInvalidTestNumber is reported for a /test argument that is not an
// integer.
var ErrInvalidTestNumber = errors.New("invalid test case number")

// Command is one classified input.
type Command struct {
	Kind Kind
	// Input is the whole utterance, trimmed. For chat it is the question.
	Input string

	Config ConfigArgs
	Test   TestArg
}

// ConfigArgs are the arguments of /config. Without a name and a value the
// command lists the settings.
type ConfigArgs struct {
	Name  string
	Value string
}

// IsSet reports whether the command assigns a setting.
func (a ConfigArgs) IsSet() bool {
	return a.Name != ""
}

// TestArg is the argument of /test.
type TestArg struct {
	// Number is the requested 1-based test number. Zero with Err nil
	// means the last test case.
	Number int
	// Raw is the argument as typed.
	Raw string
	// Err is set when Raw is not an integer.
	Err error
}

// Last reports whether no test number was given.
func (a TestArg) Last() bool {
	return a.Raw == ""
}

// Parse classifies input. Keywords are matched as prefixes in registry
// order and the first match wins; anything else is a chat message.
func Parse(input string) Command {
	input = strings.TrimSpace(input)
	cmd := Command{Kind: KindChat, Input: input}

	for _, info := range Registry {
		if strings.HasPrefix(input, info.Name) {
			cmd.Kind = info.Kind
			break
		}
	}

	fields := strings.Fields(input)
	switch cmd.Kind {
	case KindConfig:
		// A lone name lists the settings like a bare /config.
		if len(fields) >= 3 {
			cmd.Config.Name = fields[1]
			cmd.Config.Value = strings.Join(fields[2:], " ")
		}
	case KindTest:
		if len(fields) >= 2 {
			cmd.Test.Raw = fields[1]
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				cmd.Test.Err = fmt.Errorf("%w `%s`", ErrInvalidTestNumber, fields[1])
			} else {
				cmd.Test.Number = n
			}
		}
	}
	return cmd
}
