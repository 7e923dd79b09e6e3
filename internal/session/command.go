package session

import (
	"strings"
	"unicode"
)

type CommandKind int

const (
	// CmdAnswer is any text that is not a command.
	CmdAnswer CommandKind = iota
	CmdStart
	CmdHelp
	CmdPractice
	CmdTheme
	CmdDaily
	CmdStatus
	CmdUnknown
)

var commands = map[string]CommandKind{
	"/start":   CmdStart,
	"/help":    CmdHelp,
	"/latihan": CmdPractice,
	"/tema":    CmdTheme,
	"/daily":   CmdDaily,
	"/status":  CmdStatus,
}

// Command is a parsed inbound text.
type Command struct {
	Kind CommandKind
	// Name is the command as typed, without the bot mention.
	Name string
	// Arg is the rest of the line for commands, the whole trimmed text for answers.
	Arg string
}

// ParseCommand recognizes the bot commands. Commands are case-insensitive and may carry a
// "@botname" suffix as sent by group chats.
func ParseCommand(text string) Command {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "/") {
		return Command{Kind: CmdAnswer, Arg: t}
	}

	name, arg := t, ""
	if i := strings.IndexFunc(t, unicode.IsSpace); i >= 0 {
		name, arg = t[:i], strings.TrimSpace(t[i:])
	}

	name = strings.ToLower(name)
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}

	kind, ok := commands[name]
	if !ok {
		kind = CmdUnknown
	}

	return Command{Kind: kind, Name: name, Arg: arg}
}
