package ws

import "strings"

// CommandKind tags a parsed inbound frame.
type CommandKind int

const (
	// CommandRaw is any frame without a recognized control prefix.
	CommandRaw CommandKind = iota
	// CommandDirect addresses one client: /send_to <clientId> <body>.
	CommandDirect
	// CommandGroup fans out to the sender's group: /group <body>.
	CommandGroup
	// CommandBroadcast fans out hub-wide: /broadcast <body>.
	CommandBroadcast
)

// Command is the parsed form of an inbound text frame.
type Command struct {
	Kind   CommandKind
	Target string
	Body   string
}

const (
	prefixDirect    = "/send_to "
	prefixGroup     = "/group "
	prefixBroadcast = "/broadcast "
)

// ParseCommand classifies one inbound frame. Malformed control frames
// (a /send_to without a target or body) degrade to CommandRaw so the
// connection keeps working.
func ParseCommand(frame []byte) Command {
	text := string(frame)

	switch {
	case strings.HasPrefix(text, prefixDirect):
		rest := text[len(prefixDirect):]
		target, body, ok := strings.Cut(rest, " ")
		if !ok || target == "" {
			return Command{Kind: CommandRaw, Body: text}
		}
		return Command{Kind: CommandDirect, Target: target, Body: body}

	case strings.HasPrefix(text, prefixGroup):
		return Command{Kind: CommandGroup, Body: text[len(prefixGroup):]}

	case strings.HasPrefix(text, prefixBroadcast):
		return Command{Kind: CommandBroadcast, Body: text[len(prefixBroadcast):]}

	default:
		return Command{Kind: CommandRaw, Body: text}
	}
}
