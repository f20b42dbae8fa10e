package conversation

import "strings"

// Event is an inbound chat event.
type Event interface {
	isEvent()
}

// Text is a free-text message.
type Text struct {
	Text string
}

// Command is a slash command. Name is lower-case without the slash or bot mention.
type Command struct {
	Name string
	Args string
}

// Callback is a button press carrying a token built by Token.
type Callback struct {
	Token string
}

func (Text) isEvent()     {}
func (Command) isEvent()  {}
func (Callback) isEvent() {}

// Actor is the user behind an event. IsAdmin is resolved by the caller at event time.
type Actor struct {
	UserID  int64
	Name    string
	IsAdmin bool
}

// ParseMessage classifies message text as a Command when it starts with a slash,
// otherwise as Text. "/cmd@botname args" yields Command{Name: "cmd", Args: "args"}.
func ParseMessage(text string) Event {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") || len(trimmed) == 1 {
		return Text{Text: text}
	}

	head, args, _ := strings.Cut(trimmed[1:], " ")
	name, _, _ := strings.Cut(head, "@")
	return Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}
}
