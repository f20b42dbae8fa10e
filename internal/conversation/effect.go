package conversation

// Effect is an outbound side effect produced by a transition. Effects are
// applied in order by the transport.
type Effect interface {
	isEffect()
}

// Option is a selectable choice rendered next to a message.
type Option struct {
	Label string
	Token string
}

// Reply sends a new message to the conversation's chat.
type Reply struct {
	Text    string
	Options [][]Option
}

// EditPrompt replaces the message that carried the pressed button. Without such a
// message it is delivered as a Reply.
type EditPrompt struct {
	Text    string
	Options [][]Option
}

// ClearPrompt deletes the message that carried the pressed button.
type ClearPrompt struct{}

// Notice is a short acknowledgement of a button press.
type Notice struct {
	Text string
}

// PublishCommands installs the command list for the conversation's chat.
type PublishCommands struct {
	Admin bool
}

func (Reply) isEffect()           {}
func (EditPrompt) isEffect()      {}
func (ClearPrompt) isEffect()     {}
func (Notice) isEffect()          {}
func (PublishCommands) isEffect() {}

// Outcome is the result of handling one event.
type Outcome struct {
	// State is the conversation state after the event.
	State State
	// Saved reports whether State was written to the state store.
	Saved   bool
	Effects []Effect
}
