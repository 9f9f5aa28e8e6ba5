package channel

import "context"

// EventKind identifies the modality of an inbound event
type EventKind string

const (
	KindText    EventKind = "text"
	KindPhoto   EventKind = "photo"
	KindVoice   EventKind = "voice"
	KindButton  EventKind = "button"
	KindCommand EventKind = "command"
)

// ButtonAction identifies what a pressed button asks for
type ButtonAction string

const (
	ActionSelectSubject ButtonAction = "subject"
	ActionSelectTask    ButtonAction = "task"
	ActionToggle        ButtonAction = "translate"
	ActionChangeSubject ButtonAction = "change_subject"
)

// Event represents an inbound event from a channel
type Event struct {
	ID        string
	Channel   string
	UserID    string
	ChatID    string
	Kind      EventKind
	Text      string
	Image     []byte
	Audio     []byte
	Action    ButtonAction // set when Kind is KindButton
	Payload   string       // subject name, task name, or cached message id
	Command   string       // set when Kind is KindCommand
	Timestamp int64
}

// Button is a single inline button attached to a reply
type Button struct {
	Label   string
	Action  ButtonAction
	Payload string
}

// Reply represents an outbound message with optional button rows
type Reply struct {
	Text    string
	Buttons [][]Button
}

// Typer is implemented by adapters that can show a typing indicator while a
// slow provider call is in flight.
type Typer interface {
	SendTyping(chatID string) error
}

// Adapter is the interface channel transports implement.
// SendMessage returns the transport-assigned id of the sent message;
// that id keys the bilingual reply cache and later EditMessage calls.
type Adapter interface {
	// Start starts the adapter and begins delivering events
	Start(ctx context.Context) error

	// Stop stops the adapter and closes the Incoming channel
	Stop() error

	// SendMessage sends a reply to a chat and returns the new message id
	SendMessage(chatID string, reply *Reply) (string, error)

	// EditMessage replaces the text and buttons of a previously sent message
	EditMessage(chatID, messageID string, reply *Reply) error

	// Incoming returns the channel of inbound events
	Incoming() <-chan *Event

	// Name returns the name of the channel adapter
	Name() string

	// IsEnabled returns whether the channel is configured
	IsEnabled() bool
}
