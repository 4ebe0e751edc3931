package models

import (
	"encoding/json"
)

// EventName identifies a real-time event on the wire.
type EventName string

// Events sent by clients.
const (
	EventMessage     EventName = "message"
	EventUserOnline  EventName = "userOnline"
	EventUserOffline EventName = "userOffline"
)

// Events sent to clients.
const (
	EventRefreshConversations EventName = "refreshConversations"
	EventUserOnlineSuccess    EventName = "userOnlineSuccess"
	EventUserOnlineError      EventName = "userOnlineError"
	EventUserOfflineSuccess   EventName = "userOfflineSuccess"
	EventUserOfflineError     EventName = "userOfflineError"
	EventError                EventName = "error"
	EventUpdatedMessages      EventName = "updatedMessages"
	EventNewMessage           EventName = "newMessage"
	EventGetNotification      EventName = "getNotification"
	EventRefreshCalendar      EventName = "refreshCalendar"
	EventUpdatedConversations EventName = "updatedConversations"
)

// Event is an outbound real-time event. The set of implementations is closed:
// only types in this package satisfy it.
type Event interface {
	// Name is the event name clients subscribe to.
	Name() EventName
	// Args are the positional arguments delivered with the event.
	Args() []any

	sealed()
}

// Frame is the wire envelope for real-time messages in both directions:
// {"event": "<name>", "args": [...]}.
type Frame struct {
	Event EventName         `json:"event"`
	Args  []json.RawMessage `json:"args,omitempty"`
}

// Arg returns the i-th argument, or JSON null when it is absent.
func (f Frame) Arg(i int) json.RawMessage {
	if i < 0 || i >= len(f.Args) {
		return nil
	}
	return f.Args[i]
}

// StringArg returns the i-th argument when it is a JSON string, "" otherwise.
func (f Frame) StringArg(i int) string {
	var s string
	if err := json.Unmarshal(f.Arg(i), &s); err != nil {
		return ""
	}
	return s
}

// Encode marshals an event into its wire frame.
func Encode(e Event) ([]byte, error) {
	args := e.Args()
	if args == nil {
		args = []any{}
	}
	return json.Marshal(struct {
		Event EventName `json:"event"`
		Args  []any     `json:"args"`
	}{Event: e.Name(), Args: args})
}

// Decode parses an inbound wire frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// raw forwards an optional JSON value verbatim, absent values become null.
func raw(m json.RawMessage) json.RawMessage {
	if len(m) == 0 {
		return json.RawMessage("null")
	}
	return m
}

// Message is a client chat message rebroadcast to everyone.
type Message struct {
	Payload json.RawMessage
}

func (Message) Name() EventName { return EventMessage }
func (e Message) Args() []any   { return []any{raw(e.Payload)} }
func (Message) sealed()         {}

// RefreshConversations tells clients that presence-dependent state changed.
type RefreshConversations struct{}

func (RefreshConversations) Name() EventName { return EventRefreshConversations }
func (RefreshConversations) Args() []any     { return nil }
func (RefreshConversations) sealed()         {}

// RefreshCalendar tells clients to reload calendar data.
type RefreshCalendar struct{}

func (RefreshCalendar) Name() EventName { return EventRefreshCalendar }
func (RefreshCalendar) Args() []any     { return nil }
func (RefreshCalendar) sealed()         {}

// PresenceSuccess is the reply to a presence request the directory accepted.
type PresenceSuccess struct {
	Online    bool
	UserEmail string
	Timestamp string
}

func (e PresenceSuccess) Name() EventName {
	if e.Online {
		return EventUserOnlineSuccess
	}
	return EventUserOfflineSuccess
}

func (e PresenceSuccess) Args() []any {
	return []any{struct {
		UserEmail string `json:"userEmail"`
		Timestamp string `json:"timestamp"`
	}{e.UserEmail, e.Timestamp}}
}

func (PresenceSuccess) sealed() {}

// PresenceError is the reply to a presence request that failed upstream.
// Type is empty for unexpected status codes.
type PresenceError struct {
	Online    bool
	UserEmail string
	Error     string
	Type      string
}

func (e PresenceError) Name() EventName {
	if e.Online {
		return EventUserOnlineError
	}
	return EventUserOfflineError
}

func (e PresenceError) Args() []any {
	return []any{struct {
		UserEmail string `json:"userEmail"`
		Error     string `json:"error"`
		Type      string `json:"type,omitempty"`
	}{e.UserEmail, e.Error, e.Type}}
}

func (PresenceError) sealed() {}

// Error reports a request the relay rejected before doing any work.
type Error struct {
	Type    string
	Message string
}

func (Error) Name() EventName { return EventError }

func (e Error) Args() []any {
	return []any{struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{e.Type, e.Message}}
}

func (Error) sealed() {}

// UpdatedMessages carries a message list refresh for a conversation.
type UpdatedMessages struct {
	Messages       json.RawMessage
	ConversationID json.RawMessage
}

func (UpdatedMessages) Name() EventName { return EventUpdatedMessages }
func (e UpdatedMessages) Args() []any {
	return []any{raw(e.Messages), raw(e.ConversationID)}
}
func (UpdatedMessages) sealed() {}

// NewMessage carries a single new message for a conversation.
type NewMessage struct {
	Message        json.RawMessage
	ConversationID json.RawMessage
}

func (NewMessage) Name() EventName { return EventNewMessage }
func (e NewMessage) Args() []any {
	return []any{raw(e.Message), raw(e.ConversationID)}
}
func (NewMessage) sealed() {}

// UpdatedConversations carries a conversation list refresh.
type UpdatedConversations struct {
	Conversations json.RawMessage
}

func (UpdatedConversations) Name() EventName { return EventUpdatedConversations }
func (e UpdatedConversations) Args() []any   { return []any{raw(e.Conversations)} }
func (UpdatedConversations) sealed()         {}

// Notification carries a notification along with the email of the user it
// concerns. Every client receives it; clients filter on UserEmail.
type Notification struct {
	Notification json.RawMessage
	UserEmail    json.RawMessage
}

func (Notification) Name() EventName { return EventGetNotification }
func (e Notification) Args() []any {
	return []any{raw(e.Notification), raw(e.UserEmail)}
}
func (Notification) sealed() {}
