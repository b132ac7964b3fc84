package realtime

import "encoding/json"

// Client-emitted and server-emitted event names. These, and the payload
// shapes below, are the wire compatibility surface.
const (
	EventSetup           = "setup"
	EventConnected       = "connected"
	EventJoinChat        = "join chat"
	EventTyping          = "typing"
	EventStopTyping      = "stop typing"
	EventNewMessage      = "new message"
	EventMessageReceived = "message received"
	EventNewChat         = "new chat"
)

// Event is the JSON envelope carried on the websocket in both directions.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SetupPayload struct {
	ID string `json:"_id"`
}

type UserRef struct {
	ID string `json:"_id"`
}

type ChatRef struct {
	ID    string    `json:"_id"`
	Users []UserRef `json:"users"`
}

// MessagePayload extracts only what fan-out needs. The payload itself is
// relayed to recipients untouched.
type MessagePayload struct {
	Chat   *ChatRef `json:"chat"`
	Sender UserRef  `json:"sender"`
}

func marshalString(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}
