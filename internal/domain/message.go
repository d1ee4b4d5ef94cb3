package domain

import (
	"encoding/json"
	"time"
)

// Message is one relayed chat message. Sender always comes from the
// authenticated connection, never from the client frame.
type Message struct {
	ID        string    `json:"_id" bson:"_id,omitempty"`
	Sender    string    `json:"sender" bson:"sender"`
	Recipient string    `json:"recipient" bson:"recipient"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ==== Wire frames ====

// InboundFrame is what a client sends to relay a chat message
type InboundFrame struct {
	Message *ChatPayload `json:"message"`
}

// ChatPayload carries the recipient and the text of an inbound message
type ChatPayload struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// Valid reports whether the payload has both a recipient and a non-empty text
func (p *ChatPayload) Valid() bool {
	return p != nil && p.Recipient != "" && p.Text != ""
}

// RelayFrame is delivered to the recipient's connections
type RelayFrame struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	ID        string `json:"_id"`
}

// NewRelayFrame builds the outbound frame for a persisted message
func NewRelayFrame(m Message) RelayFrame {
	return RelayFrame{
		Text:      m.Text,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		ID:        m.ID,
	}
}

// PresenceEntry is one connection in the online roster. Unauthenticated
// connections are reported with both fields empty.
type PresenceEntry struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
}

// PresenceFrame is broadcast to every connection when the roster changes
type PresenceFrame struct {
	Online []PresenceEntry `json:"online"`
}

// Error codes sent back to a sender in an ErrorFrame
const (
	ErrorCodeUnauthenticated = "unauthenticated"
	ErrorCodeDeliveryFailed  = "delivery_failed"
	ErrorCodeOverloaded      = "overloaded"
)

// ErrorFrame tells the sender why its message was not relayed
type ErrorFrame struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the payload of an ErrorFrame
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals any outbound frame. Frames are plain structs, so this
// only fails on programmer error.
func Encode(frame interface{}) []byte {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil
	}
	return data
}
