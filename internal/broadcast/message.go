package broadcast

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
)

// MessageType is the type of a server to client frame.
type MessageType string

const (
	MsgConnectionResponse    MessageType = "connection_response"
	MsgSubscriptionConfirmed MessageType = "subscription_confirmed"
	MsgVesselsUpdate         MessageType = "vessels:update"
	MsgShipsUpdate           MessageType = "ships:update"
	MsgAnalystUpdate         MessageType = "analyst:update"
	MsgHealthUpdate          MessageType = "health:update"
	MsgNotificationsUpdate   MessageType = "notifications:update"
	MsgVesselPosition        MessageType = "vessel:position"
	MsgError                 MessageType = "error"
	MsgPong                  MessageType = "pong"
)

// UpdateType returns the push message type of a channel.
func UpdateType(ch subscription.Channel) MessageType {
	switch ch {
	case subscription.Vessels:
		return MsgVesselsUpdate
	case subscription.Ships:
		return MsgShipsUpdate
	case subscription.Analyst:
		return MsgAnalystUpdate
	case subscription.Health:
		return MsgHealthUpdate
	case subscription.Notifications:
		return MsgNotificationsUpdate
	}
	return MsgError
}

// Message is the envelope of every frame sent to a client.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

// ErrorPayload reports a failed computation or a rejected request.
type ErrorPayload struct {
	Success   bool                 `json:"success"`
	Channel   subscription.Channel `json:"channel,omitempty"`
	Message   string               `json:"message"`
	Timestamp time.Time            `json:"timestamp"`
}

// Encode marshals a message into one frame.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// ErrorMessage builds an error frame.
func ErrorMessage(ch subscription.Channel, text string, now time.Time) Message {
	return Message{
		Type: MsgError,
		Payload: ErrorPayload{
			Success:   false,
			Channel:   ch,
			Message:   text,
			Timestamp: now,
		},
	}
}
