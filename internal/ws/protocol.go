package ws

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
)

// Inbound message types.
const (
	InSubscribe     = "subscribe"
	InUnsubscribe   = "unsubscribe"
	InRequestVessel = "request:vessel"
	InPing          = "ping"

	legacySubscribePrefix = "subscribe:"
)

var errBadRequest = errors.New("bad request")

// Inbound is a client to server frame.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ChannelPayload struct {
	Channel string `json:"channel"`
}

// VesselRequest accepts vessel_id or vesselId, as a number or a numeric
// string.
type VesselRequest struct {
	VesselID      flexID `json:"vessel_id"`
	VesselIDCamel flexID `json:"vesselId"`
}

func (r VesselRequest) ID() (int64, bool) {
	if r.VesselID.set {
		return r.VesselID.v, true
	}
	if r.VesselIDCamel.set {
		return r.VesselIDCamel.v, true
	}
	return 0, false
}

type flexID struct {
	v   int64
	set bool
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("vessel id %s is not an integer", data)
	}
	f.v, f.set = v, true
	return nil
}

// Command is a decoded inbound frame.
type Command struct {
	Type     string
	Channel  subscription.Channel
	VesselID int64
}

// ParseCommand decodes and validates one inbound frame. The legacy
// "subscribe:<channel>" form maps to subscribe.
func ParseCommand(data []byte) (Command, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Command{}, fmt.Errorf("%w: malformed frame", errBadRequest)
	}

	switch {
	case strings.HasPrefix(in.Type, legacySubscribePrefix):
		ch, err := subscription.ParseChannel(strings.TrimPrefix(in.Type, legacySubscribePrefix))
		if err != nil {
			return Command{}, err
		}
		return Command{Type: InSubscribe, Channel: ch}, nil

	case in.Type == InSubscribe || in.Type == InUnsubscribe:
		var p ChannelPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return Command{}, err
		}
		ch, err := subscription.ParseChannel(p.Channel)
		if err != nil {
			return Command{}, err
		}
		return Command{Type: in.Type, Channel: ch}, nil

	case in.Type == InRequestVessel:
		var p VesselRequest
		if err := decodePayload(in.Payload, &p); err != nil {
			return Command{}, err
		}
		id, ok := p.ID()
		if !ok {
			return Command{}, fmt.Errorf("%w: vessel_id is required", errBadRequest)
		}
		return Command{Type: InRequestVessel, VesselID: id}, nil

	case in.Type == InPing:
		return Command{Type: InPing}, nil
	}
	return Command{}, fmt.Errorf("%w: unknown message type %q", errBadRequest, in.Type)
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", errBadRequest)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// ConnectionPayload greets a new connection.
type ConnectionPayload struct {
	Data   string `json:"data"`
	ConnID string `json:"connId"`
	Role   string `json:"role"`
}

type SubscriptionPayload struct {
	Channel subscription.Channel `json:"channel"`
}

type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}
