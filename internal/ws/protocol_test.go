package ws

import (
	"errors"
	"testing"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Command
		wantErr error
	}{
		{"subscribe", `{"type":"subscribe","payload":{"channel":"vessels"}}`,
			Command{Type: InSubscribe, Channel: subscription.Vessels}, nil},
		{"legacy subscribe", `{"type":"subscribe:health"}`,
			Command{Type: InSubscribe, Channel: subscription.Health}, nil},
		{"unsubscribe", `{"type":"unsubscribe","payload":{"channel":"ships"}}`,
			Command{Type: InUnsubscribe, Channel: subscription.Ships}, nil},
		{"vessel snake", `{"type":"request:vessel","payload":{"vessel_id":7}}`,
			Command{Type: InRequestVessel, VesselID: 7}, nil},
		{"vessel camel string", `{"type":"request:vessel","payload":{"vesselId":"12"}}`,
			Command{Type: InRequestVessel, VesselID: 12}, nil},
		{"ping", `{"type":"ping"}`, Command{Type: InPing}, nil},

		{"unknown channel", `{"type":"subscribe","payload":{"channel":"weather"}}`,
			Command{}, subscription.ErrUnknownChannel},
		{"legacy unknown channel", `{"type":"subscribe:weather"}`,
			Command{}, subscription.ErrUnknownChannel},
		{"missing payload", `{"type":"subscribe"}`, Command{}, errBadRequest},
		{"missing vessel id", `{"type":"request:vessel","payload":{}}`, Command{}, errBadRequest},
		{"non-integer vessel id", `{"type":"request:vessel","payload":{"vessel_id":"abc"}}`, Command{}, errBadRequest},
		{"unknown type", `{"type":"launch"}`, Command{}, errBadRequest},
		{"malformed", `{"type":`, Command{}, errBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand([]byte(tt.in))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseCommand() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
