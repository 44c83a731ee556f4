package chat

import (
	"testing"

	"github.com/pkg/errors"
	apiError "github.com/techagentng/sakany/errors"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantErr  bool
	}{
		{"message", `{"type":"message","receiverId":2,"content":"hi"}`, FrameMessage, false},
		{"ping", `{"type":"ping"}`, FramePing, false},
		{"not json", `hello`, "", true},
		{"missing type", `{"receiverId":2}`, "", true},
		{"unknown type", `{"type":"typing"}`, "", true},
		{"receiver not a number", `{"type":"message","receiverId":"two","content":"hi"}`, "", true},
		{"missing receiver", `{"type":"message","content":"hi"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeFrame([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, apiError.ErrValidation) {
					t.Fatalf("err = %v, want a validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if frame.Type() != tt.wantType {
				t.Fatalf("type = %s, want %s", frame.Type(), tt.wantType)
			}
		})
	}
}

func TestDecodeMessageFrameFields(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"type":"message","receiverId":7,"content":"  hello "}`))
	if err != nil {
		t.Fatal(err)
	}
	m, ok := frame.(*MessageFrame)
	if !ok {
		t.Fatalf("got %T, want *MessageFrame", frame)
	}
	if m.ReceiverID != 7 || m.Content != "  hello " {
		t.Errorf("got %+v", m)
	}
}
