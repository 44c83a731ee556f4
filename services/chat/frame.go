package chat

import (
	"encoding/json"
	"fmt"

	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
)

const (
	FrameMessage = "message"
	FramePing    = "ping"
	FramePong    = "pong"
	FrameError   = "error"
)

// Frame is a decoded client frame: *MessageFrame or *PingFrame.
type Frame interface {
	Type() string
}

type MessageFrame struct {
	ReceiverID uint   `json:"receiverId"`
	Content    string `json:"content"`
}

func (*MessageFrame) Type() string { return FrameMessage }

type PingFrame struct{}

func (*PingFrame) Type() string { return FramePing }

// OutboundFrame is everything the server writes to a client.
type OutboundFrame struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func messageFrame(m *models.Message) OutboundFrame {
	return OutboundFrame{Type: FrameMessage, Message: m}
}

func errorFrame(err error) OutboundFrame {
	return OutboundFrame{Type: FrameError, Error: err.Error()}
}

var pongFrame = OutboundFrame{Type: FramePong}

// DecodeFrame parses a raw client frame by its "type" discriminator. Every
// failure is a validation error.
func DecodeFrame(data []byte) (Frame, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, apiError.Validation("malformed frame")
	}

	switch envelope.Type {
	case FrameMessage:
		var f MessageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, apiError.Validation("malformed message frame")
		}
		if f.ReceiverID == 0 {
			return nil, apiError.Validation("receiverId is required")
		}
		return &f, nil
	case FramePing:
		return &PingFrame{}, nil
	case "":
		return nil, apiError.Validation("frame type is required")
	default:
		return nil, apiError.Validation(fmt.Sprintf("unknown frame type %q", envelope.Type))
	}
}
