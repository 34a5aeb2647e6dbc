// Package gateway implements the persistent streaming client that receives
// real-time channel updates. The protocol is a JSON frame stream: every
// frame is an envelope tagged with an integer op code, and the shape of the
// payload depends on the op.
package gateway

import (
	"encoding/json"
	"fmt"
)

// Op codes used by the gateway protocol.
const (
	// OpDispatch carries a named event; the event type is in the "t" field.
	OpDispatch = 0
	// OpHeartbeat is sent by the client on the interval announced in Hello.
	OpHeartbeat = 1
	// OpIdentify authenticates the connection after Hello.
	OpIdentify = 2
	// OpHello is the first frame the server sends; its payload carries the
	// heartbeat interval.
	OpHello = 10
	// OpHeartbeatAck acknowledges a client heartbeat.
	OpHeartbeatAck = 11
)

// EventChannelUpdate is the dispatch event type reporting a channel change.
const EventChannelUpdate = "CHANNEL_UPDATE"

// Message is the wire-level envelope for every gateway frame. Payloads are
// left raw and decoded in a second stage, since their shape depends on Op.
type Message struct {
	Op   int             `json:"op"`
	Seq  *int64          `json:"s,omitempty"`
	Type string          `json:"t,omitempty"`
	Data json.RawMessage `json:"d,omitempty"`
}

// HelloData is the payload of an OpHello frame.
type HelloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// IdentifyData is the payload of an OpIdentify frame.
type IdentifyData struct {
	Token      string             `json:"token"`
	Properties IdentifyProperties `json:"properties"`
}

// IdentifyProperties describes the client to the server. The values mimic
// a desktop browser session.
type IdentifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// ProtocolError reports a frame that doesn't conform to the protocol:
// undecodable envelope, unexpected op, or malformed payload. The owning
// connection is dropped and retried; the error never propagates further.
type ProtocolError struct {
	Op  int
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("gateway protocol error (op %d): %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// DecodeMessage parses the envelope of one inbound frame.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, &ProtocolError{Err: fmt.Errorf("failed to decode envelope: %w", err)}
	}
	return msg, nil
}

// HelloInterval extracts the heartbeat interval from a Hello frame. The
// frame must be OpHello with a payload carrying heartbeat_interval.
func HelloInterval(msg Message) (int64, error) {
	if msg.Op != OpHello {
		return 0, &ProtocolError{Op: msg.Op, Err: fmt.Errorf("expected op %d, got op %d", OpHello, msg.Op)}
	}
	if msg.Data == nil {
		return 0, &ProtocolError{Op: msg.Op, Err: fmt.Errorf("hello frame missing payload")}
	}

	var hello HelloData
	if err := json.Unmarshal(msg.Data, &hello); err != nil {
		return 0, &ProtocolError{Op: msg.Op, Err: fmt.Errorf("failed to decode hello payload: %w", err)}
	}
	if hello.HeartbeatInterval <= 0 {
		return 0, &ProtocolError{Op: msg.Op, Err: fmt.Errorf("invalid heartbeat interval %d", hello.HeartbeatInterval)}
	}

	return hello.HeartbeatInterval, nil
}

// EncodeIdentify builds the authentication frame sent after Hello.
func EncodeIdentify(token string) ([]byte, error) {
	payload, err := json.Marshal(IdentifyData{
		Token: token,
		Properties: IdentifyProperties{
			OS:      "linux",
			Browser: "Chrome",
			Device:  "Chrome",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal identify payload: %w", err)
	}

	return json.Marshal(Message{Op: OpIdentify, Data: payload})
}

// EncodeHeartbeat builds a heartbeat frame.
func EncodeHeartbeat() ([]byte, error) {
	return json.Marshal(Message{Op: OpHeartbeat})
}
