package rpc

import (
	"encoding/json"
)

type FrameType string

const (
	FrameCall   FrameType = "call"
	FrameCancel FrameType = "cancel"

	FrameResult FrameType = "result"
	FrameEvent  FrameType = "event"
	FrameEnd    FrameType = "end"
	FrameError  FrameType = "error"
	FrameNotice FrameType = "notice"
)

// Request is an inbound frame. Calls and streams share an id space chosen
// by the client; a cancel frame refers to the id of an open stream.
type Request struct {
	ID     uint64          `json:"id"`
	Type   FrameType       `json:"type"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	ID     uint64    `json:"id,omitempty"`
	Type   FrameType `json:"type"`
	Result any       `json:"result,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// EncodeNotice builds an id-less notice frame.
func EncodeNotice(message string) []byte {
	b, _ := json.Marshal(Response{Type: FrameNotice, Error: message})
	return b
}
