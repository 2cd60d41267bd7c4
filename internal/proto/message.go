package proto

import (
	"encoding/json"
	"strings"
)

const (
	// DefaultSender is used when a frame omits the sender field.
	DefaultSender = "Anon"
	// FallbackSender marks frames that could not be parsed as JSON.
	FallbackSender = "unknown"
)

// Inbound is a chat frame received from a client.
type Inbound struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Outbound is the broadcast record sent to every client in a room.
type Outbound struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// DecodeInbound parses a raw text frame into an Inbound record.
// A missing sender defaults to DefaultSender. Malformed frames are never
// rejected: the whole raw frame becomes the text, attributed to FallbackSender.
func DecodeInbound(raw []byte) Inbound {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{Sender: FallbackSender, Text: string(raw)}
	}
	if strings.TrimSpace(in.Sender) == "" {
		in.Sender = DefaultSender
	}
	return in
}
