package chat

import "github.com/jorgedlr/listening-rooms/internal/proto"

// sendBuffer bounds how many undelivered frames a connection may queue
// before broadcasts start skipping it.
const sendBuffer = 32

// Client is one live connection as seen by the registry. It has no identity
// beyond the handle itself; two tabs from the same person are two clients.
type Client struct {
	ID     string
	Events chan proto.Outbound
}

// NewClient constructs a client with an initialized outbound channel.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan proto.Outbound, sendBuffer),
	}
}
