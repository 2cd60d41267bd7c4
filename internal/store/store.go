package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Room is a named chat channel with a host.
type Room struct {
	ID       string
	Name     string
	HostName string
}

// Message is a persisted chat message.
type Message struct {
	ID        string
	RoomID    string
	Sender    string
	Text      string
	CreatedAt time.Time
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new room with a server-assigned id.
	CreateRoom(ctx context.Context, name, hostName string) (*Room, error)

	// ListRooms lists all rooms ordered by descending id.
	ListRooms(ctx context.Context) ([]*Room, error)

	// GetRoomByID retrieves a room by id. Returns ErrNotFound if absent.
	GetRoomByID(ctx context.Context, id string) (*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a message with a server-assigned id and timestamp.
	CreateMessage(ctx context.Context, roomID, sender, text string) (*Message, error)

	// ListMessages retrieves a room's messages ordered by ascending creation time.
	ListMessages(ctx context.Context, roomID string) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
