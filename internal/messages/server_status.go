package messages

import (
	"github.com/google/uuid"

	"github.com/DSroD/PyCon/internal/pubsub"
)

// ServerStatusMessage is the sum of connection lifecycle events emitted by
// the per-server RCON services.
type ServerStatusMessage interface {
	// StatusServerUID identifies the server the event belongs to.
	StatusServerUID() uuid.UUID
}

// RconConnected signals the RCON connection to a server was established.
type RconConnected struct {
	ServerUID uuid.UUID
}

func (m RconConnected) StatusServerUID() uuid.UUID { return m.ServerUID }

// RconDisconnected signals the RCON connection to a server ended.
type RconDisconnected struct {
	ServerUID uuid.UUID
}

func (m RconDisconnected) StatusServerUID() uuid.UUID { return m.ServerUID }

// ServerStatusTopic is the channel connection lifecycle events are
// published on.
var ServerStatusTopic = pubsub.NewTopic[ServerStatusMessage]("server_status")
