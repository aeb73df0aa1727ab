package messages

import (
	"github.com/google/uuid"

	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/pubsub"
)

// RconCommand is a command a user asked to run on a server.
type RconCommand struct {
	IssuingUser string
	Command     string
}

// RconCommandTopic returns the per-server channel commands are published on.
func RconCommandTopic(serverUID uuid.UUID) pubsub.Topic[RconCommand] {
	return pubsub.NewTopic[RconCommand]("rcon_command/" + serverUID.String())
}

// RconResponse is the server's reply to one command, reassembled from all
// of its fragments.
type RconResponse struct {
	IssuingUser string
	ServerType  model.ServerType
	Command     string
	Response    string
}

// RconResponseTopic returns the per-server channel responses are published on.
func RconResponseTopic(serverUID uuid.UUID) pubsub.Topic[RconResponse] {
	return pubsub.NewTopic[RconResponse]("rcon_response/" + serverUID.String())
}
