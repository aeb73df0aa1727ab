package model

import (
	"net"
	"strconv"

	"github.com/google/uuid"
)

// ServerType identifies the game a server runs, which decides the RCON
// payload encoding and response formatting.
type ServerType string

const (
	SourceServer    ServerType = "SOURCE_SERVER"
	MinecraftServer ServerType = "MINECRAFT_SERVER"
)

// Server is an immutable snapshot of a managed game server. Services that
// hold one for a long time refetch it through a supplier so edits take
// effect on the next reconnect.
type Server struct {
	UID          uuid.UUID
	Type         ServerType
	Name         string
	Host         string
	Port         int
	RconPort     int
	RconPassword string
	Description  string
}

// RconAddr returns the host:port string of the server's RCON endpoint.
func (s Server) RconAddr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.RconPort))
}
