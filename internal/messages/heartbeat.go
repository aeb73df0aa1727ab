// Package messages defines the bus message types and topic constructors
// shared by the services, the WebSocket processors and their converters.
package messages

import (
	"time"

	"github.com/DSroD/PyCon/internal/pubsub"
)

// HeartbeatMessage carries the timestamp of one heartbeat tick.
type HeartbeatMessage struct {
	Timestamp time.Time
}

// HeartbeatTopic is the channel heartbeat ticks are published on.
var HeartbeatTopic = pubsub.NewTopic[HeartbeatMessage]("heartbeat")
