package service

import (
	"context"
	"time"

	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/pubsub"
)

// HeartbeatService periodically publishes the current time so connected
// consoles can show the connection is alive.
type HeartbeatService struct {
	bus      *pubsub.Bus
	interval time.Duration
	now      func() time.Time
}

func NewHeartbeatService(bus *pubsub.Bus, interval time.Duration) *HeartbeatService {
	return &HeartbeatService{bus: bus, interval: interval, now: time.Now}
}

func (s *HeartbeatService) Name() string { return "heartbeat" }

func (s *HeartbeatService) Launch(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pubsub.Publish(s.bus, messages.HeartbeatTopic, messages.HeartbeatMessage{
				Timestamp: s.now(),
			})
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *HeartbeatService) Stop(ctx context.Context) error { return nil }
