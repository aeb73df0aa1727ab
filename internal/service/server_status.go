package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/pubsub"
)

// ServerStatusService folds connection lifecycle events into a queryable
// per-server online map, so newly opened consoles can render the current
// state without waiting for the next event.
type ServerStatusService struct {
	bus *pubsub.Bus

	mu     sync.RWMutex
	online map[uuid.UUID]bool
}

func NewServerStatusService(bus *pubsub.Bus) *ServerStatusService {
	return &ServerStatusService{
		bus:    bus,
		online: make(map[uuid.UUID]bool),
	}
}

func (s *ServerStatusService) Name() string { return "server_status" }

func (s *ServerStatusService) Launch(ctx context.Context) error {
	sub, err := pubsub.Subscribe[messages.ServerStatusMessage](s.bus, messages.ServerStatusTopic, nil)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			s.apply(msg)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *ServerStatusService) Stop(ctx context.Context) error { return nil }

func (s *ServerStatusService) apply(msg messages.ServerStatusMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch msg.(type) {
	case messages.RconConnected:
		s.online[msg.StatusServerUID()] = true
	case messages.RconDisconnected:
		s.online[msg.StatusServerUID()] = false
	}
}

// IsOnline reports the last known connection state of a server.
func (s *ServerStatusService) IsOnline(uid uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online[uid]
}

// States snapshots the connection state of all servers seen so far.
func (s *ServerStatusService) States() map[uuid.UUID]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[uuid.UUID]bool, len(s.online))
	for uid, online := range s.online {
		snapshot[uid] = online
	}
	return snapshot
}
