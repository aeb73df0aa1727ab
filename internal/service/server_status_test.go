package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/pubsub"
)

func TestServerStatusFoldsEvents(t *testing.T) {
	bus := pubsub.NewBus(pubsub.Hooks{})
	svc := NewServerStatusService(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Launch(ctx) }()

	// Give the subscription a moment to register.
	waitFor(t, func() bool {
		pubsub.Publish(bus, messages.ServerStatusTopic,
			messages.ServerStatusMessage(messages.RconConnected{ServerUID: uuid.Nil}))
		return svc.IsOnline(uuid.Nil)
	})

	first := uuid.New()
	second := uuid.New()

	pubsub.Publish(bus, messages.ServerStatusTopic,
		messages.ServerStatusMessage(messages.RconConnected{ServerUID: first}))
	pubsub.Publish(bus, messages.ServerStatusTopic,
		messages.ServerStatusMessage(messages.RconConnected{ServerUID: second}))
	pubsub.Publish(bus, messages.ServerStatusTopic,
		messages.ServerStatusMessage(messages.RconDisconnected{ServerUID: second}))

	waitFor(t, func() bool {
		states := svc.States()
		return states[first] && !states[second] && len(states) >= 2
	})

	assert.True(t, svc.IsOnline(first))
	assert.False(t, svc.IsOnline(second))
}

func TestServerStatusUnknownServerIsOffline(t *testing.T) {
	svc := NewServerStatusService(pubsub.NewBus(pubsub.Hooks{}))
	assert.False(t, svc.IsOnline(uuid.New()))
}

func TestServerStatusStopsOnCancel(t *testing.T) {
	svc := NewServerStatusService(pubsub.NewBus(pubsub.Hooks{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Launch(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}
