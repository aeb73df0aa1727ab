package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/pubsub"
)

func TestHeartbeatPublishesTicks(t *testing.T) {
	bus := pubsub.NewBus(pubsub.Hooks{})
	sub, err := pubsub.Subscribe(bus, messages.HeartbeatTopic, nil)
	require.NoError(t, err)
	defer sub.Close()

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewHeartbeatService(bus, time.Millisecond)
	svc.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Launch(ctx) }()

	select {
	case msg := <-sub.C():
		assert.Equal(t, fixed, msg.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat received")
	}
}

func TestHeartbeatStopsOnCancel(t *testing.T) {
	bus := pubsub.NewBus(pubsub.Hooks{})
	svc := NewHeartbeatService(bus, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Launch(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat did not stop")
	}
}
