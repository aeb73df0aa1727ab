package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DSroD/PyCon/internal/metrics"
	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/pubsub"
	"github.com/DSroD/PyCon/internal/rcon"
	"github.com/DSroD/PyCon/internal/store"
)

// Runtime starts and stops the per-server RCON services as servers are
// created, edited and deleted. The connection manager re-reads the
// descriptor from the store on every attempt, so edits take effect on the
// next reconnect without restarting the application.
type Runtime struct {
	ctx      context.Context
	launcher *Launcher
	bus      *pubsub.Bus
	servers  store.ServerStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewRuntime binds the runtime to the application context: services it
// launches live until that context ends or they are stopped explicitly,
// never until some HTTP request that happened to create them finishes.
// metrics may be nil.
func NewRuntime(
	ctx context.Context,
	launcher *Launcher,
	bus *pubsub.Bus,
	servers store.ServerStore,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Runtime {
	return &Runtime{
		ctx:      ctx,
		launcher: launcher,
		bus:      bus,
		servers:  servers,
		metrics:  m,
		logger:   logger,
	}
}

// LaunchServer starts (or restarts) the RCON service for a server under the
// application context.
func (r *Runtime) LaunchServer(server model.Server) {
	supplier := func(ctx context.Context) (*model.Server, error) {
		return r.servers.Get(ctx, server.UID)
	}
	manager := rcon.NewManager(supplier, r.logger)

	var observe ConnectObserver
	if r.metrics != nil {
		name := server.Name
		observe = func(outcome string) {
			r.metrics.RconReconnects.WithLabelValues(name, outcome).Inc()
		}
	}

	svc := NewRconService(server.UID, server.Name, manager, r.bus, observe, r.logger)
	r.launcher.Launch(r.ctx, svc)
}

// StopServer stops the RCON service for a server, if one is running.
func (r *Runtime) StopServer(ctx context.Context, uid uuid.UUID) {
	r.launcher.StopService(ctx, RconServiceName(uid))
}

// IsServerRunning reports whether a server's RCON service is active.
func (r *Runtime) IsServerRunning(uid uuid.UUID) bool {
	return r.launcher.IsRunning(RconServiceName(uid))
}
