package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/pubsub"
	"github.com/DSroD/PyCon/internal/rcon"
)

// incompleteReadRecovery is how long to wait before relaunching after the
// game server drops the connection mid-frame, typically during a restart.
const incompleteReadRecovery = 5 * time.Second

// RconServiceName derives the launcher name for a server's RCON service.
func RconServiceName(serverUID uuid.UUID) string {
	return "rcon_service_" + serverUID.String()
}

// Outcome labels reported to a ConnectObserver.
const (
	ConnectSuccess = "success"
	ConnectFailure = "failure"
)

// ConnectObserver is notified of every connection attempt's outcome, for
// instrumentation. A nil observer is a no-op.
type ConnectObserver func(outcome string)

// RconService keeps one server's RCON connection alive and bridges it onto
// the bus: commands published for the server are written to the connection,
// replies are published back, and connection lifecycle is announced as
// status events and user notifications.
type RconService struct {
	serverUID  uuid.UUID
	serverName string
	manager    *rcon.Manager
	bus        *pubsub.Bus
	observe    ConnectObserver
	logger     zerolog.Logger
}

func NewRconService(
	serverUID uuid.UUID,
	serverName string,
	manager *rcon.Manager,
	bus *pubsub.Bus,
	observe ConnectObserver,
	logger zerolog.Logger,
) *RconService {
	return &RconService{
		serverUID:  serverUID,
		serverName: serverName,
		manager:    manager,
		bus:        bus,
		observe:    observe,
		logger:     logger.With().Str("server", serverName).Logger(),
	}
}

func (s *RconService) Name() string { return RconServiceName(s.serverUID) }

func (s *RconService) Launch(ctx context.Context) error {
	client, err := s.manager.Connect(ctx, s.onConnectFailure)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		// Final attempt: the retry loop reports intermediate ones through
		// onConnectFailure before it sleeps, never the last.
		s.observeConnect(ConnectFailure)
		return err
	}
	defer func() { _ = client.Close() }()
	s.observeConnect(ConnectSuccess)

	pubsub.Publish(s.bus, messages.ServerStatusTopic,
		messages.ServerStatusMessage(messages.RconConnected{ServerUID: s.serverUID}))
	s.notify(fmt.Sprintf("Connected to %s.", s.serverName), messages.SeveritySuccess)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- s.writeLoop(loopCtx, client)
		cancel()
	}()

	readErr := s.readLoop(loopCtx, client)
	cancel()
	werr := <-writeErr

	pubsub.Publish(s.bus, messages.ServerStatusTopic,
		messages.ServerStatusMessage(messages.RconDisconnected{ServerUID: s.serverUID}))
	s.notify(fmt.Sprintf("Connection to %s lost.", s.serverName), messages.SeverityWarning)

	if ctx.Err() != nil {
		return nil
	}

	err = errors.Join(readErr, werr)
	if errors.Is(err, rcon.ErrIncompleteRead) {
		// The server closed on us mid-frame; give it a moment and reconnect.
		return &RecoverableError{Err: err, RecoveryDelay: incompleteReadRecovery}
	}
	return err
}

func (s *RconService) Stop(ctx context.Context) error { return nil }

// writeLoop forwards published commands to the connection. Empty commands
// are filtered out at the subscription so they never reach the server.
func (s *RconService) writeLoop(ctx context.Context, client *rcon.Client) error {
	nonEmpty := pubsub.FieldLength(
		func(m messages.RconCommand) int { return len(m.Command) },
		1, pubsub.LengthMin,
	)
	sub, err := pubsub.Subscribe(s.bus, messages.RconCommandTopic(s.serverUID), nonEmpty)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case cmd, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := client.SendCommand(cmd.Command, cmd.IssuingUser); err != nil {
				s.logger.Warn().Err(err).Msg("failed to send command")
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// readLoop publishes completed replies and surfaces protocol hiccups as
// warnings without tearing the connection down.
func (s *RconService) readLoop(ctx context.Context, client *rcon.Client) error {
	err := client.Read(ctx,
		func(resp messages.RconResponse) {
			pubsub.Publish(s.bus, messages.RconResponseTopic(s.serverUID), resp)
		},
		func(err error) {
			s.logger.Warn().Err(err).Msg("unprocessable rcon response")
			s.notify(
				fmt.Sprintf("Malformed response from %s.", s.serverName),
				messages.SeverityWarning,
			)
		},
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *RconService) observeConnect(outcome string) {
	if s.observe != nil {
		s.observe(outcome)
	}
}

func (s *RconService) onConnectFailure(ctx context.Context, err error) {
	s.observeConnect(ConnectFailure)
	s.logger.Warn().Err(err).Msg("rcon connection attempt failed")
	s.notify(
		fmt.Sprintf("Connection to %s failed, retrying.", s.serverName),
		messages.SeverityWarning,
	)
}

func (s *RconService) notify(message string, severity messages.Severity) {
	pubsub.Publish(s.bus, messages.NotificationTopic, messages.NotificationMessage{
		Audience:    messages.AllUsers(),
		Message:     message,
		Severity:    severity,
		RemoveAfter: 10,
	})
}
