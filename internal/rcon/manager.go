package rcon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/retry"
)

const dialTimeout = 5 * time.Second

// DefaultRetryConfig is the reconnect schedule used by the per-server
// services: quick first retries, backing off to four minutes.
var DefaultRetryConfig = retry.Config{
	Backoff:    time.Second,
	Jitter:     100 * time.Millisecond,
	MaxBackoff: 240 * time.Second,
}

// ServerSupplier fetches the current server descriptor. It is called on
// every connection attempt so edits to host, port or password take effect
// on the next reconnect.
type ServerSupplier func(ctx context.Context) (*model.Server, error)

// Manager establishes authenticated RCON connections with retry.
type Manager struct {
	supplier ServerSupplier
	cfg      retry.Config
	logger   zerolog.Logger
}

// NewManager creates a manager using the default reconnect schedule.
func NewManager(supplier ServerSupplier, logger zerolog.Logger) *Manager {
	return &Manager{
		supplier: supplier,
		cfg:      DefaultRetryConfig,
		logger:   logger,
	}
}

// Connect dials, authenticates and returns a ready client, retrying
// transient failures. onFailure runs before each backoff sleep.
func (m *Manager) Connect(ctx context.Context, onFailure func(context.Context, error)) (*Client, error) {
	return retry.Do(ctx, m.cfg, m.attempt, IsRetryable, onFailure)
}

func (m *Manager) attempt(ctx context.Context) (*Client, error) {
	server, err := m.supplier(ctx)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}

	m.logger.Debug().
		Str("server", server.Name).
		Str("addr", server.RconAddr()).
		Msg("dialing rcon")

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", server.RconAddr())
	if err != nil {
		return nil, err
	}

	ids := NewRequestIDProvider()
	if err := login(conn, server, ids); err != nil {
		_ = conn.Close()
		return nil, err
	}

	m.logger.Info().
		Str("server", server.Name).
		Msg("rcon connection established")
	return NewClient(conn, server.Type, ids), nil
}

// login performs the authentication handshake. Source servers send an empty
// command response before the login acknowledgement; it must echo our
// request id.
func login(conn net.Conn, server *model.Server, ids *RequestIDProvider) error {
	enc := EncodingFor(server.Type)
	loginID := ids.Next()

	packet, err := LoginPacket(server.RconPassword, loginID).Encode(enc)
	if err != nil {
		return err
	}
	if _, err := conn.Write(packet); err != nil {
		return err
	}

	resp, err := ReadPacket(conn)
	if err != nil {
		return err
	}
	if server.Type == model.SourceServer {
		preamble, ok := resp.(CommandResponse)
		if !ok {
			return fmt.Errorf("%w: expected login preamble", ErrInvalidPacket)
		}
		if preamble.RequestID != loginID {
			return &RequestIDMismatchError{Expected: loginID, Received: preamble.RequestID}
		}
		if resp, err = ReadPacket(conn); err != nil {
			return err
		}
	}

	switch r := resp.(type) {
	case LoginSuccess:
		if r.RequestID != loginID {
			return &RequestIDMismatchError{Expected: loginID, Received: r.RequestID}
		}
		return nil
	case InvalidPassword:
		return ErrInvalidPassword
	case Unprocessable:
		return fmt.Errorf("%w: %s", ErrInvalidPacket, r.Reason)
	default:
		return fmt.Errorf("%w: unexpected response during login", ErrInvalidPacket)
	}
}

// IsRetryable classifies connection errors. Everything a restarting or
// briefly unreachable game server can produce is retryable, including a
// rejected password: operators fix those without touching the service.
func IsRetryable(err error) bool {
	var mismatch *RequestIDMismatchError
	switch {
	case errors.Is(err, ErrIncompleteRead),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrInvalidPacket),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &mismatch):
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
