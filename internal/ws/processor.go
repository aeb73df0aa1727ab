// Package ws bridges WebSocket connections onto the pubsub bus. Each
// connection is handled by a typed Processor: inbound frames are decoded
// and published, bus messages are rendered and written back.
package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/DSroD/PyCon/internal/pubsub"
)

const (
	// writeWait is the deadline for a single outbound write.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// considered dead.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait so the peer always has a
	// ping to answer.
	pingPeriod = (pongWait * 9) / 10
)

// Converter translates between the wire format of one endpoint and its
// typed bus messages.
type Converter[In any, Out any] interface {
	// ConvertIn decodes an inbound text frame into a bus message.
	ConvertIn(data []byte) (In, error)
	// ConvertOut renders a bus message into an outbound text frame.
	ConvertOut(msg Out) (string, error)
}

// PubSubConfig wires a processor to the bus. A PublishTopic with an empty
// name makes the endpoint receive-only: inbound frames are discarded.
type PubSubConfig[In any, Out any] struct {
	PublishTopic   pubsub.Topic[In]
	SubscribeTopic pubsub.Topic[Out]
	Filter         pubsub.Filter[Out]
}

// Processor runs the read and write pumps for one WebSocket connection.
type Processor[In any, Out any] struct {
	bus    *pubsub.Bus
	cfg    PubSubConfig[In, Out]
	conv   Converter[In, Out]
	logger zerolog.Logger

	// onConnect produces frames to send before any bus message, letting
	// endpoints render current state into a freshly opened console.
	onConnect func(ctx context.Context) []Out

	// limiter throttles inbound frames; nil disables limiting.
	limiter *rate.Limiter
}

// Option customizes a Processor.
type Option[In any, Out any] func(*Processor[In, Out])

// WithOnConnect sends the produced messages when the connection opens.
func WithOnConnect[In any, Out any](fn func(ctx context.Context) []Out) Option[In, Out] {
	return func(p *Processor[In, Out]) { p.onConnect = fn }
}

// WithRateLimit throttles inbound frames to r per second with the given
// burst. Frames over the limit are dropped.
func WithRateLimit[In any, Out any](r rate.Limit, burst int) Option[In, Out] {
	return func(p *Processor[In, Out]) { p.limiter = rate.NewLimiter(r, burst) }
}

func NewProcessor[In any, Out any](
	bus *pubsub.Bus,
	cfg PubSubConfig[In, Out],
	conv Converter[In, Out],
	logger zerolog.Logger,
	opts ...Option[In, Out],
) *Processor[In, Out] {
	p := &Processor[In, Out]{bus: bus, cfg: cfg, conv: conv, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Serve pumps the connection until the context is cancelled or either pump
// fails. The subscription is registered before any frame is written, so no
// bus message published after the handshake is missed.
func (p *Processor[In, Out]) Serve(ctx context.Context, conn *websocket.Conn) error {
	sub, err := pubsub.Subscribe(p.bus, p.cfg.SubscribeTopic, p.cfg.Filter)
	if err != nil {
		return err
	}
	defer sub.Close()

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the connection is what actually unblocks the read pump.
	stop := context.AfterFunc(pumpCtx, func() { _ = conn.Close() })
	defer stop()

	readDone := make(chan error, 1)
	go func() {
		readDone <- p.readPump(conn)
		cancel()
	}()

	writeErr := p.writePump(pumpCtx, conn, sub)
	cancel()
	readErr := <-readDone

	if ctx.Err() != nil {
		return nil
	}
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

func (p *Processor[In, Out]) readPump(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	publish := p.cfg.PublishTopic.Name() != ""
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if !publish {
			continue
		}
		if p.limiter != nil && !p.limiter.Allow() {
			p.logger.Warn().Msg("inbound frame rate limited")
			continue
		}

		msg, err := p.conv.ConvertIn(data)
		if err != nil {
			p.logger.Warn().Err(err).Msg("dropping malformed inbound frame")
			continue
		}
		pubsub.Publish(p.bus, p.cfg.PublishTopic, msg)
	}
}

func (p *Processor[In, Out]) writePump(
	ctx context.Context,
	conn *websocket.Conn,
	sub *pubsub.Subscription[Out],
) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if p.onConnect != nil {
		for _, msg := range p.onConnect(ctx) {
			if err := p.write(conn, msg); err != nil {
				return err
			}
		}
	}

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := p.write(conn, msg); err != nil {
				return err
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			return nil
		}
	}
}

func (p *Processor[In, Out]) write(conn *websocket.Conn, msg Out) error {
	rendered, err := p.conv.ConvertOut(msg)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to render outbound frame")
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(rendered))
}
