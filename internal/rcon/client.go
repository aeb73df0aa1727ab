package rcon

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/model"
)

// pendingCommand is the bookkeeping for one in-flight command, keyed by the
// id of its end fence.
type pendingCommand struct {
	commandID   int32
	issuingUser string
	command     string
}

// Client is an authenticated RCON connection. Commands are written from any
// goroutine; Read runs in exactly one goroutine and reassembles fragmented
// responses into complete replies.
type Client struct {
	conn       net.Conn
	enc        Encoding
	serverType model.ServerType
	ids        *RequestIDProvider

	writeMu sync.Mutex

	mu        sync.Mutex
	pending   map[int32]pendingCommand
	fragments map[int32][][]byte
}

// NewClient wraps an already-authenticated connection. The manager performs
// the login handshake before constructing the client.
func NewClient(conn net.Conn, serverType model.ServerType, ids *RequestIDProvider) *Client {
	return &Client{
		conn:       conn,
		enc:        EncodingFor(serverType),
		serverType: serverType,
		ids:        ids,
		pending:    make(map[int32]pendingCommand),
		fragments:  make(map[int32][][]byte),
	}
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SendCommand writes a command followed by its end fence. The fence's echo
// tells the read loop all fragments of the reply have arrived.
func (c *Client) SendCommand(command, issuingUser string) error {
	commandID := c.ids.Next()
	endID := c.ids.Next()

	cmd, err := CommandPacket(command, commandID).Encode(c.enc)
	if err != nil {
		return err
	}
	end, err := CommandEndPacket(endID).Encode(c.enc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.pending[endID] = pendingCommand{
		commandID:   commandID,
		issuingUser: issuingUser,
		command:     command,
	}
	c.fragments[commandID] = nil
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(cmd); err != nil {
		c.forget(commandID, endID)
		return err
	}
	if _, err := c.conn.Write(end); err != nil {
		c.forget(commandID, endID)
		return err
	}
	return nil
}

func (c *Client) forget(commandID, endID int32) {
	c.mu.Lock()
	delete(c.pending, endID)
	delete(c.fragments, commandID)
	c.mu.Unlock()
}

// Read consumes frames until the context is cancelled or the stream fails.
// Complete replies are handed to onResponse; frames that cannot be matched
// to an in-flight command go to onError and reading continues.
func (c *Client) Read(
	ctx context.Context,
	onResponse func(messages.RconResponse),
	onError func(error),
) error {
	// Closing the connection is the only way to unblock a pending read.
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		resp, err := ReadPacket(c.conn)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		switch r := resp.(type) {
		case CommandResponse:
			if err := c.handleFragment(r, onResponse); err != nil {
				onError(err)
			}
		case LoginSuccess:
			onError(fmt.Errorf("%w: unexpected login response", ErrInvalidPacket))
		case InvalidPassword:
			onError(ErrInvalidPassword)
		case Unprocessable:
			onError(fmt.Errorf("%w: %s", ErrInvalidPacket, r.Reason))
		}
	}
}

func (c *Client) handleFragment(r CommandResponse, onResponse func(messages.RconResponse)) error {
	c.mu.Lock()

	if meta, ok := c.pending[r.RequestID]; ok {
		// End fence echoed back: the reply is complete.
		parts := c.fragments[meta.commandID]
		delete(c.pending, r.RequestID)
		delete(c.fragments, meta.commandID)
		c.mu.Unlock()

		var joined []byte
		for _, p := range parts {
			joined = append(joined, p...)
		}
		payload, err := c.enc.decode(joined)
		if err != nil {
			return err
		}
		onResponse(messages.RconResponse{
			IssuingUser: meta.issuingUser,
			ServerType:  c.serverType,
			Command:     meta.command,
			Response:    payload,
		})
		return nil
	}

	if _, ok := c.fragments[r.RequestID]; ok {
		c.fragments[r.RequestID] = append(c.fragments[r.RequestID], r.Payload)
		c.mu.Unlock()
		return nil
	}

	c.mu.Unlock()
	return &RequestIDMismatchError{Expected: c.expectedID(), Received: r.RequestID}
}

// expectedID reports an arbitrary outstanding command id for diagnostics,
// or -1 when nothing is in flight.
func (c *Client) expectedID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.fragments {
		return id
	}
	return -1
}
