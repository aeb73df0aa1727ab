package rcon

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/model"
)

// readFrame parses one raw frame from the server's side of the pipe.
func readFrame(t *testing.T, conn net.Conn) (requestID, packetType int32, payload []byte) {
	t.Helper()
	var lenBuf [4]byte
	_, err := io.ReadFull(conn, lenBuf[:])
	require.NoError(t, err)
	body := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)
	return int32(binary.LittleEndian.Uint32(body[0:4])),
		int32(binary.LittleEndian.Uint32(body[4:8])),
		body[8 : len(body)-1]
}

func writeFrame(t *testing.T, conn net.Conn, requestID int32, payload string) {
	t.Helper()
	encoded, err := Packet{RequestID: requestID, Type: typeResponseValue, Payload: payload}.Encode(EncodingUTF8)
	require.NoError(t, err)
	_, err = conn.Write(encoded)
	require.NoError(t, err)
}

func TestFragmentedResponseIsReassembled(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	client := NewClient(clientConn, model.MinecraftServer, NewRequestIDProvider())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responses := make(chan messages.RconResponse, 1)
	readDone := make(chan error, 1)
	go func() {
		readDone <- client.Read(ctx,
			func(resp messages.RconResponse) { responses <- resp },
			func(err error) { t.Errorf("unexpected error callback: %v", err) },
		)
	}()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		cmdID, cmdType, payload := readFrame(t, serverConn)
		assert.Equal(t, typeCommand, cmdType)
		assert.Equal(t, "list", string(payload[:len(payload)-1]))

		endID, endType, _ := readFrame(t, serverConn)
		assert.Equal(t, typeCommandEnd, endType)
		assert.Equal(t, cmdID+1, endID)

		writeFrame(t, serverConn, cmdID, "players: ")
		writeFrame(t, serverConn, cmdID, "alice, bob")
		// Echo of the end fence: the reply is complete.
		writeFrame(t, serverConn, endID, "")
	}()

	require.NoError(t, client.SendCommand("list", "alice"))

	select {
	case resp := <-responses:
		assert.Equal(t, "alice", resp.IssuingUser)
		assert.Equal(t, "list", resp.Command)
		assert.Equal(t, model.MinecraftServer, resp.ServerType)
		assert.Equal(t, "players: alice, bob", resp.Response)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reassembled response")
	}

	<-serverDone
	cancel()
	<-readDone
}

func TestUnknownRequestIDGoesToErrorCallback(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	client := NewClient(clientConn, model.MinecraftServer, NewRequestIDProvider())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 1)
	go func() {
		_ = client.Read(ctx,
			func(messages.RconResponse) { t.Error("unexpected response") },
			func(err error) { errs <- err },
		)
	}()

	go writeFrame(t, serverConn, 777, "stray")

	select {
	case err := <-errs:
		var mismatch *RequestIDMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, int32(777), mismatch.Received)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error callback")
	}
}

func TestReadStopsOnCancel(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	client := NewClient(clientConn, model.SourceServer, NewRequestIDProvider())

	ctx, cancel := context.WithCancel(context.Background())
	readDone := make(chan error, 1)
	go func() {
		readDone <- client.Read(ctx, func(messages.RconResponse) {}, func(error) {})
	}()

	cancel()
	select {
	case err := <-readDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("read did not stop on cancel")
	}
}

func TestReadFailsOnTruncatedStream(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	client := NewClient(clientConn, model.SourceServer, NewRequestIDProvider())
	readDone := make(chan error, 1)
	go func() {
		readDone <- client.Read(context.Background(), func(messages.RconResponse) {}, func(error) {})
	}()

	_, err := serverConn.Write([]byte{0x0a, 0x00})
	require.NoError(t, err)
	require.NoError(t, serverConn.Close())

	select {
	case err := <-readDone:
		assert.ErrorIs(t, err, ErrIncompleteRead)
	case <-time.After(2 * time.Second):
		t.Fatal("read did not fail")
	}
}

func TestSendCommandAllocatesSequentialIDs(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := NewClient(clientConn, model.MinecraftServer, NewRequestIDProvider())

	go func() {
		readFrame(t, serverConn)
		readFrame(t, serverConn)
	}()
	require.NoError(t, client.SendCommand("say hi", "alice"))

	client.mu.Lock()
	defer client.mu.Unlock()
	_, hasFence := client.pending[int32(math.MinInt32+2)]
	_, hasFragments := client.fragments[int32(math.MinInt32+1)]
	assert.True(t, hasFence)
	assert.True(t, hasFragments)
}
