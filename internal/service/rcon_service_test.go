package service

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/pubsub"
	"github.com/DSroD/PyCon/internal/rcon"
)

// fakeRcon is a minimal Minecraft-flavored RCON server: it acks any login
// and answers every command with "echo: <command>".
type fakeRcon struct {
	t        *testing.T
	listener net.Listener

	mu       sync.Mutex
	commands []string
}

func newFakeRcon(t *testing.T) *fakeRcon {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeRcon{t: t, listener: listener}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go f.handle(conn)
		}
	}()
	return f
}

func (f *fakeRcon) server() model.Server {
	_, portStr, _ := net.SplitHostPort(f.listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return model.Server{
		UID:          uuid.New(),
		Type:         model.MinecraftServer,
		Name:         "fake",
		Host:         "127.0.0.1",
		Port:         port,
		RconPort:     port,
		RconPassword: "secret",
	}
}

func (f *fakeRcon) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeRcon) handle(conn net.Conn) {
	defer conn.Close()

	readFrame := func() (int32, int32, string, bool) {
		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			return 0, 0, "", false
		}
		body := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(conn, body); err != nil {
			return 0, 0, "", false
		}
		id := int32(binary.LittleEndian.Uint32(body[0:4]))
		typ := int32(binary.LittleEndian.Uint32(body[4:8]))
		return id, typ, string(body[8 : len(body)-2]), true
	}
	writeFrame := func(id, typ int32, payload string) bool {
		encoded, err := rcon.Packet{RequestID: id, Type: typ, Payload: payload}.Encode(rcon.EncodingUTF8)
		if err != nil {
			return false
		}
		_, err = conn.Write(encoded)
		return err == nil
	}

	loginID, _, _, ok := readFrame()
	if !ok || !writeFrame(loginID, 2, "") {
		return
	}

	var cmdID int32
	var cmd string
	for {
		id, typ, payload, ok := readFrame()
		if !ok {
			return
		}
		switch typ {
		case 2:
			cmdID, cmd = id, payload
			f.mu.Lock()
			f.commands = append(f.commands, cmd)
			f.mu.Unlock()
		default:
			// End fence: send the reply fragments, then echo the fence.
			if !writeFrame(cmdID, 0, "echo: ") ||
				!writeFrame(cmdID, 0, cmd) ||
				!writeFrame(id, 0, "") {
				return
			}
		}
	}
}

func awaitStatus[M messages.ServerStatusMessage](t *testing.T, sub *pubsub.Subscription[messages.ServerStatusMessage]) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-sub.C():
			if _, ok := msg.(M); ok {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for status event")
		}
	}
}

func TestRconServiceBridgesBusAndConnection(t *testing.T) {
	fake := newFakeRcon(t)
	server := fake.server()

	bus := pubsub.NewBus(pubsub.Hooks{})
	statusSub, err := pubsub.Subscribe[messages.ServerStatusMessage](bus, messages.ServerStatusTopic, nil)
	require.NoError(t, err)
	defer statusSub.Close()
	responseSub, err := pubsub.Subscribe(bus, messages.RconResponseTopic(server.UID), nil)
	require.NoError(t, err)
	defer responseSub.Close()

	manager := rcon.NewManager(
		func(context.Context) (*model.Server, error) { return &server, nil },
		testLogger(),
	)
	svc := NewRconService(server.UID, server.Name, manager, bus, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	launchDone := make(chan error, 1)
	go func() { launchDone <- svc.Launch(ctx) }()

	awaitStatus[messages.RconConnected](t, statusSub)

	// An empty command must never reach the server.
	pubsub.Publish(bus, messages.RconCommandTopic(server.UID),
		messages.RconCommand{IssuingUser: "alice", Command: ""})
	pubsub.Publish(bus, messages.RconCommandTopic(server.UID),
		messages.RconCommand{IssuingUser: "alice", Command: "list"})

	select {
	case resp := <-responseSub.C():
		assert.Equal(t, "alice", resp.IssuingUser)
		assert.Equal(t, "list", resp.Command)
		assert.Equal(t, "echo: list", resp.Response)
		assert.Equal(t, model.MinecraftServer, resp.ServerType)
	case <-time.After(5 * time.Second):
		t.Fatal("no response published")
	}
	assert.Equal(t, []string{"list"}, fake.seen())

	cancel()
	awaitStatus[messages.RconDisconnected](t, statusSub)

	select {
	case err := <-launchDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not shut down")
	}
}

// outcomeRecorder collects connection attempt outcomes safely across
// goroutines.
type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) observe(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

func TestRconServiceObservesConnectSuccess(t *testing.T) {
	fake := newFakeRcon(t)
	server := fake.server()

	bus := pubsub.NewBus(pubsub.Hooks{})
	manager := rcon.NewManager(
		func(context.Context) (*model.Server, error) { return &server, nil },
		testLogger(),
	)
	rec := &outcomeRecorder{}
	svc := NewRconService(server.UID, server.Name, manager, bus, rec.observe, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	launchDone := make(chan error, 1)
	go func() { launchDone <- svc.Launch(ctx) }()

	deadline := time.After(5 * time.Second)
	for len(rec.seen()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no outcome observed")
		case <-time.After(time.Millisecond):
		}
	}
	assert.Equal(t, []string{ConnectSuccess}, rec.seen())

	cancel()
	require.NoError(t, <-launchDone)
}

func TestRconServiceObservesConnectFailure(t *testing.T) {
	// A freshly released port refuses connections, which is retryable, so
	// the failure is reported through the pre-backoff hook.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	_, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	server := model.Server{
		UID:          uuid.New(),
		Type:         model.MinecraftServer,
		Name:         "gone",
		Host:         "127.0.0.1",
		Port:         port,
		RconPort:     port,
		RconPassword: "secret",
	}

	bus := pubsub.NewBus(pubsub.Hooks{})
	manager := rcon.NewManager(
		func(context.Context) (*model.Server, error) { return &server, nil },
		testLogger(),
	)
	rec := &outcomeRecorder{}
	svc := NewRconService(server.UID, server.Name, manager, bus, rec.observe, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	launchDone := make(chan error, 1)
	go func() { launchDone <- svc.Launch(ctx) }()

	deadline := time.After(5 * time.Second)
	for len(rec.seen()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no outcome observed")
		case <-time.After(time.Millisecond):
		}
	}
	assert.Contains(t, rec.seen(), ConnectFailure)

	cancel()
	require.NoError(t, <-launchDone)
}

func TestRconServiceNameIsStable(t *testing.T) {
	uid := uuid.MustParse("f2b6c9e0-0000-0000-0000-000000000001")
	assert.Equal(t, "rcon_service_"+uid.String(), RconServiceName(uid))
}
