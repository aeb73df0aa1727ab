package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/DSroD/PyCon/internal/htmx"
	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/pubsub"
	"github.com/DSroD/PyCon/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// rconCommandRate throttles console input per connection.
const (
	rconCommandRate  = rate.Limit(5)
	rconCommandBurst = 10
)

// upgradeAuthed upgrades first and authenticates after, so an anonymous
// client receives a proper policy-violation close frame instead of a failed
// handshake the frontend cannot distinguish from a network error.
func (h *handlers) upgradeAuthed(c *gin.Context) (*websocket.Conn, *model.User) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return nil, nil
	}

	user := h.authenticate(c)
	if user == nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"),
			deadline,
		)
		_ = conn.Close()
		return nil, nil
	}
	return conn, user
}

func (h *handlers) trackConnection(endpoint string) func() {
	if h.Metrics == nil {
		return func() {}
	}
	h.Metrics.WSConnections.WithLabelValues(endpoint).Inc()
	return func() { h.Metrics.WSConnections.WithLabelValues(endpoint).Dec() }
}

func (h *handlers) heartbeatWS(c *gin.Context) {
	conn, _ := h.upgradeAuthed(c)
	if conn == nil {
		return
	}
	defer h.trackConnection("heartbeat")()

	processor := ws.NewProcessor(
		h.Bus,
		ws.PubSubConfig[struct{}, messages.HeartbeatMessage]{
			SubscribeTopic: messages.HeartbeatTopic,
		},
		htmx.HeartbeatConverter{Renderer: h.Renderer},
		h.Logger,
	)
	h.serve(c, processor.Serve, conn)
}

func (h *handlers) notificationsWS(c *gin.Context) {
	conn, user := h.upgradeAuthed(c)
	if conn == nil {
		return
	}
	defer h.trackConnection("notifications")()

	processor := ws.NewProcessor(
		h.Bus,
		ws.PubSubConfig[struct{}, messages.NotificationMessage]{
			SubscribeTopic: messages.NotificationTopic,
			Filter:         messages.NotificationsFor(user.Username),
		},
		htmx.NotificationConverter{Renderer: h.Renderer},
		h.Logger,
	)
	h.serve(c, processor.Serve, conn)
}

func (h *handlers) serverStatusWS(c *gin.Context) {
	conn, _ := h.upgradeAuthed(c)
	if conn == nil {
		return
	}
	defer h.trackConnection("server_status")()

	processor := ws.NewProcessor(
		h.Bus,
		ws.PubSubConfig[struct{}, messages.ServerStatusMessage]{
			SubscribeTopic: messages.ServerStatusTopic,
		},
		htmx.ServerStatusConverter{Renderer: h.Renderer, Template: "server_status.html"},
		h.Logger,
		ws.WithOnConnect[struct{}](h.statusSnapshot),
	)
	h.serve(c, processor.Serve, conn)
}

func (h *handlers) serverStatusDetailWS(c *gin.Context) {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	conn, _ := h.upgradeAuthed(c)
	if conn == nil {
		return
	}
	defer h.trackConnection("server_status_detail")()

	processor := ws.NewProcessor(
		h.Bus,
		ws.PubSubConfig[struct{}, messages.ServerStatusMessage]{
			SubscribeTopic: messages.ServerStatusTopic,
			Filter: pubsub.FieldEquals(
				func(m messages.ServerStatusMessage) uuid.UUID { return m.StatusServerUID() },
				uid,
			),
		},
		htmx.ServerStatusConverter{Renderer: h.Renderer, Template: "server_status_detail.html"},
		h.Logger,
		ws.WithOnConnect[struct{}](func(context.Context) []messages.ServerStatusMessage {
			return []messages.ServerStatusMessage{statusEvent(uid, h.Status.IsOnline(uid))}
		}),
	)
	h.serve(c, processor.Serve, conn)
}

func (h *handlers) rconWS(c *gin.Context) {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if _, err := h.Servers.Get(c.Request.Context(), uid); err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	conn, user := h.upgradeAuthed(c)
	if conn == nil {
		return
	}
	defer h.trackConnection("rcon")()

	processor := ws.NewProcessor(
		h.Bus,
		ws.PubSubConfig[messages.RconCommand, messages.RconResponse]{
			PublishTopic:   messages.RconCommandTopic(uid),
			SubscribeTopic: messages.RconResponseTopic(uid),
		},
		htmx.RconConverter{Renderer: h.Renderer, Username: user.Username},
		h.Logger,
		ws.WithRateLimit[messages.RconCommand, messages.RconResponse](rconCommandRate, rconCommandBurst),
	)
	h.serve(c, processor.Serve, conn)
}

func (h *handlers) serve(
	c *gin.Context,
	serve func(context.Context, *websocket.Conn) error,
	conn *websocket.Conn,
) {
	if err := serve(c.Request.Context(), conn); err != nil {
		h.Logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("websocket closed")
	}
}

// statusSnapshot renders the current state of every known server so a new
// console starts correct instead of all-offline.
func (h *handlers) statusSnapshot(ctx context.Context) []messages.ServerStatusMessage {
	states := h.Status.States()
	events := make([]messages.ServerStatusMessage, 0, len(states))
	for uid, online := range states {
		events = append(events, statusEvent(uid, online))
	}
	return events
}

func statusEvent(uid uuid.UUID, online bool) messages.ServerStatusMessage {
	if online {
		return messages.RconConnected{ServerUID: uid}
	}
	return messages.RconDisconnected{ServerUID: uid}
}
