package htmx

import (
	"encoding/json"
	"errors"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DSroD/PyCon/internal/messages"
	"github.com/DSroD/PyCon/internal/model"
)

// ErrInboundNotSupported is returned by converters of receive-only
// endpoints; their read pumps discard frames before conversion.
var ErrInboundNotSupported = errors.New("htmx: endpoint does not accept inbound frames")

// severityClasses map notification severities onto the css classes the
// frontend styles.
var severityClasses = map[messages.Severity]string{
	messages.SeverityPlain:   "plain",
	messages.SeverityInfo:    "info",
	messages.SeveritySuccess: "ok",
	messages.SeverityWarning: "warn",
	messages.SeverityError:   "bad",
}

// HeartbeatConverter renders heartbeat ticks into the clock element.
type HeartbeatConverter struct {
	Renderer Renderer
}

func (c HeartbeatConverter) ConvertIn([]byte) (struct{}, error) {
	return struct{}{}, ErrInboundNotSupported
}

func (c HeartbeatConverter) ConvertOut(msg messages.HeartbeatMessage) (string, error) {
	return c.Renderer.Render("heartbeat.html", struct {
		Time string
	}{
		Time: msg.Timestamp.Format("15:04:05"),
	})
}

// NotificationConverter renders notifications into the toast area.
type NotificationConverter struct {
	Renderer Renderer
}

func (c NotificationConverter) ConvertIn([]byte) (struct{}, error) {
	return struct{}{}, ErrInboundNotSupported
}

func (c NotificationConverter) ConvertOut(msg messages.NotificationMessage) (string, error) {
	return c.Renderer.Render("notification.html", struct {
		ID          string
		Message     string
		Class       string
		RemoveAfter int
	}{
		ID:          uuid.NewString(),
		Message:     msg.Message,
		Class:       severityClasses[msg.Severity],
		RemoveAfter: msg.RemoveAfter,
	})
}

// ServerStatusConverter renders connection events into status indicators.
// The template decides which element on the page is swapped, so the server
// list and the per-server console use the same converter with different
// templates.
type ServerStatusConverter struct {
	Renderer Renderer
	Template string
}

func (c ServerStatusConverter) ConvertIn([]byte) (struct{}, error) {
	return struct{}{}, ErrInboundNotSupported
}

func (c ServerStatusConverter) ConvertOut(msg messages.ServerStatusMessage) (string, error) {
	_, online := msg.(messages.RconConnected)
	return c.Renderer.Render(c.Template, struct {
		UID    string
		Online bool
	}{
		UID:    msg.StatusServerUID().String(),
		Online: online,
	})
}

// rconSendPayload is the form the htmx ws extension submits from the
// console input.
type rconSendPayload struct {
	Command string `json:"command"`
}

// RconConverter bridges the console for one user: inbound frames become
// commands attributed to them, responses become console lines.
type RconConverter struct {
	Renderer Renderer
	Username string
	Now      func() time.Time
}

func (c RconConverter) ConvertIn(data []byte) (messages.RconCommand, error) {
	var payload rconSendPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return messages.RconCommand{}, err
	}
	return messages.RconCommand{
		IssuingUser: c.Username,
		Command:     strings.TrimSpace(payload.Command),
	}, nil
}

func (c RconConverter) ConvertOut(msg messages.RconResponse) (string, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return c.Renderer.Render("rcon_response.html", struct {
		Time     string
		User     string
		Command  string
		Response template.HTML
	}{
		Time:     now().Format("15:04:05"),
		User:     msg.IssuingUser,
		Command:  msg.Command,
		Response: renderResponse(msg),
	})
}

// renderResponse escapes the reply; Minecraft replies additionally get
// their formatting codes turned into styled spans.
func renderResponse(msg messages.RconResponse) template.HTML {
	if msg.ServerType == model.MinecraftServer {
		return template.HTML(MinecraftToHTML(msg.Response))
	}
	return template.HTML(html.EscapeString(msg.Response))
}
