package messages

import "github.com/DSroD/PyCon/internal/pubsub"

// Severity decides how a notification is displayed on the frontend.
type Severity int

const (
	SeverityPlain Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// Audience selects which users a notification reaches. Either Everyone is
// set, or Usernames lists the recipients.
type Audience struct {
	Everyone  bool
	Usernames []string
}

// AllUsers addresses a notification to every connected user.
func AllUsers() Audience {
	return Audience{Everyone: true}
}

// Users addresses a notification to the named users only.
func Users(names ...string) Audience {
	return Audience{Usernames: names}
}

// NotificationMessage is a user-visible notice pushed over the
// notifications WebSocket.
type NotificationMessage struct {
	Audience Audience
	Message  string
	Severity Severity
	// RemoveAfter is the auto-dismiss delay in seconds; zero keeps the
	// notification until dismissed.
	RemoveAfter int
}

// NotificationTopic is the channel notifications are published on.
var NotificationTopic = pubsub.NewTopic[NotificationMessage]("notifications")

// NotificationsFor filters the notification stream down to what the named
// user may see: broadcasts plus notifications addressed to them.
func NotificationsFor(username string) pubsub.Filter[NotificationMessage] {
	return pubsub.Or(
		pubsub.FieldEquals(func(m NotificationMessage) bool { return m.Audience.Everyone }, true),
		pubsub.FieldContains(func(m NotificationMessage) []string { return m.Audience.Usernames }, username),
	)
}
