// Package pubsub implements the in-process message bus the application
// components communicate over: typed topics, composable predicate filters
// and bounded, drop-oldest subscription queues.
package pubsub

// Topic identifies a channel on the bus. Two topics are equal iff their
// names are equal; the message type only exists at compile time and the
// bus itself treats payloads opaquely.
type Topic[M any] struct {
	name string
}

// NewTopic returns a descriptor for the named channel.
func NewTopic[M any](name string) Topic[M] {
	return Topic[M]{name: name}
}

// Name returns the channel name.
func (t Topic[M]) Name() string {
	return t.name
}
