package pubsub

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInvalidTopic is returned by Subscribe for a topic with an empty name.
var ErrInvalidTopic = errors.New("pubsub: invalid topic name")

// queueSize bounds each subscription's inbound queue. When the queue is
// full the oldest pending message is dropped (drop-oldest) so fast
// publishers never block on slow consumers.
const queueSize = 256

// Hooks receive bus events for instrumentation. All hooks are optional and
// must be fast; they run on the publisher's goroutine.
type Hooks struct {
	OnPublish func(topic string)
	OnDrop    func(topic string)
}

type record struct {
	id      uint64
	topic   string
	deliver func(msg any)
	closer  func()
}

// Bus is the in-process publish/subscribe fanout. Delivery is at-most-once:
// a message reaches every subscription that is registered on the topic at
// publish time and whose filter accepts it.
type Bus struct {
	hooks Hooks

	mu      sync.RWMutex
	nextID  uint64
	byTopic map[string]map[uint64]*record
	byID    map[uint64]*record
}

// NewBus returns an empty bus.
func NewBus(hooks Hooks) *Bus {
	return &Bus{
		hooks:   hooks,
		byTopic: make(map[string]map[uint64]*record),
		byID:    make(map[uint64]*record),
	}
}

// Publish enqueues msg into every matching subscription's queue and returns.
// It never fails and never blocks on consumers; a topic with no matching
// subscribers drops the message silently.
func Publish[M any](b *Bus, topic Topic[M], msg M) {
	if b.hooks.OnPublish != nil {
		b.hooks.OnPublish(topic.name)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, rec := range b.byTopic[topic.name] {
		rec.deliver(msg)
	}
}

// Subscribe registers a new subscription on topic. A nil filter accepts
// everything. The returned subscription must be closed when the consumer
// is done; Close is idempotent.
func Subscribe[M any](b *Bus, topic Topic[M], filter Filter[M]) (*Subscription[M], error) {
	if topic.name == "" {
		return nil, ErrInvalidTopic
	}

	sub := &Subscription[M]{
		bus:   b,
		topic: topic.name,
		ch:    make(chan M, queueSize),
	}

	rec := &record{
		topic: topic.name,
		deliver: func(msg any) {
			m := msg.(M)
			if filter != nil && !filter.Accept(m) {
				return
			}
			sub.enqueue(m)
		},
		closer: func() { close(sub.ch) },
	}

	b.mu.Lock()
	b.nextID++
	rec.id = b.nextID
	sub.id = rec.id
	if b.byTopic[topic.name] == nil {
		b.byTopic[topic.name] = make(map[uint64]*record)
	}
	b.byTopic[topic.name][rec.id] = rec
	b.byID[rec.id] = rec
	b.mu.Unlock()

	return sub, nil
}

// unsubscribe unlinks the record and closes the subscription channel. It
// takes the write lock, so it cannot overlap any in-flight Publish: once
// it returns, no further delivery can happen.
func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.byID[id]
	if !ok {
		return
	}
	delete(b.byID, id)
	if subs := b.byTopic[rec.topic]; subs != nil {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.byTopic, rec.topic)
		}
	}
	rec.closer()
}

// Subscription is one consumer's handle on one topic. Messages arrive on C
// in the order they were enqueued for this subscription.
type Subscription[M any] struct {
	bus   *Bus
	topic string
	id    uint64
	ch    chan M

	closeOnce sync.Once
	dropped   atomic.Uint64
}

// C returns the inbound message channel. It is closed by Close, so ranging
// over it terminates once the subscription ends.
func (s *Subscription[M]) C() <-chan M {
	return s.ch
}

// Close removes the subscription from the bus and releases the queue.
// Closing twice is a no-op. After Close returns no message is delivered.
func (s *Subscription[M]) Close() {
	s.closeOnce.Do(func() {
		s.bus.unsubscribe(s.id)
	})
}

// Dropped returns how many messages this subscription shed under backlog
// overflow.
func (s *Subscription[M]) Dropped() uint64 {
	return s.dropped.Load()
}

// enqueue runs under the bus read lock. On a full queue it sheds the
// oldest pending message to keep the publisher live. If the consumer
// refills the queue between the shed and the re-send, the newest message
// is the one lost instead; either way every lost message is counted.
func (s *Subscription[M]) enqueue(msg M) {
	select {
	case s.ch <- msg:
		return
	default:
	}

	select {
	case <-s.ch:
	default:
	}
	s.dropped.Add(1)
	if s.bus.hooks.OnDrop != nil {
		s.bus.hooks.OnDrop(s.topic)
	}

	select {
	case s.ch <- msg:
	default:
		s.dropped.Add(1)
		if s.bus.hooks.OnDrop != nil {
			s.bus.hooks.OnDrop(s.topic)
		}
	}
}
