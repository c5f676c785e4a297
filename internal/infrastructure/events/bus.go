package events

import (
	"sync"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

// Bus is an in-process pub/sub fan-out for progress events.
// Subscribers register channels explicitly and publishers never block:
// when a subscriber's buffer is full the event is dropped for that
// subscriber. Progress is telemetry, not a correctness channel.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan domain.ProgressEvent
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan domain.ProgressEvent)}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns its channel together with an unsubscribe function. The
// channel is closed on unsubscribe and on bus Close.
func (b *Bus) Subscribe(buffer int) (<-chan domain.ProgressEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan domain.ProgressEvent)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan domain.ProgressEvent, buffer)
	b.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, unsubscribe
}

func (b *Bus) Publish(event domain.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close tears down all subscriptions deterministically.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
