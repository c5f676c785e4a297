package events

import (
	"testing"

	"github.com/openclinic/docpipeline/internal/core/domain"
)

func TestBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch1, unsub1 := bus.Subscribe(4)
	defer unsub1()
	ch2, unsub2 := bus.Subscribe(4)
	defer unsub2()

	bus.Publish(domain.ProgressEvent{Type: domain.EventStart, JobID: "j1"})

	for i, ch := range []<-chan domain.ProgressEvent{ch1, ch2} {
		select {
		case event := <-ch:
			if event.JobID != "j1" {
				t.Fatalf("subscriber %d got %+v", i, event)
			}
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, unsub := bus.Subscribe(1)
	defer unsub()

	bus.Publish(domain.ProgressEvent{JobID: "j1"})
	// Buffer is full now; this one must be dropped, not block.
	bus.Publish(domain.ProgressEvent{JobID: "j2"})

	event := <-ch
	if event.JobID != "j1" {
		t.Fatalf("got %s, want j1", event.JobID)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected buffered event %+v", extra)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, unsub := bus.Subscribe(1)
	unsub()
	unsub() // idempotent

	if _, ok := <-ch; ok {
		t.Fatalf("channel must be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(domain.ProgressEvent{JobID: "j1"})
}

func TestBusCloseTearsDownSubscribers(t *testing.T) {
	bus := NewBus()
	ch, _ := bus.Subscribe(1)

	bus.Close()
	bus.Close() // idempotent

	if _, ok := <-ch; ok {
		t.Fatalf("channel must be closed after bus close")
	}

	lateCh, _ := bus.Subscribe(1)
	if _, ok := <-lateCh; ok {
		t.Fatalf("subscription after close must return a closed channel")
	}
}

func TestFanoutPublishesInOrder(t *testing.T) {
	var order []string
	first := sinkFunc(func(domain.ProgressEvent) { order = append(order, "first") })
	second := sinkFunc(func(domain.ProgressEvent) { order = append(order, "second") })

	Fanout{first, second}.Publish(domain.ProgressEvent{JobID: "j1"})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected order %v", order)
	}
}

type sinkFunc func(domain.ProgressEvent)

func (f sinkFunc) Publish(event domain.ProgressEvent) { f(event) }
