// Package progress delivers per-file pipeline events from the batch
// orchestrator to any number of observers.
package progress

import (
	"sync/atomic"

	"github.com/starford/notegen/internal/models"
)

// Event is one pipeline transition of one file.
type Event struct {
	Index   int
	Total   int
	Path    string
	Status  models.Status
	Stage   models.Stage
	Message string
}

// Reporter receives events. *Broker implements it; tests may use a func.
type Reporter interface {
	Publish(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Reporter = ReporterFunc(func(Event) {})

// Stats describes the broker at one point in time.
type Stats struct {
	Subscribers int
	Published   int
	Dropped     int
}

// Broker fans events out to subscribers.
//
// Concurrency model: a single internal event loop (goroutine) owns the
// subscriber set and counters. Public methods talk to the loop through
// channels, so no mutexes are required. A subscriber whose buffer is full
// misses the event; publishers never wait on slow observers.
type Broker struct {
	buffer int

	subscribeCh   chan chan Event
	unsubscribeCh chan chan Event
	publishCh     chan Event
	statsReqCh    chan chan Stats

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker whose subscribers buffer up to buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 256
	}

	b := &Broker{
		buffer:        buffer,
		subscribeCh:   make(chan chan Event),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event, 256),
		statsReqCh:    make(chan chan Stats),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	subs := make(map[chan Event]struct{})
	var published, dropped int

	broadcast := func(e Event) {
		published++
		for ch := range subs {
			select {
			case ch <- e:
			default:
				dropped++
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			// Deliver what was queued before Close.
		drain:
			for {
				select {
				case e := <-b.publishCh:
					broadcast(e)
				default:
					break drain
				}
			}
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			subs[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case e := <-b.publishCh:
			broadcast(e)

		case resp := <-b.statsReqCh:
			resp <- Stats{Subscribers: len(subs), Published: published, Dropped: dropped}
		}
	}
}

// Close drains queued events, closes all subscriber channels and stops the
// loop. It is safe to call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds an observer and returns its channel. The channel is closed
// by Unsubscribe or Close.
func (b *Broker) Subscribe() chan Event {
	ch := make(chan Event, b.buffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes an observer and closes its channel.
func (b *Broker) Unsubscribe(ch chan Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// Stats returns subscriber and delivery counters.
func (b *Broker) Stats() Stats {
	if b.closed.Load() {
		return Stats{}
	}

	resp := make(chan Stats, 1)
	select {
	case b.statsReqCh <- resp:
	case <-b.stopped:
		return Stats{}
	}

	select {
	case s := <-resp:
		return s
	case <-b.stopped:
		return Stats{}
	}
}

// Publish queues an event for all subscribers. It is a no-op after Close.
func (b *Broker) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	}
}
