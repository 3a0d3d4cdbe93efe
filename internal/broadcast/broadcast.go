package broadcast

import (
	"sync"

	"gameworld/internal/events"
)

// Message is one notification fanned out to subscribers. Event is the
// event kind, or "reload" for live-reload pings.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan Message]bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		Clients: make(map[chan Message]bool),
	}
}

// Attach forwards every event published on bus. The returned function
// detaches it.
func (b *Broadcaster) Attach(bus *events.Bus) (detach func()) {
	return bus.Subscribe(func(ev events.Event) {
		b.Broadcast(string(ev.Kind()), ev)
	})
}

func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	if b.Clients[ch] {
		delete(b.Clients, ch)
		close(ch)
	}
}

func (b *Broadcaster) Broadcast(event string, data any) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- Message{Event: event, Data: data}:
		default:
			// skip clients with full data channels
		}
	}
}
