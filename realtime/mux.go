package realtime

import (
	"sync"

	"github.com/foyerspace/foyer/activity"
)

// payload is one fanned-out notification.
type payload struct {
	event string
	data  activity.Object
}

// mux fans notifications out to subscribed handlers. subscribe returns a
// deterministic cancel. The handler set is copied before invoking, so a
// handler may cancel a subscription, its own included, while a publish is
// in flight.
type mux struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscriber
}

type subscriber struct {
	event string
	fn    func(payload)
}

func (m *mux) subscribe(event string, fn func(payload)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = make(map[int]subscriber)
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = subscriber{event: event, fn: fn}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *mux) publish(p payload) {
	m.mu.Lock()
	fns := make([]func(payload), 0, len(m.subs))
	for _, sub := range m.subs {
		if sub.event == p.event {
			fns = append(fns, sub.fn)
		}
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}
