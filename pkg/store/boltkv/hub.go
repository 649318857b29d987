package boltkv

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

type event struct {
	value models.Fields
	ok    bool
}

// subscriber delivers events to one callback from its own goroutine.
// Pending events coalesce latest-wins: a subscriber that falls behind sees
// the most recent known value, not every intermediate one.
type subscriber struct {
	id   uint64
	fn   store.ValueFunc
	once bool

	pending chan event
	stop    chan struct{}
}

// push replaces any undelivered event with ev.
func (s *subscriber) push(ev event) {
	for {
		select {
		case s.pending <- ev:
			return
		default:
			select {
			case <-s.pending:
			default:
			}
		}
	}
}

// hub routes committed-write notifications to subscribers by path.
type hub struct {
	log zerolog.Logger

	mu     sync.Mutex
	subs   map[string]map[uint64]*subscriber
	nextID uint64
	closed bool
}

func newHub(log zerolog.Logger) *hub {
	return &hub{
		log:  log,
		subs: make(map[string]map[uint64]*subscriber),
	}
}

func (h *hub) add(path string, fn store.ValueFunc, once bool) *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &subscriber{
		id:      h.nextID,
		fn:      fn,
		once:    once,
		pending: make(chan event, 1),
		stop:    make(chan struct{}),
	}
	if h.closed {
		close(sub.stop)
		return sub
	}
	if h.subs[path] == nil {
		h.subs[path] = make(map[uint64]*subscriber)
	}
	h.subs[path][sub.id] = sub

	go h.run(path, sub)
	return sub
}

func (h *hub) run(path string, sub *subscriber) {
	for {
		select {
		case <-sub.stop:
			return
		case ev := <-sub.pending:
			h.deliver(path, sub, ev)
			if sub.once {
				h.remove(path, sub.id)
				return
			}
		}
	}
}

// deliver invokes the callback, isolating panics so a misbehaving consumer
// cannot unwind into the store.
func (h *hub) deliver(path string, sub *subscriber, ev event) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Str("path", path).Interface("panic", r).
				Msg("subscriber callback panicked")
		}
	}()
	sub.fn(ev.value, ev.ok)
}

func (h *hub) publish(path string, value models.Fields, ok bool) {
	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subs[path]))
	for _, sub := range h.subs[path] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.push(event{value: value, ok: ok})
	}
}

func (h *hub) remove(path string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[path]
	sub, exists := subs[id]
	if !exists {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.subs, path)
	}
	close(sub.stop)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for path, subs := range h.subs {
		for id, sub := range subs {
			delete(subs, id)
			close(sub.stop)
		}
		delete(h.subs, path)
	}
}
