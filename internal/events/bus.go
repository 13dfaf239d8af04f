package events

import (
	"log/slog"
	"sync"
)

// Handler receives one event. Handlers run synchronously in the publisher's
// goroutine; a handler that needs to block should hand off internally.
type Handler func(Event)

// Bus is the in-process pub/sub connecting the engine to alerting and feed
// layers. Subscriptions are by channel tag; publishing fans one event out to
// every tag it maps to. A panicking subscriber is logged and isolated, never
// stalling the cycle.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler on a channel tag ("all", "odds_update",
// "arbitrage", "match:<id>", "sport:<id>") and returns an unsubscribe func.
func (b *Bus) Subscribe(channel string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]Handler)
	}
	b.subs[channel][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[channel], id)
	}
}

// Publish delivers the event to every subscriber of every channel it maps
// to. Deliveries to one subscriber are ordered; ordering across subscribers
// is not guaranteed.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	var handlers []Handler
	for _, channel := range event.Channels() {
		for _, h := range b.subs[channel] {
			handlers = append(handlers, h)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		deliver(h, event)
	}
}

func deliver(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event subscriber panicked", "type", event.Type, "panic", r)
		}
	}()
	h(event)
}
