package realtime

import (
	"sync"
)

// HandlerFunc is the signature for event handlers. Type handlers and
// wildcard handlers both receive the full decoded frame; the payload is in
// msg.Data. A returned error is logged and reported, never propagated.
type HandlerFunc func(msg *Message) error

// subscription is one registration. Removal is by pointer identity, so the
// same HandlerFunc subscribed twice yields two independent registrations.
type subscription struct {
	eventType string
	fn        HandlerFunc
}

type handlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]*subscription // event type → handlers in subscription order
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{
		handlers: make(map[string][]*subscription),
	}
}

func (r *handlerRegistry) add(eventType string, fn HandlerFunc) *subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := &subscription{eventType: eventType, fn: fn}
	r.handlers[eventType] = append(r.handlers[eventType], sub)
	return sub
}

func (r *handlerRegistry) remove(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.handlers[sub.eventType]
	for i, s := range subs {
		if s == sub {
			kept := make([]*subscription, 0, len(subs)-1)
			kept = append(kept, subs[:i]...)
			kept = append(kept, subs[i+1:]...)
			if len(kept) == 0 {
				delete(r.handlers, sub.eventType)
			} else {
				r.handlers[sub.eventType] = kept
			}
			return
		}
	}
}

// lookup returns a snapshot of the handlers for eventType. The snapshot
// lets handlers subscribe or unsubscribe while a dispatch is running.
func (r *handlerRegistry) lookup(eventType string) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.handlers[eventType]
	if len(subs) == 0 {
		return nil
	}
	cp := make([]*subscription, len(subs))
	copy(cp, subs)
	return cp
}

func (r *handlerRegistry) count(eventType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[eventType])
}
