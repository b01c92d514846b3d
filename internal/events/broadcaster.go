// Package events fans template change events out to subscribers.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-alert-relationships/internal/models"
)

const subscriberBuffer = 32

type Broadcaster struct {
	subscribers map[uint64]chan *models.TemplateEvent
	nextID      atomic.Uint64
	dropped     atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.TemplateEvent),
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan *models.TemplateEvent) {
	id := b.nextID.Add(1)
	ch := make(chan *models.TemplateEvent, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish delivers ev to every subscriber with room in its buffer. Slow
// subscribers miss the event.
func (b *Broadcaster) Publish(ev *models.TemplateEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped for full buffers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels, ending their streams
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
