package event

import (
	"sync"
	"time"
)

// Alert is published after every inbox reconcile so presentation layers
// (toast queue, unread badge stream) can react without polling the inbox.
type Alert struct {
	RecipientID string    `json:"recipientId"`
	UnreadCount int       `json:"unreadCount"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

const subscriberBuffer = 8

// Bus is an explicit publish/subscribe fanout with a bounded lifecycle: its
// owner creates it, injects it into producers and consumers, and closes it on
// shutdown. Slow subscribers drop alerts instead of blocking publishers; a
// dropped alert is recovered by the next one or by reading the inbox snapshot.
type Bus struct {
	mu          sync.Mutex
	subscribers map[chan Alert]struct{}
	closed      bool
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[chan Alert]struct{}),
	}
}

// Subscribe registers a new listener channel. The caller must Unsubscribe it
// when done; the returned channel is closed on Unsubscribe or bus Close.
func (b *Bus) Subscribe() chan Alert {
	ch := make(chan Alert, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[ch] = struct{}{}
	return ch
}

func (b *Bus) Unsubscribe(ch chan Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// Publish fans an alert out to every subscriber without blocking.
func (b *Bus) Publish(alert Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subscribers {
		select {
		case ch <- alert:
		default:
		}
	}
}

// Close tears the bus down; all subscriber channels are closed and further
// publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}
