package store

import (
	"sync"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is a change notification emitted by the store after a successful
// write. Exactly one of Photo or Note is set. Embedding is set when the
// write was an embedding upsert, so subscribers holding a live view can
// attach the vector without a round trip.
type Event struct {
	Type      EventType
	Photo     *Photo
	Note      *Note
	Embedding []float32
}

// CreatorID returns the owner of the changed record.
func (e Event) CreatorID() int32 {
	if e.Photo != nil {
		return e.Photo.CreatorID
	}
	if e.Note != nil {
		return e.Note.CreatorID
	}
	return 0
}

// Subscription is a handle to a stream of store events for one user.
type Subscription struct {
	ID string
	C  <-chan Event

	creatorID int32
	ch        chan Event
}

// Notifier fans out store change events to in-process subscribers. Sends are
// non-blocking: a subscriber that falls behind drops events and relies on its
// polling sources to repair the difference, so a slow consumer can never
// stall a write.
type Notifier struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

func NewNotifier() *Notifier {
	return &Notifier{
		subs: map[string]*Subscription{},
	}
}

// Subscribe registers a subscriber for events on records owned by creatorID.
func (n *Notifier) Subscribe(creatorID int32) *Subscription {
	ch := make(chan Event, 64)
	sub := &Subscription{
		ID:        uuid.New().String(),
		C:         ch,
		creatorID: creatorID,
		ch:        ch,
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	sub, ok := n.subs[id]
	if !ok {
		return
	}
	delete(n.subs, id)
	close(sub.ch)
}

// Publish delivers an event to every matching subscriber.
func (n *Notifier) Publish(event Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, sub := range n.subs {
		if sub.creatorID != event.CreatorID() {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Dropped; the subscriber's poll cycle will catch up.
		}
	}
}
