package events

import (
	"context"
	"encoding/json"
	"sync"

	"storeadmin/pkg/log"
	"storeadmin/pkg/queue"
)

// subscriberBuffer events buffered per SPA connection before drops start.
const subscriberBuffer = 16

// Event is one fanout item as the SPA receives it. The payload is the
// queue message verbatim (NotificationEvent or UnreadEvent JSON).
type Event struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Hub drains the UI fanout topics and distributes events to connected
// SPA subscribers. The hub is the sole queue consumer for these topics;
// without it the reconcile and chat poll loops would fill the topic
// buffers and stall on publish.
type Hub interface {
	// Start subscribes to the fanout topics. Call once at boot.
	Start(ctx context.Context) error

	// Subscribe registers a subscriber and returns its event channel and
	// a cancel function. Events a subscriber is too slow to take are
	// dropped for that subscriber only.
	Subscribe() (<-chan Event, func())
}

// hub event hub implementation
type hub struct {
	queue queue.Queue

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewHub creates an event hub over the in-process queue.
func NewHub(q queue.Queue) Hub {
	return &hub{
		queue: q,
		subs:  make(map[int]chan Event),
	}
}

// Start subscribes to the fanout topics
func (h *hub) Start(ctx context.Context) error {
	for _, topic := range []string{queue.TopicNotifications, queue.TopicUnreadCounts} {
		if err := h.queue.Subscribe(ctx, topic, h.fanout); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a subscriber
func (h *hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// fanout distributes one queue message to every subscriber. A full
// subscriber channel drops the event; the SPA reconciles on its next
// list fetch, so losing an intermediate count is harmless.
func (h *hub) fanout(ctx context.Context, topic string, message []byte) error {
	event := Event{
		Topic:   topic,
		Payload: json.RawMessage(append([]byte(nil), message...)),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			log.WithFields(map[string]interface{}{
				"topic":      topic,
				"subscriber": id,
			}).Debug("Dropped event for slow subscriber")
		}
	}
	return nil
}
