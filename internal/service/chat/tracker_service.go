package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storeadmin/internal/model"
	"storeadmin/internal/monitor"
	"storeadmin/internal/redis"
	"storeadmin/internal/upstream"
	"storeadmin/pkg/log"
	"storeadmin/pkg/poller"
	"storeadmin/pkg/queue"
)

// marketplaceChat is the slice of the upstream client the tracker needs.
type marketplaceChat interface {
	FetchChatMessages(ctx context.Context, externalID string) ([]upstream.ChatMessage, error)
	SendChatMessage(ctx context.Context, externalID, text string) error
	MarkChatRead(ctx context.Context, externalID string) error
}

// orderLookup resolves order numbers to marketplace ids.
type orderLookup interface {
	GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)
}

// TrackerService owns the seller-side chat read state. Threads live on
// the marketplace; what is tracked locally is the monotonic lastReadAt
// marker per order plus one short poller per open thread view.
type TrackerService interface {
	// Messages loads the thread of an order
	Messages(ctx context.Context, orderNo string) ([]model.ChatMessage, error)

	// Send posts a seller message
	Send(ctx context.Context, orderNo, text string) error

	// MarkRead advances the read marker to at (never backward) and
	// reports the effective marker after the merge
	MarkRead(ctx context.Context, orderNo string, at time.Time) (time.Time, error)

	// UnreadCount counts buyer messages newer than the read marker
	UnreadCount(ctx context.Context, orderNo string) (int, error)

	// OpenThread marks the thread read and starts its unread poller.
	// Opening an already-open thread is a no-op.
	OpenThread(ctx context.Context, orderNo string) error

	// CloseThread stops the thread poller. Unknown threads are a no-op.
	CloseThread(orderNo string)

	// Shutdown stops all thread pollers
	Shutdown()
}

// trackerService chat tracker implementation
type trackerService struct {
	marketplace  marketplaceChat
	orders       orderLookup
	redis        *goredis.Client
	queue        queue.Queue
	pollInterval time.Duration

	mu      sync.Mutex
	pollers map[string]*poller.Poller
}

// NewTrackerService creates a chat tracker
func NewTrackerService(
	marketplace marketplaceChat,
	orders orderLookup,
	redisClient *goredis.Client,
	q queue.Queue,
	pollInterval time.Duration,
) TrackerService {
	return &trackerService{
		marketplace:  marketplace,
		orders:       orders,
		redis:        redisClient,
		queue:        q,
		pollInterval: pollInterval,
		pollers:      make(map[string]*poller.Poller),
	}
}

// externalID resolves the marketplace id of an order number
func (s *trackerService) externalID(ctx context.Context, orderNo string) (string, error) {
	order, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return "", err
	}
	return order.ExternalID, nil
}

// Messages loads the thread of an order
func (s *trackerService) Messages(ctx context.Context, orderNo string) ([]model.ChatMessage, error) {
	externalID, err := s.externalID(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	wire, err := s.marketplace.FetchChatMessages(ctx, externalID)
	if err != nil {
		return nil, err
	}

	messages := make([]model.ChatMessage, 0, len(wire))
	for _, m := range wire {
		messages = append(messages, model.ChatMessage{
			ID:        m.ID,
			OrderID:   m.OrderID,
			Author:    strings.ToUpper(m.Author),
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}
	return messages, nil
}

// Send posts a seller message
func (s *trackerService) Send(ctx context.Context, orderNo, text string) error {
	externalID, err := s.externalID(ctx, orderNo)
	if err != nil {
		return err
	}
	return s.marketplace.SendChatMessage(ctx, externalID, text)
}

// MarkRead advances the read marker, never backward
func (s *trackerService) MarkRead(ctx context.Context, orderNo string, at time.Time) (time.Time, error) {
	externalID, err := s.externalID(ctx, orderNo)
	if err != nil {
		return time.Time{}, err
	}

	effective, err := redis.MarkRead(ctx, s.redis, externalID, at)
	if err != nil {
		return time.Time{}, err
	}

	// best effort; the local marker is authoritative for unread counts
	if err := s.marketplace.MarkChatRead(ctx, externalID); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"order_no": orderNo,
		}).Warn("Failed to propagate read marker to the marketplace")
	}
	return effective, nil
}

// UnreadCount counts buyer messages newer than the read marker
func (s *trackerService) UnreadCount(ctx context.Context, orderNo string) (int, error) {
	externalID, err := s.externalID(ctx, orderNo)
	if err != nil {
		return 0, err
	}
	return s.unreadByExternalID(ctx, externalID)
}

func (s *trackerService) unreadByExternalID(ctx context.Context, externalID string) (int, error) {
	lastRead, err := redis.LastReadAt(ctx, s.redis, externalID)
	if err != nil {
		return 0, err
	}

	wire, err := s.marketplace.FetchChatMessages(ctx, externalID)
	if err != nil {
		return 0, err
	}

	unread := 0
	for _, m := range wire {
		message := model.ChatMessage{Author: strings.ToUpper(m.Author)}
		if message.FromBuyer() && m.CreatedAt.After(lastRead) {
			unread++
		}
	}
	return unread, nil
}

// OpenThread marks the thread read and starts its unread poller
func (s *trackerService) OpenThread(ctx context.Context, orderNo string) error {
	externalID, err := s.externalID(ctx, orderNo)
	if err != nil {
		return err
	}

	if _, err := s.MarkRead(ctx, orderNo, time.Now()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, open := s.pollers[orderNo]; open {
		return nil
	}

	p := poller.New("chat:"+orderNo, s.pollInterval, func(ctx context.Context) error {
		err := s.pollUnread(ctx, externalID)
		monitor.Metrics().RecordUnreadPoll(err)
		return err
	}, func(err error) {
		log.WithError(err).WithFields(map[string]interface{}{
			"order_no": orderNo,
		}).Warn("Chat unread poll failed")
	})
	// the poller outlives the request that opened the thread; its lifetime
	// is bounded by CloseThread and Shutdown, not the handler context
	p.Start(context.Background())
	s.pollers[orderNo] = p
	return nil
}

// CloseThread stops the thread poller
func (s *trackerService) CloseThread(orderNo string) {
	s.mu.Lock()
	p, open := s.pollers[orderNo]
	delete(s.pollers, orderNo)
	s.mu.Unlock()

	if open {
		p.Stop()
	}
}

// Shutdown stops all thread pollers
func (s *trackerService) Shutdown() {
	s.mu.Lock()
	pollers := s.pollers
	s.pollers = make(map[string]*poller.Poller)
	s.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
}

// pollUnread runs one unread cycle for an open thread
func (s *trackerService) pollUnread(ctx context.Context, externalID string) error {
	unread, err := s.unreadByExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	return s.publishUnread(ctx, externalID, unread)
}

// publishUnread fans the fresh count out to SPA subscribers
func (s *trackerService) publishUnread(ctx context.Context, externalID string, unread int) error {
	event := model.UnreadEvent{
		ExternalOrderID: externalID,
		Unread:          unread,
		Timestamp:       time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.queue.Publish(ctx, queue.TopicUnreadCounts, payload)
}
