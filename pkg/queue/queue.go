package queue

import (
	"context"
	"errors"
)

// Topics used by the fulfillment workflow.
const (
	// TopicActivationJobs carries auto-activation jobs from the order sync
	// loop to the activation consumer.
	TopicActivationJobs = "activation.jobs"
	// TopicNotifications carries the live notification set to SPA subscribers.
	TopicNotifications = "notifications.updates"
	// TopicUnreadCounts carries per-order unread chat counts to SPA subscribers.
	TopicUnreadCounts = "chat.unread"
)

// Queue defines the interface for message queue operations
type Queue interface {
	// Publish publishes a message to the specified topic
	Publish(ctx context.Context, topic string, message []byte) error

	// Subscribe subscribes to messages from the specified topic
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error

	// Close closes the queue connections
	Close() error

	// Health checks the health of the queue
	Health() error
}

// MessageHandler handles incoming messages
type MessageHandler func(ctx context.Context, topic string, message []byte) error

// Common errors
var (
	ErrQueueClosed    = errors.New("queue is closed")
	ErrPublishTimeout = errors.New("publish timeout")
)
