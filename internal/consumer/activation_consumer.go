package consumer

import (
	"context"
	"encoding/json"

	"storeadmin/internal/model"
	"storeadmin/internal/service/order"
	"storeadmin/pkg/log"
	"storeadmin/pkg/queue"
	"storeadmin/pkg/utils"
)

// ActivationConsumer drains auto-activation jobs queued by the order sync
// loop. Each job fulfills the order and sends activation for its items.
type ActivationConsumer struct {
	orderService order.OrderService
	messageQueue queue.Queue
}

// NewActivationConsumer creates an activation consumer
func NewActivationConsumer(orderService order.OrderService, messageQueue queue.Queue) *ActivationConsumer {
	return &ActivationConsumer{
		orderService: orderService,
		messageQueue: messageQueue,
	}
}

// Start subscribes to the activation job topic
func (c *ActivationConsumer) Start(ctx context.Context) error {
	log.Info("Starting activation consumer")
	return c.messageQueue.Subscribe(ctx, queue.TopicActivationJobs, c.handle)
}

// handle processes a single job. Errors are logged, never re-raised: a
// poisoned job must not take the subscription down, and the operator can
// always deliver manually from the order view.
func (c *ActivationConsumer) handle(ctx context.Context, topic string, message []byte) error {
	var job model.ActivationJob
	if err := json.Unmarshal(message, &job); err != nil {
		log.WithError(err).Error("Malformed activation job dropped")
		return nil
	}

	ord, err := c.orderService.GetByOrderNo(ctx, job.OrderNo)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"order_no": job.OrderNo,
			"trace_id": job.TraceID,
			"error":    err.Error(),
		}).Error("Activation job for unknown order")
		return nil
	}

	if ord.Status == model.OrderStatusPending {
		if _, err := c.orderService.Fulfill(ctx, job.OrderNo); err != nil {
			log.WithFields(map[string]interface{}{
				"order_no": job.OrderNo,
				"trace_id": job.TraceID,
				"error":    err.Error(),
			}).Error("Auto-fulfill failed")
			return nil
		}
	}

	// The decision is re-evaluated inside SendActivation. Templates may
	// have changed since the job was queued, so a now-manual or blocked
	// order falls back to the operator instead of sending stale content.
	if _, err := c.orderService.SendActivation(ctx, job.OrderNo, nil); err != nil {
		if utils.HasCode(err, utils.CodeMissingActivationKey) || utils.HasCode(err, utils.CodeMissingTemplate) {
			log.WithFields(map[string]interface{}{
				"order_no": job.OrderNo,
				"trace_id": job.TraceID,
			}).Warn("Auto-activation no longer applies, left for operator")
			return nil
		}
		log.WithFields(map[string]interface{}{
			"order_no": job.OrderNo,
			"trace_id": job.TraceID,
			"error":    err.Error(),
		}).Error("Auto-activation send failed")
		return nil
	}

	log.WithFields(map[string]interface{}{
		"order_no": job.OrderNo,
		"trace_id": job.TraceID,
	}).Info("Auto-activation delivered")
	return nil
}
