package order

import (
	"context"
	"time"

	"storeadmin/internal/model"
	"storeadmin/internal/monitor"
	"storeadmin/internal/repository"
	"storeadmin/internal/service/activation"
	"storeadmin/internal/service/client"
	"storeadmin/internal/upstream"
	"storeadmin/pkg/log"
	"storeadmin/pkg/utils"
)

// marketplaceAPI is the slice of the upstream client the controller needs.
type marketplaceAPI interface {
	TransitionOrder(ctx context.Context, externalID, action string, payload *upstream.TransitionPayload) (*upstream.Order, error)
}

// clientLinker attaches finished orders to client records.
type clientLinker interface {
	Link(ctx context.Context, orderNo string) (*client.LinkResult, error)
}

// OrderService drives the order lifecycle. All transitions go through the
// local guards first, then the marketplace, then the local mirror; re-entrant
// requests and stale confirmations are no-ops returning the current state.
type OrderService interface {
	// Fulfill accepts a pending order into processing
	Fulfill(ctx context.Context, orderNo string) (*model.Order, error)

	// PreviewActivation returns the decision for the UI without sending
	PreviewActivation(ctx context.Context, orderNo string) (*activation.Decision, error)

	// SendActivation delivers activation for all undelivered items. Keys are
	// required for manual items, generated for auto ones. Status is unchanged.
	SendActivation(ctx context.Context, orderNo string, keys map[uint64]string) (*model.Order, error)

	// Complete moves a fully delivered processing order to completed
	Complete(ctx context.Context, orderNo string) (*model.Order, error)

	// Finish confirms a completed order (terminal for this workflow) and
	// runs the automatic client match. A link result of OutcomeNeedsEmail
	// sends the operator through the interactive path; link failures never
	// fail the finish itself.
	Finish(ctx context.Context, orderNo string) (*model.Order, *client.LinkResult, error)

	// Cancel cancels a pending or processing order
	Cancel(ctx context.Context, orderNo string, reason string) (*model.Order, error)

	// Get order by order number
	GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)

	// List orders filtered by status (0 = all)
	List(ctx context.Context, status int8, page, pageSize int) ([]*model.Order, int64, error)
}

// orderService order lifecycle implementation
type orderService struct {
	orderRepo        repository.OrderRepository
	notificationRepo repository.NotificationRepository
	engine           activation.Engine
	marketplace      marketplaceAPI
	linker           clientLinker
}

// NewOrderService creates the order lifecycle service
func NewOrderService(
	orderRepo repository.OrderRepository,
	notificationRepo repository.NotificationRepository,
	engine activation.Engine,
	marketplace marketplaceAPI,
	linker clientLinker,
) OrderService {
	return &orderService{
		orderRepo:        orderRepo,
		notificationRepo: notificationRepo,
		engine:           engine,
		marketplace:      marketplace,
		linker:           linker,
	}
}

// GetByOrderNo gets an order by order number
func (s *orderService) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	return s.orderRepo.GetByOrderNo(ctx, orderNo)
}

// List lists orders
func (s *orderService) List(ctx context.Context, status int8, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orderRepo.List(ctx, status, page, pageSize)
}

// Fulfill accepts a pending order into processing
func (s *orderService) Fulfill(ctx context.Context, orderNo string) (*model.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	// already past pending on the forward chain: stale or duplicate request
	if order.IsProcessing() || order.IsCompleted() || order.IsFinished() {
		return order, nil
	}
	if !order.IsPending() {
		return nil, utils.NewIllegalTransition(
			model.OrderStatusName(order.Status), "processing", "order is terminal")
	}

	if err := s.pushTransition(ctx, order, upstream.ActionFulfill, nil); err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusProcessing)
	if err != nil {
		return nil, err
	}
	if !updated {
		// lost the race to a concurrent fulfill; current state wins
		return s.orderRepo.GetByOrderNo(ctx, orderNo)
	}

	log.WithFields(map[string]interface{}{
		"order_no":    order.OrderNo,
		"external_id": order.ExternalID,
	}).Info("Order fulfilled")

	order.Status = model.OrderStatusProcessing
	return order, nil
}

// PreviewActivation returns the decision for the UI
func (s *orderService) PreviewActivation(ctx context.Context, orderNo string) (*activation.Decision, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	return s.engine.Decide(ctx, order)
}

// SendActivation delivers activation for all undelivered items
func (s *orderService) SendActivation(ctx context.Context, orderNo string, keys map[uint64]string) (*model.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	// everything already delivered: duplicate request
	if order.ActivationSent {
		return order, nil
	}
	if !order.IsProcessing() {
		return nil, utils.NewIllegalTransition(
			model.OrderStatusName(order.Status), "processing", "fulfillment accepted")
	}

	decision, err := s.engine.Decide(ctx, order)
	if err != nil {
		return nil, err
	}
	monitor.Metrics().RecordDecision(decision.Kind.String())
	if decision.Kind == activation.DecisionBlocked {
		return nil, utils.NewMissingTemplate(decision.MissingTemplates)
	}
	if err := s.engine.ValidateKeys(decision, keys); err != nil {
		return nil, err
	}

	manual := make(map[uint64]bool, len(decision.ManualItems))
	for _, item := range decision.ManualItems {
		manual[item.ItemID] = true
	}

	// one key per undelivered item; operator keys for manual templates,
	// generated codes for auto ones
	itemKeys := make(map[uint64]string)
	for _, item := range order.Items {
		if item.ActivationSent {
			continue
		}
		if manual[item.ID] {
			itemKeys[item.ID] = keys[item.ID]
		} else {
			itemKeys[item.ID] = utils.GenerateActivationCode(4, 4)
		}
	}
	if len(itemKeys) == 0 {
		return order, nil
	}

	if err := s.pushTransition(ctx, order, upstream.ActionSendActivation, &upstream.TransitionPayload{Keys: itemKeys}); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.orderRepo.MarkItemsSent(ctx, order.ID, itemKeys, now); err != nil {
		return nil, err
	}

	monitor.Metrics().RecordActivationSent()
	log.WithFields(map[string]interface{}{
		"order_no": order.OrderNo,
		"items":    len(itemKeys),
		"decision": decision.Kind.String(),
	}).Info("Activation sent")

	return s.orderRepo.GetByOrderNo(ctx, orderNo)
}

// Complete moves a fully delivered processing order to completed
func (s *orderService) Complete(ctx context.Context, orderNo string) (*model.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	if order.IsCompleted() || order.IsFinished() {
		return order, nil
	}
	if !order.IsProcessing() {
		return nil, utils.NewIllegalTransition(
			model.OrderStatusName(order.Status), "completed", "fulfillment accepted")
	}
	if !order.ActivationSent {
		return nil, utils.NewIllegalTransition(
			"processing", "completed", "activation sent for all items")
	}

	if err := s.pushTransition(ctx, order, upstream.ActionComplete, nil); err != nil {
		return nil, err
	}

	now := time.Now()
	updated, err := s.orderRepo.MarkCompleted(ctx, order.ID, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return s.orderRepo.GetByOrderNo(ctx, orderNo)
	}

	log.WithFields(map[string]interface{}{
		"order_no": order.OrderNo,
	}).Info("Order completed")

	order.Status = model.OrderStatusCompleted
	order.CompletedAt = &now
	return order, nil
}

// Finish confirms a completed order
func (s *orderService) Finish(ctx context.Context, orderNo string) (*model.Order, *client.LinkResult, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, nil, err
	}

	if order.IsFinished() {
		return order, nil, nil
	}
	if !order.IsCompleted() {
		return nil, nil, utils.NewIllegalTransition(
			model.OrderStatusName(order.Status), "finished", "order completed")
	}

	if err := s.pushTransition(ctx, order, upstream.ActionMarkFinished, nil); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	updated, err := s.orderRepo.MarkFinished(ctx, order.ID, now)
	if err != nil {
		return nil, nil, err
	}
	if !updated {
		current, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
		return current, nil, err
	}

	log.WithFields(map[string]interface{}{
		"order_no": order.OrderNo,
	}).Info("Order finished")

	order.Status = model.OrderStatusFinished
	order.FinishedAt = &now

	return order, s.linkFinished(ctx, order), nil
}

// linkFinished runs the automatic client match after a finish. The order
// is already terminal; a failed match only costs the operator a manual
// link, so errors degrade to a warning.
func (s *orderService) linkFinished(ctx context.Context, order *model.Order) *client.LinkResult {
	result, err := s.linker.Link(ctx, order.OrderNo)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"order_no": order.OrderNo,
		}).Warn("Automatic client link failed after finish")
		return nil
	}
	return result
}

// Cancel cancels a pending or processing order
func (s *orderService) Cancel(ctx context.Context, orderNo string, reason string) (*model.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	if order.Status == model.OrderStatusCancelled {
		return order, nil
	}
	if !order.CanCancel() {
		return nil, utils.NewIllegalTransition(
			model.OrderStatusName(order.Status), "cancelled", "cancellable only before completion")
	}

	if err := s.pushTransition(ctx, order, upstream.ActionCancel, &upstream.TransitionPayload{Reason: reason}); err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.MarkCancelled(ctx, order.ID, order.Status, reason)
	if err != nil {
		return nil, err
	}
	if !updated {
		return s.orderRepo.GetByOrderNo(ctx, orderNo)
	}

	log.WithFields(map[string]interface{}{
		"order_no": order.OrderNo,
		"reason":   reason,
	}).Info("Order cancelled")

	order.Status = model.OrderStatusCancelled
	order.CancelReason = &reason
	return order, nil
}

// pushTransition applies a lifecycle action on the marketplace. A
// configuration-required rejection is surfaced as its own notification
// before the error is returned to the caller.
func (s *orderService) pushTransition(ctx context.Context, order *model.Order, action string, payload *upstream.TransitionPayload) error {
	_, err := s.marketplace.TransitionOrder(ctx, order.ExternalID, action, payload)
	monitor.Metrics().RecordTransition(action, err)
	if err == nil {
		return nil
	}

	if utils.HasCode(err, utils.CodeConfigurationRequired) {
		s.raiseConfigurationNotification(ctx, order, action)
	}
	return err
}

// raiseConfigurationNotification creates the dedicated workflow
// notification once; later rejections reuse the existing row.
func (s *orderService) raiseConfigurationNotification(ctx context.Context, order *model.Order, action string) {
	reason := model.ReasonUpstreamConfigurationRequired
	if _, err := s.notificationRepo.GetByReason(ctx, reason); err == nil {
		return
	}

	notification := &model.Notification{
		Kind:    model.NotificationKindWorkflow,
		Reason:  &reason,
		Title:   "Marketplace configuration required",
		Message: "The marketplace rejected a " + action + " action until the account is configured.",
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"order_no": order.OrderNo,
		}).Error("Failed to record configuration notification")
	}
}
