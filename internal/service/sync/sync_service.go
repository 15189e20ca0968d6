package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storeadmin/internal/model"
	"storeadmin/internal/monitor"
	"storeadmin/internal/repository"
	"storeadmin/internal/service/activation"
	"storeadmin/internal/upstream"
	"storeadmin/pkg/bloom"
	"storeadmin/pkg/log"
	"storeadmin/pkg/poller"
	"storeadmin/pkg/queue"
	"storeadmin/pkg/snowflake"
)

// orderSource is the upstream surface the sync loop needs.
type orderSource interface {
	FetchOrders(ctx context.Context, filters upstream.OrderFilters) ([]upstream.Order, error)
}

// autoActivationGate reports whether unattended delivery is enabled.
type autoActivationGate interface {
	AutoActivationEnabled(ctx context.Context) bool
}

// SyncService mirrors marketplace orders locally. A bloom filter seeded
// from the database answers "seen before?" without a query per order; a
// positive answer is confirmed against the database so a false positive
// can never drop a new order.
type SyncService interface {
	// Start begins the sync loop
	Start(ctx context.Context)

	// Stop halts the sync loop
	Stop()

	// SyncOnce runs one ingestion cycle immediately
	SyncOnce(ctx context.Context) error
}

// syncService order sync implementation
type syncService struct {
	source      orderSource
	orderRepo   repository.OrderRepository
	engine      activation.Engine
	gate        autoActivationGate
	queue       queue.Queue
	idGenerator *snowflake.IDGenerator
	dedup       *bloom.DedupFilter
	seeded      bool

	poller *poller.Poller
}

// NewSyncService creates the order sync loop
func NewSyncService(
	source orderSource,
	orderRepo repository.OrderRepository,
	engine activation.Engine,
	gate autoActivationGate,
	q queue.Queue,
	idGenerator *snowflake.IDGenerator,
	interval time.Duration,
) SyncService {
	s := &syncService{
		source:      source,
		orderRepo:   orderRepo,
		engine:      engine,
		gate:        gate,
		queue:       q,
		idGenerator: idGenerator,
		dedup:       bloom.NewDedupFilter(100000, 0.01),
	}
	s.poller = poller.New("orders:sync", interval, s.SyncOnce, func(err error) {
		log.WithError(err).Warn("Order sync cycle failed")
	})
	return s
}

// Start begins the sync loop
func (s *syncService) Start(ctx context.Context) {
	s.poller.Start(ctx)
}

// Stop halts the sync loop
func (s *syncService) Stop() {
	s.poller.Stop()
}

// SyncOnce runs one ingestion cycle
func (s *syncService) SyncOnce(ctx context.Context) error {
	if err := s.seed(ctx); err != nil {
		return err
	}

	orders, err := s.source.FetchOrders(ctx, upstream.OrderFilters{})
	if err != nil {
		return err
	}

	ingested := 0
	for i := range orders {
		created, err := s.ingest(ctx, &orders[i])
		if err != nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"external_id": orders[i].ID,
			}).Error("Failed to ingest order")
			continue
		}
		if created {
			ingested++
		}
	}

	if ingested > 0 {
		monitor.Metrics().RecordOrdersIngested(ingested)
		log.WithFields(map[string]interface{}{
			"fetched":  len(orders),
			"ingested": ingested,
		}).Info("Order sync cycle done")
	}
	return nil
}

// seed fills the dedup filter with already-mirrored ids, once
func (s *syncService) seed(ctx context.Context) error {
	if s.seeded {
		return nil
	}
	ids, err := s.orderRepo.ListExternalIDs(ctx)
	if err != nil {
		return err
	}
	s.dedup.AddAll(ids)
	s.seeded = true
	return nil
}

// ingest mirrors one upstream order if it is new. Returns true when a
// local row was created.
func (s *syncService) ingest(ctx context.Context, wire *upstream.Order) (bool, error) {
	if s.dedup.MightContain(wire.ID) {
		// confirm: a bloom positive may be a false one
		exists, err := s.orderRepo.ExistsByExternalID(ctx, wire.ID)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}

	order := s.normalize(wire)
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return false, err
	}
	s.dedup.Add(wire.ID)

	if order.IsProcessing() {
		s.maybeQueueActivation(ctx, order)
	}
	return true, nil
}

// normalize converts the wire shape into the local mirror. Legacy
// single-product flat orders are folded into a one-item list here and
// nowhere else; everything past this boundary sees items only.
func (s *syncService) normalize(wire *upstream.Order) *model.Order {
	orderID := uint64(s.idGenerator.NextID())

	orderNo := wire.OrderNo
	if orderNo == "" {
		orderNo = fmt.Sprintf("SA%d", orderID)
	}

	items := wire.Items
	if wire.IsLegacyFlat() {
		items = []upstream.OrderItem{{
			ProductID:   wire.ProductID,
			ProductName: wire.ProductName,
			Quantity:    wire.Quantity,
			UnitPrice:   wire.UnitPrice,
		}}
	}

	order := &model.Order{
		ID:         orderID,
		ExternalID: wire.ID,
		OrderNo:    orderNo,
		BuyerEmail: wire.BuyerEmail,
		BuyerName:  wire.BuyerName,
		Status:     statusFromWire(wire.Status),
		Currency:   wire.Currency,
		PlacedAt:   wire.PlacedAt,
	}
	if order.Currency == "" {
		order.Currency = "EUR"
	}

	var total int64
	for _, item := range items {
		total += item.UnitPrice * int64(item.Quantity)
		order.Items = append(order.Items, model.OrderItem{
			ID:          uint64(s.idGenerator.NextID()),
			OrderID:     orderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TemplateID:  item.TemplateID,
		})
	}
	order.TotalAmount = wire.Amount
	if order.TotalAmount == 0 {
		order.TotalAmount = total
	}
	return order
}

// statusFromWire maps marketplace status names onto the local lifecycle.
// Unknown names are mirrored as pending so the operator sees them.
func statusFromWire(status string) int8 {
	switch status {
	case "processing":
		return model.OrderStatusProcessing
	case "completed":
		return model.OrderStatusCompleted
	case "finished":
		return model.OrderStatusFinished
	case "cancelled":
		return model.OrderStatusCancelled
	case "failed":
		return model.OrderStatusFailed
	default:
		return model.OrderStatusPending
	}
}

// maybeQueueActivation publishes an auto-activation job for a fresh
// processing order when the global toggle is on and the decision allows
// unattended delivery.
func (s *syncService) maybeQueueActivation(ctx context.Context, order *model.Order) {
	if !s.gate.AutoActivationEnabled(ctx) {
		return
	}

	decision, err := s.engine.Decide(ctx, order)
	if err != nil || decision.Kind != activation.DecisionAutoReady {
		return
	}

	job := model.ActivationJob{
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		ExternalID: order.ExternalID,
		Requested:  time.Now().Unix(),
		TraceID:    fmt.Sprintf("sync-%d", order.ID),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, queue.TopicActivationJobs, payload); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"order_no": order.OrderNo,
		}).Warn("Failed to queue auto-activation job")
	}
}
