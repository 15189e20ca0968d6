package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"storeadmin/internal/model"
	"storeadmin/pkg/utils"
)

// OrderRepository order repository interface
type OrderRepository interface {
	// Create order with its items
	Create(ctx context.Context, order *model.Order) error

	// Get order by internal ID, items preloaded
	GetByID(ctx context.Context, id uint64) (*model.Order, error)

	// Get order by marketplace order ID, items preloaded
	GetByExternalID(ctx context.Context, externalID string) (*model.Order, error)

	// Get order by admin-facing order number, items preloaded
	GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)

	// ExistsByExternalID reports whether the external ID is already mirrored
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)

	// ListExternalIDs returns all known marketplace order ids (dedup filter seed)
	ListExternalIDs(ctx context.Context) ([]string, error)

	// UpdateStatus moves an order from one status to another. Returns false
	// when the order was not in the expected status (lost race or stale request).
	UpdateStatus(ctx context.Context, id uint64, from, to int8) (bool, error)

	// MarkCompleted stamps completion time together with the status change
	MarkCompleted(ctx context.Context, id uint64, at time.Time) (bool, error)

	// MarkFinished stamps finish time together with the status change
	MarkFinished(ctx context.Context, id uint64, at time.Time) (bool, error)

	// MarkCancelled stamps the cancel reason together with the status change
	MarkCancelled(ctx context.Context, id uint64, from int8, reason string) (bool, error)

	// MarkItemsSent sets activation keys and sent flags on items and flips the
	// order aggregate flag, all in one transaction
	MarkItemsSent(ctx context.Context, orderID uint64, keys map[uint64]string, at time.Time) error

	// MarkHasClient flips has_client exactly once (monotonic)
	MarkHasClient(ctx context.Context, id uint64) error

	// List orders filtered by status (0 = all), newest first
	List(ctx context.Context, status int8, page, pageSize int) ([]*model.Order, int64, error)

	// ListByStatus returns all orders in a status, oldest first (sync loop)
	ListByStatus(ctx context.Context, status int8, limit int) ([]*model.Order, error)
}

// orderRepository order repository implementation
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates an order with its items
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return nil
	})
}

// GetByID gets an order by internal ID
func (r *orderRepository) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByExternalID gets an order by marketplace order ID
func (r *orderRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "external_id = ?", externalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo gets an order by admin-facing order number
func (r *orderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "order_no = ?", orderNo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ExistsByExternalID reports whether the external ID is already mirrored
func (r *orderRepository) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("external_id = ?", externalID).
		Count(&count).Error
	return count > 0, err
}

// ListExternalIDs returns all known marketplace order ids
func (r *orderRepository) ListExternalIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Pluck("external_id", &ids).Error
	return ids, err
}

// UpdateStatus moves an order between statuses with an optimistic guard
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint64, from, to int8) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCompleted stamps completion time together with the status change
func (r *orderRepository) MarkCompleted(ctx context.Context, id uint64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, model.OrderStatusProcessing).
		Updates(map[string]interface{}{
			"status":       model.OrderStatusCompleted,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFinished stamps finish time together with the status change
func (r *orderRepository) MarkFinished(ctx context.Context, id uint64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, model.OrderStatusCompleted).
		Updates(map[string]interface{}{
			"status":      model.OrderStatusFinished,
			"finished_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCancelled stamps the cancel reason together with the status change
func (r *orderRepository) MarkCancelled(ctx context.Context, id uint64, from int8, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":        model.OrderStatusCancelled,
			"cancel_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkItemsSent sets activation keys and sent flags on items and the order
func (r *orderRepository) MarkItemsSent(ctx context.Context, orderID uint64, keys map[uint64]string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for itemID, key := range keys {
			result := tx.Model(&model.OrderItem{}).
				Where("id = ? AND order_id = ?", itemID, orderID).
				Updates(map[string]interface{}{
					"activation_sent": true,
					"activation_key":  key,
					"sent_at":         at,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return utils.ErrOrderNotFound
			}
		}

		// flip the aggregate flag only once every item is delivered
		var pending int64
		if err := tx.Model(&model.OrderItem{}).
			Where("order_id = ? AND activation_sent = ?", orderID, false).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending == 0 {
			return tx.Model(&model.Order{}).
				Where("id = ?", orderID).
				Update("activation_sent", true).Error
		}
		return nil
	})
}

// MarkHasClient flips has_client exactly once
func (r *orderRepository) MarkHasClient(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND has_client = ?", id, false).
		Update("has_client", true).Error
}

// List orders filtered by status, newest first
func (r *orderRepository) List(ctx context.Context, status int8, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{})
	if status != 0 {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	return orders, total, err
}

// ListByStatus returns orders in a status, oldest first
func (r *orderRepository) ListByStatus(ctx context.Context, status int8, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
