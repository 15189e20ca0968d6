package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"storeadmin/internal/model"
	"storeadmin/pkg/utils"
)

// NotificationRepository notification repository interface
type NotificationRepository interface {
	// Get notification by ID
	GetByID(ctx context.Context, id uint64) (*model.Notification, error)

	// GetByReason finds the configuration notification for a stable reason id
	GetByReason(ctx context.Context, reason string) (*model.Notification, error)

	// ListConfiguration returns all configuration-kind notifications
	ListConfiguration(ctx context.Context) ([]*model.Notification, error)

	// List all notifications, newest first
	List(ctx context.Context) ([]*model.Notification, error)

	// CountUnread counts unread notifications
	CountUnread(ctx context.Context) (int64, error)

	// Create creates a notification
	Create(ctx context.Context, notification *model.Notification) error

	// MarkRead flips read to true
	MarkRead(ctx context.Context, id uint64) error

	// Delete removes a notification
	Delete(ctx context.Context, id uint64) error

	// DeleteByReason removes the configuration notification for a reason id
	DeleteByReason(ctx context.Context, reason string) error
}

// notificationRepository notification repository implementation
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// GetByID gets a notification by ID
func (r *notificationRepository) GetByID(ctx context.Context, id uint64) (*model.Notification, error) {
	var notification model.Notification
	err := r.db.WithContext(ctx).First(&notification, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound
		}
		return nil, err
	}
	return &notification, nil
}

// GetByReason finds the configuration notification for a reason id
func (r *notificationRepository) GetByReason(ctx context.Context, reason string) (*model.Notification, error) {
	var notification model.Notification
	err := r.db.WithContext(ctx).First(&notification, "reason = ?", reason).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound
		}
		return nil, err
	}
	return &notification, nil
}

// ListConfiguration returns all configuration-kind notifications
func (r *notificationRepository) ListConfiguration(ctx context.Context) ([]*model.Notification, error) {
	var notifications []*model.Notification
	err := r.db.WithContext(ctx).
		Where("kind = ?", model.NotificationKindConfiguration).
		Find(&notifications).Error
	return notifications, err
}

// List all notifications, newest first
func (r *notificationRepository) List(ctx context.Context) ([]*model.Notification, error) {
	var notifications []*model.Notification
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}

// CountUnread counts unread notifications
func (r *notificationRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("`read` = ?", false).
		Count(&count).Error
	return count, err
}

// Create creates a notification
func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// MarkRead flips read to true
func (r *notificationRepository) MarkRead(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// Delete removes a notification
func (r *notificationRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&model.Notification{}, "id = ?", id).Error
}

// DeleteByReason removes the configuration notification for a reason id
func (r *notificationRepository) DeleteByReason(ctx context.Context, reason string) error {
	return r.db.WithContext(ctx).Delete(&model.Notification{}, "reason = ?", reason).Error
}
