package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storeadmin/internal/model"
	"storeadmin/pkg/utils"
)

// ClientRepository client repository interface
type ClientRepository interface {
	// Get client by ID with purchases and orders
	GetByID(ctx context.Context, id uint64) (*model.Client, error)

	// Get client by normalized email
	GetByEmail(ctx context.Context, email string) (*model.Client, error)

	// HasOrder reports whether any client already owns this marketplace order
	HasOrder(ctx context.Context, externalOrderID string) (uint64, bool, error)

	// Create creates a client
	Create(ctx context.Context, client *model.Client) error

	// AttachOrder records an order on a client and accumulates its product
	// quantities, all in one transaction. Duplicate order ids are a no-op.
	AttachOrder(ctx context.Context, clientID uint64, externalOrderID string, purchases map[uint64]int) error

	// List clients, newest first
	List(ctx context.Context, page, pageSize int) ([]*model.Client, int64, error)
}

// clientRepository client repository implementation
type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

// GetByID gets a client by ID
func (r *clientRepository) GetByID(ctx context.Context, id uint64) (*model.Client, error) {
	var client model.Client
	err := r.db.WithContext(ctx).Preload("Purchases").Preload("Orders").
		First(&client, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

// GetByEmail gets a client by normalized email
func (r *clientRepository) GetByEmail(ctx context.Context, email string) (*model.Client, error) {
	var client model.Client
	err := r.db.WithContext(ctx).Preload("Purchases").
		First(&client, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

// HasOrder reports whether any client already owns this marketplace order
func (r *clientRepository) HasOrder(ctx context.Context, externalOrderID string) (uint64, bool, error) {
	var link model.ClientOrder
	err := r.db.WithContext(ctx).First(&link, "external_order_id = ?", externalOrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return link.ClientID, true, nil
}

// Create creates a client
func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

// AttachOrder records an order on a client and accumulates purchases
func (r *clientRepository) AttachOrder(ctx context.Context, clientID uint64, externalOrderID string, purchases map[uint64]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link := model.ClientOrder{
			ClientID:        clientID,
			ExternalOrderID: externalOrderID,
		}
		// the unique index on external_order_id makes duplicates no-ops
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		for productID, quantity := range purchases {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "client_id"}, {Name: "product_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"quantity": gorm.Expr("quantity + ?", quantity),
				}),
			}).Create(&model.ClientPurchase{
				ClientID:  clientID,
				ProductID: productID,
				Quantity:  quantity,
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// List clients, newest first
func (r *clientRepository) List(ctx context.Context, page, pageSize int) ([]*model.Client, int64, error) {
	var clients []*model.Client
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.Client{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).Preload("Purchases").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&clients).Error
	return clients, total, err
}
