package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"storeadmin/internal/model"
	"storeadmin/pkg/utils"
)

// TemplateRepository activation template repository interface
type TemplateRepository interface {
	// Get template by ID
	GetByID(ctx context.Context, id uint64) (*model.ActivationTemplate, error)

	// List all templates
	List(ctx context.Context) ([]*model.ActivationTemplate, error)

	// Upsert mirrors a template fetched from upstream. Policy changes on a
	// template referenced by a delivered item are refused to keep history
	// intact.
	Upsert(ctx context.Context, template *model.ActivationTemplate) error
}

// templateRepository template repository implementation
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a template repository
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

// GetByID gets a template by ID
func (r *templateRepository) GetByID(ctx context.Context, id uint64) (*model.ActivationTemplate, error) {
	var template model.ActivationTemplate
	err := r.db.WithContext(ctx).First(&template, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// List lists all templates
func (r *templateRepository) List(ctx context.Context) ([]*model.ActivationTemplate, error) {
	var templates []*model.ActivationTemplate
	err := r.db.WithContext(ctx).Order("id ASC").Find(&templates).Error
	return templates, err
}

// Upsert mirrors a template fetched from upstream
func (r *templateRepository) Upsert(ctx context.Context, template *model.ActivationTemplate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ActivationTemplate
		err := tx.First(&existing, "id = ?", template.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(template).Error
		}
		if err != nil {
			return err
		}

		if existing.AutoKey != template.AutoKey {
			// referenced templates are immutable once an item was delivered
			var delivered int64
			if err := tx.Model(&model.OrderItem{}).
				Where("template_id = ? AND activation_sent = ?", template.ID, true).
				Count(&delivered).Error; err != nil {
				return err
			}
			if delivered > 0 {
				return utils.NewError(utils.CodeInvalidParam,
					"cannot change key policy of a template referenced by delivered items")
			}
		}

		return tx.Model(&existing).Updates(map[string]interface{}{
			"name":           template.Name,
			"auto_key":       template.AutoKey,
			"requires_login": template.RequiresLogin,
			"expiry_days":    template.ExpiryDays,
			"body":           template.Body,
		}).Error
	})
}
