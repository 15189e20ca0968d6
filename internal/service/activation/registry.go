package activation

import (
	"context"
	"errors"
	"fmt"

	"storeadmin/internal/model"
	"storeadmin/internal/repository"
	"storeadmin/internal/upstream"
	"storeadmin/pkg/cache"
	"storeadmin/pkg/log"
	"storeadmin/pkg/utils"
)

// TemplateRegistry resolves activation templates for the decision engine.
// Reads hit an in-memory cache first, then the local mirror; Refresh pulls
// the authoritative set from the marketplace.
type TemplateRegistry interface {
	// Resolve loads one template. utils.ErrNotFound when the ID is unknown.
	Resolve(ctx context.Context, id uint64) (*model.ActivationTemplate, error)

	// List returns the full mirrored template set
	List(ctx context.Context) ([]*model.ActivationTemplate, error)

	// Refresh re-mirrors templates from the marketplace
	Refresh(ctx context.Context) error
}

// templateSource is the marketplace surface the registry needs.
type templateSource interface {
	FetchTemplates(ctx context.Context) ([]upstream.Template, error)
}

// templateRegistry template registry implementation
type templateRegistry struct {
	repo     repository.TemplateRepository
	upstream templateSource
	cache    *cache.Cache
}

// NewTemplateRegistry creates a template registry
func NewTemplateRegistry(repo repository.TemplateRepository, source templateSource, c *cache.Cache) TemplateRegistry {
	return &templateRegistry{
		repo:     repo,
		upstream: source,
		cache:    c,
	}
}

func templateCacheKey(id uint64) string {
	return fmt.Sprintf("template:%d", id)
}

// Resolve loads one template, cache first
func (r *templateRegistry) Resolve(ctx context.Context, id uint64) (*model.ActivationTemplate, error) {
	var cached model.ActivationTemplate
	if err := r.cache.Get(templateCacheKey(id), &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.WithError(err).Warn("Template cache read failed")
	}

	template, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(templateCacheKey(id), template); err != nil {
		log.WithError(err).Warn("Template cache write failed")
	}
	return template, nil
}

// List returns the full mirrored template set
func (r *templateRegistry) List(ctx context.Context) ([]*model.ActivationTemplate, error) {
	return r.repo.List(ctx)
}

// Refresh re-mirrors templates from the marketplace
func (r *templateRegistry) Refresh(ctx context.Context) error {
	templates, err := r.upstream.FetchTemplates(ctx)
	if err != nil {
		return err
	}

	for _, t := range templates {
		row := &model.ActivationTemplate{
			ID:            t.ID,
			Name:          t.Name,
			AutoKey:       t.AutoKey,
			RequiresLogin: t.RequiresLogin,
			ExpiryDays:    t.ExpiryDays,
			Body:          t.Body,
		}
		if err := r.repo.Upsert(ctx, row); err != nil {
			if utils.HasCode(err, utils.CodeInvalidParam) {
				log.WithFields(map[string]interface{}{
					"template_id": t.ID,
				}).Warn("Skipping template policy change on a delivered template")
				continue
			}
			return err
		}
		r.cache.Delete(templateCacheKey(t.ID))
	}
	return nil
}
