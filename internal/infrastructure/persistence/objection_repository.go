package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormObjectionRepository implements objection.Repository using GORM
type GormObjectionRepository struct {
	db *gorm.DB
}

// NewGormObjectionRepository creates a new GormObjectionRepository
func NewGormObjectionRepository(db *gorm.DB) *GormObjectionRepository {
	return &GormObjectionRepository{db: db}
}

// ==================== Reader Interface ====================

// FindByID finds an objection by its ID
func (r *GormObjectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*objection.Objection, error) {
	var model models.ObjectionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, objection.NewNotFoundError(id)
		}
		return nil, fmt.Errorf("find objection %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// ==================== Finder Interface ====================

// FindByCompanyNumber returns every objection raised against a company, oldest first
func (r *GormObjectionRepository) FindByCompanyNumber(ctx context.Context, companyNumber string) ([]objection.Objection, error) {
	var objectionModels []models.ObjectionModel
	if err := r.db.WithContext(ctx).
		Where("company_number = ?", companyNumber).
		Order("created_on ASC").
		Find(&objectionModels).Error; err != nil {
		return nil, fmt.Errorf("find objections for company %s: %w", companyNumber, err)
	}

	objections := make([]objection.Objection, len(objectionModels))
	for i := range objectionModels {
		objections[i] = *objectionModels[i].ToDomain()
	}
	return objections, nil
}

// ==================== Writer Interface ====================

// Save inserts a transient objection or updates a persisted one with optimistic locking.
// On success the aggregate's ID and Version reflect the stored row.
func (r *GormObjectionRepository) Save(ctx context.Context, o *objection.Objection) error {
	if o.IsTransient() {
		return r.create(ctx, o)
	}
	return r.update(ctx, o)
}

func (r *GormObjectionRepository) create(ctx context.Context, o *objection.Objection) error {
	model := models.ObjectionModelFromDomain(o)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	model.Version = 1

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create objection: %w", err)
	}

	o.ID = model.ID
	o.Version = model.Version
	return nil
}

func (r *GormObjectionRepository) update(ctx context.Context, o *objection.Objection) error {
	currentVersion := o.Version
	model := models.ObjectionModelFromDomain(o)
	model.Version = currentVersion + 1

	result := r.db.WithContext(ctx).
		Model(&models.ObjectionModel{}).
		Where("id = ? AND version = ?", o.ID, currentVersion).
		Updates(map[string]any{
			"status":         model.Status,
			"reason":         model.Reason,
			"full_name":      model.FullName,
			"share_identity": model.ShareIdentity,
			"attachments":    model.Attachments,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update objection %s: %w", o.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.ObjectionModel{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("check objection %s: %w", o.ID, err)
		}
		if count == 0 {
			return objection.NewNotFoundError(o.ID)
		}
		return objection.NewStaleVersionError(o.ID, currentVersion)
	}

	o.Version = model.Version
	return nil
}

// Ensure GormObjectionRepository implements objection.Repository
var _ objection.Repository = (*GormObjectionRepository)(nil)
