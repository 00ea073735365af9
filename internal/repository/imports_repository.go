package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pricelist-service/internal/models"
)

// ImportsRepositoryInterface defines import-run audit persistence
type ImportsRepositoryInterface interface {
	CreateRun(ctx context.Context, run *models.ImportRun) error
	UpdateRun(ctx context.Context, run *models.ImportRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]models.ImportRun, int64, error)
}

// ImportsRepository handles database operations for import runs
type ImportsRepository struct {
	db *gorm.DB
}

// NewImportsRepository creates a new ImportsRepository
func NewImportsRepository(db *gorm.DB) *ImportsRepository {
	return &ImportsRepository{db: db}
}

// CreateRun creates a new import run record
func (r *ImportsRepository) CreateRun(ctx context.Context, run *models.ImportRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// UpdateRun saves the current state of an import run
func (r *ImportsRepository) UpdateRun(ctx context.Context, run *models.ImportRun) error {
	result := r.db.WithContext(ctx).Save(run)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun retrieves an import run by ID
func (r *ImportsRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error) {
	var run models.ImportRun
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns retrieves import runs newest first
func (r *ImportsRepository) ListRuns(ctx context.Context, limit, offset int) ([]models.ImportRun, int64, error) {
	var runs []models.ImportRun
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ImportRun{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error
	return runs, total, err
}
