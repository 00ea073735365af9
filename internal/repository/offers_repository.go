package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pricelist-service/internal/models"
)

// OffersRepositoryInterface defines offer and offer-product persistence
type OffersRepositoryInterface interface {
	Create(ctx context.Context, offer *models.SupplierOffer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SupplierOffer, error)
	GetByName(ctx context.Context, supplierID uuid.UUID, name string) (*models.SupplierOffer, error)
	List(ctx context.Context, supplierID *uuid.UUID, limit, offset int) ([]models.SupplierOffer, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkCreateOfferProducts(ctx context.Context, items []*models.OfferProduct) error
	CountOfferProducts(ctx context.Context, offerID uuid.UUID) (int64, error)
}

// OffersRepository handles database operations for supplier offers
type OffersRepository struct {
	db *gorm.DB
}

// NewOffersRepository creates a new OffersRepository
func NewOffersRepository(db *gorm.DB) *OffersRepository {
	return &OffersRepository{db: db}
}

// Create creates a new offer
func (r *OffersRepository) Create(ctx context.Context, offer *models.SupplierOffer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

// GetByID retrieves an offer with its products
func (r *OffersRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SupplierOffer, error) {
	var offer models.SupplierOffer
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Products").
		Preload("Products.Product").
		Where("id = ?", id).
		First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &offer, nil
}

// GetByName retrieves an offer by its derived name within a supplier.
// Used by the snapshot-replace check before a new offer is created.
func (r *OffersRepository) GetByName(ctx context.Context, supplierID uuid.UUID, name string) (*models.SupplierOffer, error) {
	var offer models.SupplierOffer
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND name = ?", supplierID, name).
		First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &offer, nil
}

// List retrieves offers, optionally filtered by supplier
func (r *OffersRepository) List(ctx context.Context, supplierID *uuid.UUID, limit, offset int) ([]models.SupplierOffer, int64, error) {
	var offers []models.SupplierOffer
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SupplierOffer{})
	if supplierID != nil {
		query = query.Where("supplier_id = ?", *supplierID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Supplier").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&offers).Error
	return offers, total, err
}

// Delete removes an offer; its offer products go with it via the cascade
// constraint.
func (r *OffersRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.SupplierOffer{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkCreateOfferProducts inserts all offer products in one statement.
func (r *OffersRepository) BulkCreateOfferProducts(ctx context.Context, items []*models.OfferProduct) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// CountOfferProducts returns the number of products linked to an offer
func (r *OffersRepository) CountOfferProducts(ctx context.Context, offerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OfferProduct{}).
		Where("offer_id = ?", offerID).
		Count(&count).Error
	return count, err
}
