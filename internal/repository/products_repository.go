package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pricelist-service/internal/models"
)

// ProductsRepositoryInterface defines product persistence as used by the
// reconciliation engine: one bulk lookup by EAN set, one bulk insert and one
// bulk update per batch.
type ProductsRepositoryInterface interface {
	FindByEANs(ctx context.Context, eans []string) (map[string]*models.Product, error)
	BulkCreate(ctx context.Context, products []*models.Product) error
	BulkUpdate(ctx context.Context, products []*models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, limit, offset int) ([]models.Product, int64, error)
	ListAll(ctx context.Context) ([]*models.Product, error)
}

// ProductsRepository handles database operations for products
type ProductsRepository struct {
	db *gorm.DB
}

// NewProductsRepository creates a new ProductsRepository
func NewProductsRepository(db *gorm.DB) *ProductsRepository {
	return &ProductsRepository{db: db}
}

// FindByEANs retrieves existing products for a set of EANs with a single
// query. The result is keyed by lower-cased EAN; matching is
// case-insensitive everywhere EANs are compared.
func (r *ProductsRepository) FindByEANs(ctx context.Context, eans []string) (map[string]*models.Product, error) {
	result := make(map[string]*models.Product, len(eans))
	if len(eans) == 0 {
		return result, nil
	}

	lowered := make([]string, 0, len(eans))
	for _, ean := range eans {
		lowered = append(lowered, strings.ToLower(ean))
	}

	var products []*models.Product
	if err := r.db.WithContext(ctx).
		Where("LOWER(ean) IN ?", lowered).
		Find(&products).Error; err != nil {
		return nil, err
	}

	for _, p := range products {
		result[strings.ToLower(p.EAN)] = p
	}
	return result, nil
}

// BulkCreate inserts all products in one statement.
func (r *ProductsRepository) BulkCreate(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&products).Error
}

// BulkUpdate persists name, description and properties for already-matched
// products in one INSERT ... ON CONFLICT statement keyed by EAN. CreatedAt
// is never touched.
func (r *ProductsRepository) BulkUpdate(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ean"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "properties", "updated_at"}),
	}).Create(&products).Error
}

// GetByID retrieves a product by ID
func (r *ProductsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// List retrieves products with pagination
func (r *ProductsRepository) List(ctx context.Context, limit, offset int) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	return products, total, err
}

// ListAll loads every product. Used by the in-memory staging importer to
// build its reference map in one round trip.
func (r *ProductsRepository) ListAll(ctx context.Context) ([]*models.Product, error) {
	var products []*models.Product
	err := r.db.WithContext(ctx).Find(&products).Error
	return products, err
}
