package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pricelist-service/internal/models"
)

// SupplierConfigCacheTTL bounds how stale a cached import configuration can be.
const SupplierConfigCacheTTL = 5 * time.Minute

// SuppliersRepositoryInterface defines supplier and supplier-config persistence
type SuppliersRepositoryInterface interface {
	GetOrCreateByName(ctx context.Context, name string) (*models.Supplier, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	List(ctx context.Context) ([]models.Supplier, error)
	Create(ctx context.Context, supplier *models.Supplier) error
	Update(ctx context.Context, supplier *models.Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetConfig(ctx context.Context, supplierID uuid.UUID) (*models.SupplierConfig, error)
	SaveConfig(ctx context.Context, config *models.SupplierConfig) error
	FindConfigByFileName(ctx context.Context, fileName string) (*models.SupplierConfig, *models.Supplier, error)
}

// SuppliersRepository handles database operations for suppliers and their
// import configurations, with a Redis read cache for configs.
type SuppliersRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewSuppliersRepository creates a new SuppliersRepository. redisClient may
// be nil; config reads then always hit the database.
func NewSuppliersRepository(db *gorm.DB, redisClient *redis.Client) *SuppliersRepository {
	return &SuppliersRepository{db: db, redis: redisClient}
}

// GetOrCreateByName finds a supplier by name (case-insensitive) or creates
// it. Returns the supplier and whether it was newly created. A transaction
// plus duplicate re-fetch handles concurrent creation of the same name.
func (r *SuppliersRepository) GetOrCreateByName(ctx context.Context, name string) (*models.Supplier, bool, error) {
	var supplier models.Supplier
	var created bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("LOWER(name) = LOWER(?)", name).First(&supplier).Error
		if err == nil {
			created = false
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to lookup supplier: %w", err)
		}

		supplier = models.Supplier{
			Name:      name,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := tx.Create(&supplier).Error; err != nil {
			// Created by a concurrent request; fetch the winner
			if strings.Contains(err.Error(), "duplicate") {
				if findErr := tx.Where("LOWER(name) = LOWER(?)", name).First(&supplier).Error; findErr == nil {
					created = false
					return nil
				}
			}
			return fmt.Errorf("failed to create supplier: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &supplier, created, nil
}

// GetByID retrieves a supplier by ID with its import configuration
func (r *SuppliersRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).
		Preload("Config").
		Where("id = ?", id).
		First(&supplier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// List retrieves all suppliers
func (r *SuppliersRepository) List(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := r.db.WithContext(ctx).Order("name ASC").Find(&suppliers).Error
	return suppliers, err
}

// Create creates a new supplier
func (r *SuppliersRepository) Create(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

// Update updates a supplier
func (r *SuppliersRepository) Update(ctx context.Context, supplier *models.Supplier) error {
	result := r.db.WithContext(ctx).Model(&models.Supplier{}).
		Where("id = ?", supplier.ID).
		Updates(map[string]interface{}{
			"name":        supplier.Name,
			"description": supplier.Description,
			"industry":    supplier.Industry,
			"region":      supplier.Region,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a supplier and, via constraints, its configuration
func (r *SuppliersRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Supplier{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.invalidateConfigCache(ctx, id)
	return nil
}

// GetConfig retrieves a supplier's import configuration, Redis-cached.
func (r *SuppliersRepository) GetConfig(ctx context.Context, supplierID uuid.UUID) (*models.SupplierConfig, error) {
	cacheKey := fmt.Sprintf("supplier:config:%s", supplierID.String())

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached models.SupplierConfig
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var config models.SupplierConfig
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(&config); err == nil {
			r.redis.Set(ctx, cacheKey, data, SupplierConfigCacheTTL)
		}
	}
	return &config, nil
}

// SaveConfig creates or replaces a supplier's import configuration and
// invalidates its cache entry.
func (r *SuppliersRepository) SaveConfig(ctx context.Context, config *models.SupplierConfig) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SupplierConfig
		err := tx.Where("supplier_id = ?", config.SupplierID).First(&existing).Error
		if err == nil {
			config.ID = existing.ID
			config.CreatedAt = existing.CreatedAt
			config.UpdatedAt = time.Now()
			return tx.Save(config).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(config).Error
	})
	if err != nil {
		return err
	}
	r.invalidateConfigCache(ctx, config.SupplierID)
	return nil
}

// FindConfigByFileName auto-detects the supplier for an input file by
// matching its name against each active config's glob patterns. The first
// match wins; configs are scanned in creation order.
func (r *SuppliersRepository) FindConfigByFileName(ctx context.Context, fileName string) (*models.SupplierConfig, *models.Supplier, error) {
	var configs []models.SupplierConfig
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&configs).Error
	if err != nil {
		return nil, nil, err
	}

	for i := range configs {
		for _, pattern := range configs[i].FilePatterns {
			re, err := globToRegexp(pattern)
			if err != nil {
				continue
			}
			if re.MatchString(fileName) {
				supplier, err := r.GetByID(ctx, configs[i].SupplierID)
				if err != nil {
					return nil, nil, err
				}
				return &configs[i], supplier, nil
			}
		}
	}
	return nil, nil, ErrNotFound
}

func (r *SuppliersRepository) invalidateConfigCache(ctx context.Context, supplierID uuid.UUID) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, fmt.Sprintf("supplier:config:%s", supplierID.String()))
}

// globToRegexp converts a file glob such as "acme_*.xlsx" into an anchored
// case-insensitive regular expression. '*' matches any run of characters,
// '?' exactly one; everything else is literal.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("(?i)^")
	for _, ch := range glob {
		switch ch {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
