package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("not found")
)

// Store bundles the entity repositories over one database handle so callers
// can run multi-repository work inside a single transaction.
type Store struct {
	db        *gorm.DB
	Products  ProductsRepositoryInterface
	Suppliers SuppliersRepositoryInterface
	Offers    OffersRepositoryInterface
	Imports   ImportsRepositoryInterface
}

// NewStore creates a Store. redisClient may be nil; caching is then disabled.
func NewStore(db *gorm.DB, redisClient *redis.Client) *Store {
	return &Store{
		db:        db,
		Products:  NewProductsRepository(db),
		Suppliers: NewSuppliersRepository(db, redisClient),
		Offers:    NewOffersRepository(db),
		Imports:   NewImportsRepository(db),
	}
}

// WithTransaction runs fn against a Store bound to one database transaction.
// The transactional Store carries no Redis client: nothing is cached until
// the transaction commits. A Store assembled without a database handle has no
// transaction to open; fn then runs against the Store itself.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		txStore := &Store{
			db:        txDB,
			Products:  NewProductsRepository(txDB),
			Suppliers: NewSuppliersRepository(txDB, nil),
			Offers:    NewOffersRepository(txDB),
			Imports:   NewImportsRepository(txDB),
		}
		return fn(txStore)
	})
}
