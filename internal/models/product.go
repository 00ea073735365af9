package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog product matched across price lists by EAN.
// Core identity properties live here; commercial terms (price, quantity)
// belong to OfferProduct and are never written to a Product.
type Product struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EAN         string      `json:"ean" gorm:"not null;uniqueIndex:idx_products_ean"`
	Name        string      `json:"name" gorm:"not null"`
	Description *string     `json:"description,omitempty"`
	Properties  PropertyMap `json:"properties" gorm:"type:jsonb"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Supplier represents a price-list source. Name is the natural key and is
// matched case-insensitively on lookup-or-create.
type Supplier struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"not null;uniqueIndex:idx_suppliers_name"`
	Description *string   `json:"description,omitempty"`
	Industry    *string   `json:"industry,omitempty"`
	Region      *string   `json:"region,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Config *SupplierConfig `json:"config,omitempty" gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE"`
}

// SupplierOffer is one price-list snapshot: one supplier, one source file,
// one processing run. Reprocessing the same file replaces the prior offer
// wholesale rather than merging into it.
type SupplierOffer struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SupplierID uuid.UUID      `json:"supplierId" gorm:"type:uuid;not null;index;uniqueIndex:idx_offers_supplier_name"`
	Supplier   *Supplier      `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Name       string         `json:"name" gorm:"not null;uniqueIndex:idx_offers_supplier_name"`
	Currency   string         `json:"currency" gorm:"not null;default:'USD'"`
	SourceFile string         `json:"sourceFile" gorm:"not null"`
	Products   []OfferProduct `json:"products,omitempty" gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// OfferProduct joins a product to an offer and carries the offer-specific
// facts for that product in that price list.
type OfferProduct struct {
	ID         uuid.UUID   `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OfferID    uuid.UUID   `json:"offerId" gorm:"type:uuid;not null;index;uniqueIndex:idx_offer_products_offer_product"`
	ProductID  uuid.UUID   `json:"productId" gorm:"type:uuid;not null;index;uniqueIndex:idx_offer_products_offer_product"`
	Product    *Product    `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Price      *float64    `json:"price,omitempty"`
	Quantity   *int        `json:"quantity,omitempty"`
	Discount   *float64    `json:"discount,omitempty"`
	Properties PropertyMap `json:"properties" gorm:"type:jsonb"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// CreateSupplierRequest represents a request to create a supplier
type CreateSupplierRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	Industry    *string `json:"industry,omitempty"`
	Region      *string `json:"region,omitempty"`
}

// UpdateSupplierRequest represents a request to update a supplier
type UpdateSupplierRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Industry    *string `json:"industry,omitempty"`
	Region      *string `json:"region,omitempty"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the Supplier model
func (Supplier) TableName() string {
	return "suppliers"
}

// TableName returns the table name for the SupplierOffer model
func (SupplierOffer) TableName() string {
	return "supplier_offers"
}

// TableName returns the table name for the OfferProduct model
func (OfferProduct) TableName() string {
	return "offer_products"
}
