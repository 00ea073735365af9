package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ImportStatus represents the status of an import run
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "PENDING"
	ImportStatusProcessing ImportStatus = "PROCESSING"
	ImportStatusCompleted  ImportStatus = "COMPLETED"
	ImportStatusFailed     ImportStatus = "FAILED"
)

// MaxStoredErrorMessages caps how many row error messages are kept on a run
// and returned to the caller; the full count is always reported.
const MaxStoredErrorMessages = 20

// ImportRun is the persisted audit record for one file-processing run.
type ImportRun struct {
	ID                   uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SupplierID           *uuid.UUID     `json:"supplierId,omitempty" gorm:"type:uuid;index"`
	SupplierName         string         `json:"supplierName"`
	OfferID              *uuid.UUID     `json:"offerId,omitempty" gorm:"type:uuid;index"`
	FileName             string         `json:"fileName" gorm:"not null"`
	Status               ImportStatus   `json:"status" gorm:"not null;default:'PENDING';index"`
	TotalRows            int            `json:"totalRows"`
	ProductsCreated      int            `json:"productsCreated"`
	ProductsUpdated      int            `json:"productsUpdated"`
	ProductsNoChanged    int            `json:"productsNoChanged"`
	DuplicateSkips       int            `json:"duplicateSkips"`
	RowsWithoutEAN       int            `json:"rowsWithoutEan"`
	OfferProductsCreated int            `json:"offerProductsCreated"`
	ErrorCount           int            `json:"errorCount"`
	ErrorMessages        datatypes.JSON `json:"errorMessages,omitempty"`
	StartedAt            time.Time      `json:"startedAt"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
	DurationMs           int64          `json:"durationMs"`
	CreatedAt            time.Time      `json:"createdAt"`
}

// ImportRequest represents import configuration options
type ImportRequest struct {
	SupplierName         string `json:"supplierName,omitempty"` // overrides file-pattern supplier detection
	BatchSize            int    `json:"batchSize"`              // rows per batch (default: 500, max: 1000)
	MaxRetries           int    `json:"maxRetries"`             // retries for transient batch failures, per-batch mode only (default: 2)
	PerBatchTransactions bool   `json:"perBatchTransactions"`   // commit per batch instead of one transaction per offer
	UseStaging           bool   `json:"useStaging"`             // stage all batches in memory, flush in one final transaction
	ValidateOnly         bool   `json:"validateOnly"`           // dry run: parse and validate, no database writes
	Currency             string `json:"currency,omitempty"`     // overrides the configured offer currency
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResult represents the outcome of processing a single batch
type BatchResult struct {
	BatchNumber    int              `json:"batchNumber"`
	StartRow       int              `json:"startRow"`
	EndRow         int              `json:"endRow"`
	Success        bool             `json:"success"`
	Created        int              `json:"created"`
	Updated        int              `json:"updated"`
	NoChange       int              `json:"noChange"`
	DuplicateSkips int              `json:"duplicateSkips"`
	LinkedProducts int              `json:"linkedProducts"`
	Errors         []ImportRowError `json:"errors,omitempty"`
	RetryCount     int              `json:"retryCount"`
}

// ProcessingResult is the aggregated outcome of one file-processing run.
type ProcessingResult struct {
	Success              bool             `json:"success"`
	ImportRunID          uuid.UUID        `json:"importRunId"`
	OfferID              *uuid.UUID       `json:"offerId,omitempty"`
	OfferName            string           `json:"offerName,omitempty"`
	SupplierName         string           `json:"supplierName,omitempty"`
	TotalRows            int              `json:"totalRows"`
	TotalBatches         int              `json:"totalBatches"`
	ProductsCreated      int              `json:"productsCreated"`
	ProductsUpdated      int              `json:"productsUpdated"`
	ProductsNoChanged    int              `json:"productsNoChanged"`
	DuplicateSkips       int              `json:"duplicateSkips"`
	RowsWithoutEAN       int              `json:"rowsWithoutEan"`
	OfferProductsCreated int              `json:"offerProductsCreated"`
	Errors               int              `json:"errors"`
	ErrorMessages        []string         `json:"errorMessages,omitempty"`
	BatchResults         []BatchResult    `json:"batchResults,omitempty"`
	RowErrors            []ImportRowError `json:"rowErrors,omitempty"`
	ElapsedMs            int64            `json:"elapsedMs"`
}

// TableName returns the table name for the ImportRun model
func (ImportRun) TableName() string {
	return "import_runs"
}
