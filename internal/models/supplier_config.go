package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Subtitle rule match types
const (
	SubtitleMatchColumnCount = "column_count"
	SubtitleMatchRegex       = "regex"
	SubtitleMatchHybrid      = "hybrid"
)

// Subtitle rule actions
const (
	SubtitleActionSkip  = "skip"
	SubtitleActionParse = "parse"
)

// SubtitleRule describes one detection rule for section-header rows in a
// supplier file. Rules are evaluated in order; the first match wins.
type SubtitleRule struct {
	Name        string `json:"name"`
	MatchType   string `json:"matchType"`             // column_count, regex or hybrid
	ColumnCount int    `json:"columnCount,omitempty"` // non-blank cell count for column_count/hybrid
	Pattern     string `json:"pattern,omitempty"`     // regex for regex/hybrid
	Action      string `json:"action"`                // skip or parse
	ParseKey    string `json:"parseKey,omitempty"`    // property name receiving the parsed value
}

// SupplierConfig is the per-supplier import configuration: how columns map
// to properties, which properties are offer facts, and how subtitle rows
// are detected in that supplier's files.
type SupplierConfig struct {
	ID                  uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SupplierID          uuid.UUID      `json:"supplierId" gorm:"type:uuid;not null;uniqueIndex:idx_supplier_configs_supplier"`
	ColumnMappings      datatypes.JSON `json:"columnMappings" gorm:"not null"`           // column letter -> property name
	OfferProperties     pq.StringArray `json:"offerProperties" gorm:"type:text[]"`       // property names classified as offer facts
	ExpectedColumnCount *int           `json:"expectedColumnCount,omitempty"`            // validation, nil disables the check
	HeaderRows          int            `json:"headerRows" gorm:"default:1"`              // leading rows to skip before data
	SubtitleEnabled     bool           `json:"subtitleEnabled" gorm:"default:false"`
	SubtitleRules       datatypes.JSON `json:"subtitleRules,omitempty"`
	FilePatterns        pq.StringArray `json:"filePatterns" gorm:"type:text[]"`          // glob patterns for supplier auto-detection
	CSVDelimiter        string         `json:"csvDelimiter" gorm:"default:';'"`
	FileEncoding        string         `json:"fileEncoding" gorm:"default:'utf-8'"`      // utf-8 or windows-1251
	Currency            string         `json:"currency" gorm:"not null;default:'USD'"`
	IsActive            bool           `json:"isActive" gorm:"default:true"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// DecodeColumnMappings unpacks the stored column-letter-to-property map.
func (c *SupplierConfig) DecodeColumnMappings() (map[string]string, error) {
	mappings := make(map[string]string)
	if len(c.ColumnMappings) == 0 {
		return mappings, nil
	}
	if err := json.Unmarshal(c.ColumnMappings, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

// SetColumnMappings stores the column-letter-to-property map.
func (c *SupplierConfig) SetColumnMappings(mappings map[string]string) error {
	data, err := json.Marshal(mappings)
	if err != nil {
		return err
	}
	c.ColumnMappings = datatypes.JSON(data)
	return nil
}

// DecodeSubtitleRules unpacks the ordered subtitle detection rules.
func (c *SupplierConfig) DecodeSubtitleRules() ([]SubtitleRule, error) {
	var rules []SubtitleRule
	if len(c.SubtitleRules) == 0 {
		return rules, nil
	}
	if err := json.Unmarshal(c.SubtitleRules, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// SetSubtitleRules stores the ordered subtitle detection rules.
func (c *SupplierConfig) SetSubtitleRules(rules []SubtitleRule) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	c.SubtitleRules = datatypes.JSON(data)
	return nil
}

// UpsertSupplierConfigRequest represents a request to create or replace a
// supplier's import configuration.
type UpsertSupplierConfigRequest struct {
	ColumnMappings      map[string]string `json:"columnMappings" binding:"required"`
	OfferProperties     []string          `json:"offerProperties,omitempty"`
	ExpectedColumnCount *int              `json:"expectedColumnCount,omitempty"`
	HeaderRows          *int              `json:"headerRows,omitempty"`
	SubtitleEnabled     bool              `json:"subtitleEnabled"`
	SubtitleRules       []SubtitleRule    `json:"subtitleRules,omitempty"`
	FilePatterns        []string          `json:"filePatterns,omitempty"`
	CSVDelimiter        *string           `json:"csvDelimiter,omitempty"`
	FileEncoding        *string           `json:"fileEncoding,omitempty"`
	Currency            *string           `json:"currency,omitempty"`
	IsActive            *bool             `json:"isActive,omitempty"`
}

// TableName returns the table name for the SupplierConfig model
func (SupplierConfig) TableName() string {
	return "supplier_configs"
}
