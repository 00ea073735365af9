package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pricelist-service/internal/models"
	"pricelist-service/internal/repository"
	"pricelist-service/internal/services"
)

// SuppliersHandler handles HTTP requests for suppliers and their import
// configurations
type SuppliersHandler struct {
	suppliers repository.SuppliersRepositoryInterface
}

// NewSuppliersHandler creates a new SuppliersHandler
func NewSuppliersHandler(suppliers repository.SuppliersRepositoryInterface) *SuppliersHandler {
	return &SuppliersHandler{suppliers: suppliers}
}

// ListSuppliers lists all suppliers
// @Summary List suppliers
// @Tags Suppliers
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/suppliers [get]
func (h *SuppliersHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.suppliers.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  suppliers,
		"total": len(suppliers),
	})
}

// GetSupplier retrieves one supplier by ID
// @Summary Get supplier
// @Tags Suppliers
// @Produce json
// @Param id path string true "Supplier ID"
// @Success 200 {object} models.Supplier
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/suppliers/{id} [get]
func (h *SuppliersHandler) GetSupplier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "invalid supplier id"},
		})
		return
	}

	supplier, err := h.suppliers.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "supplier not found"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusOK, supplier)
}

// CreateSupplier creates a supplier
// @Summary Create supplier
// @Tags Suppliers
// @Accept json
// @Produce json
// @Param supplier body models.CreateSupplierRequest true "Supplier"
// @Success 201 {object} models.Supplier
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/suppliers [post]
func (h *SuppliersHandler) CreateSupplier(c *gin.Context) {
	var req models.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "VALIDATION_ERROR", Message: err.Error()},
		})
		return
	}

	supplier := &models.Supplier{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Industry:    req.Industry,
		Region:      req.Region,
	}
	if supplier.Name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "VALIDATION_ERROR", Message: "supplier name must not be blank"},
		})
		return
	}

	if err := h.suppliers.Create(c.Request.Context(), supplier); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "SUPPLIER_EXISTS", Message: "a supplier with this name already exists"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

// UpdateSupplier updates a supplier's descriptive fields
// @Summary Update supplier
// @Tags Suppliers
// @Accept json
// @Produce json
// @Param id path string true "Supplier ID"
// @Param supplier body models.UpdateSupplierRequest true "Fields to update"
// @Success 200 {object} models.Supplier
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/suppliers/{id} [put]
func (h *SuppliersHandler) UpdateSupplier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "invalid supplier id"},
		})
		return
	}

	var req models.UpdateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "VALIDATION_ERROR", Message: err.Error()},
		})
		return
	}

	supplier, err := h.suppliers.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "supplier not found"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		supplier.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		supplier.Description = req.Description
	}
	if req.Industry != nil {
		supplier.Industry = req.Industry
	}
	if req.Region != nil {
		supplier.Region = req.Region
	}

	if err := h.suppliers.Update(c.Request.Context(), supplier); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier deletes a supplier and everything that hangs off it
// @Summary Delete supplier
// @Tags Suppliers
// @Produce json
// @Param id path string true "Supplier ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/suppliers/{id} [delete]
func (h *SuppliersHandler) DeleteSupplier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "invalid supplier id"},
		})
		return
	}

	if err := h.suppliers.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "supplier not found"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "supplier deleted"})
}

// GetSupplierConfig retrieves a supplier's import configuration
// @Summary Get supplier import configuration
// @Tags Suppliers
// @Produce json
// @Param id path string true "Supplier ID"
// @Success 200 {object} models.SupplierConfig
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/suppliers/{id}/config [get]
func (h *SuppliersHandler) GetSupplierConfig(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "invalid supplier id"},
		})
		return
	}

	config, err := h.suppliers.GetConfig(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "supplier has no import configuration"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusOK, config)
}

// UpsertSupplierConfig creates or replaces a supplier's import configuration.
// A broken configuration would reject every future import, so the whole
// request is validated before anything is written.
// @Summary Create or update supplier import configuration
// @Tags Suppliers
// @Accept json
// @Produce json
// @Param id path string true "Supplier ID"
// @Param config body models.UpsertSupplierConfigRequest true "Import configuration"
// @Success 200 {object} models.SupplierConfig
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/suppliers/{id}/config [put]
func (h *SuppliersHandler) UpsertSupplierConfig(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "invalid supplier id"},
		})
		return
	}

	var req models.UpsertSupplierConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "VALIDATION_ERROR", Message: err.Error()},
		})
		return
	}
	if err := validateConfigRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "CONFIG_INVALID", Message: err.Error()},
		})
		return
	}

	if _, err := h.suppliers.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "supplier not found"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}

	config, err := h.suppliers.GetConfig(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
			})
			return
		}
		config = &models.SupplierConfig{SupplierID: id}
	}

	if err := applyConfigRequest(config, &req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "CONFIG_INVALID", Message: err.Error()},
		})
		return
	}

	if err := h.suppliers.SaveConfig(c.Request.Context(), config); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusOK, config)
}

func validateConfigRequest(req *models.UpsertSupplierConfigRequest) error {
	if len(req.ColumnMappings) == 0 {
		return fmt.Errorf("column mappings must not be empty")
	}
	for letter, property := range req.ColumnMappings {
		if _, err := services.ColumnLetterToIndex(letter); err != nil {
			return err
		}
		if strings.TrimSpace(property) == "" {
			return fmt.Errorf("column %q has no property name", letter)
		}
	}
	if req.CSVDelimiter != nil && len([]rune(*req.CSVDelimiter)) != 1 {
		return fmt.Errorf("csv delimiter must be a single character")
	}
	if req.HeaderRows != nil && *req.HeaderRows < 0 {
		return fmt.Errorf("header rows must not be negative")
	}
	if req.ExpectedColumnCount != nil && *req.ExpectedColumnCount <= 0 {
		return fmt.Errorf("expected column count must be positive")
	}
	return validateSubtitleRules(req.SubtitleRules)
}

func validateSubtitleRules(rules []models.SubtitleRule) error {
	for _, rule := range rules {
		switch rule.MatchType {
		case models.SubtitleMatchColumnCount, models.SubtitleMatchRegex, models.SubtitleMatchHybrid:
		default:
			return fmt.Errorf("subtitle rule %q: unknown match type %q", rule.Name, rule.MatchType)
		}
		switch rule.Action {
		case models.SubtitleActionSkip, models.SubtitleActionParse:
		default:
			return fmt.Errorf("subtitle rule %q: unknown action %q", rule.Name, rule.Action)
		}
		if rule.MatchType != models.SubtitleMatchRegex && rule.ColumnCount <= 0 {
			return fmt.Errorf("subtitle rule %q: column count must be positive", rule.Name)
		}
		if rule.MatchType != models.SubtitleMatchColumnCount {
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				return fmt.Errorf("subtitle rule %q: invalid pattern: %v", rule.Name, err)
			}
		}
		if rule.Action == models.SubtitleActionParse && strings.TrimSpace(rule.ParseKey) == "" {
			return fmt.Errorf("subtitle rule %q: parse action requires a parse key", rule.Name)
		}
	}
	return nil
}

func applyConfigRequest(config *models.SupplierConfig, req *models.UpsertSupplierConfigRequest) error {
	if err := config.SetColumnMappings(req.ColumnMappings); err != nil {
		return err
	}
	if err := config.SetSubtitleRules(req.SubtitleRules); err != nil {
		return err
	}
	config.OfferProperties = req.OfferProperties
	config.ExpectedColumnCount = req.ExpectedColumnCount
	config.SubtitleEnabled = req.SubtitleEnabled
	config.FilePatterns = req.FilePatterns
	config.HeaderRows = 1
	if req.HeaderRows != nil {
		config.HeaderRows = *req.HeaderRows
	}
	if req.CSVDelimiter != nil {
		config.CSVDelimiter = *req.CSVDelimiter
	}
	if req.FileEncoding != nil {
		config.FileEncoding = *req.FileEncoding
	}
	if req.Currency != nil {
		config.Currency = *req.Currency
	}
	config.IsActive = true
	if req.IsActive != nil {
		config.IsActive = *req.IsActive
	}
	return nil
}
