package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"pricelist-service/internal/models"
	"pricelist-service/internal/readers"
	"pricelist-service/internal/repository"
	"pricelist-service/internal/services"
)

// ImportsHandler handles HTTP requests for price-list imports
type ImportsHandler struct {
	service          services.ImportServiceInterface
	suppliers        repository.SuppliersRepositoryInterface
	maxUploadBytes   int64
	defaultBatchSize int
}

// NewImportsHandler creates a new ImportsHandler
func NewImportsHandler(service services.ImportServiceInterface, suppliers repository.SuppliersRepositoryInterface, maxUploadMB, defaultBatchSize int) *ImportsHandler {
	return &ImportsHandler{
		service:          service,
		suppliers:        suppliers,
		maxUploadBytes:   int64(maxUploadMB) * 1024 * 1024,
		defaultBatchSize: defaultBatchSize,
	}
}

// UploadPriceList imports a supplier price list from an uploaded file
// @Summary Import a supplier price list
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX price list"
// @Param supplierName formData string false "Supplier name, overrides file-pattern detection"
// @Param batchSize formData int false "Rows per batch" default(500)
// @Param maxRetries formData int false "Retries per batch, per-batch mode only" default(2)
// @Param perBatchTransactions formData bool false "Commit per batch instead of one transaction"
// @Param useStaging formData bool false "Stage in memory, flush once"
// @Param validateOnly formData bool false "Parse and validate without writing"
// @Param currency formData string false "Offer currency override"
// @Success 200 {object} models.ProcessingResult
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/imports [post]
func (h *ImportsHandler) UploadPriceList(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload a CSV or Excel file",
			},
		})
		return
	}
	defer file.Close()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_TOO_LARGE",
				Message: fmt.Sprintf("File exceeds the %d MB upload limit", h.maxUploadBytes/(1024*1024)),
			},
		})
		return
	}

	req := &models.ImportRequest{
		SupplierName:         c.DefaultPostForm("supplierName", ""),
		BatchSize:            h.defaultBatchSize,
		PerBatchTransactions: c.DefaultPostForm("perBatchTransactions", "false") == "true",
		UseStaging:           c.DefaultPostForm("useStaging", "false") == "true",
		ValidateOnly:         c.DefaultPostForm("validateOnly", "false") == "true",
		Currency:             c.DefaultPostForm("currency", ""),
	}
	if bs := c.DefaultPostForm("batchSize", ""); bs != "" {
		if parsed, err := strconv.Atoi(bs); err == nil && parsed > 0 {
			req.BatchSize = parsed
		}
	}
	if mr := c.DefaultPostForm("maxRetries", ""); mr != "" {
		if parsed, err := strconv.Atoi(mr); err == nil && parsed >= 0 {
			req.MaxRetries = parsed
		}
	}

	result, err := h.service.ProcessReader(c.Request.Context(), header.Filename, file, req)
	if err != nil {
		h.respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ImportsHandler) respondImportError(c *gin.Context, err error) {
	var parseErr *readers.ParseError
	switch {
	case errors.Is(err, services.ErrNoSupplierConfig):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "NO_SUPPLIER_CONFIG", Message: err.Error()},
		})
	case errors.Is(err, services.ErrConfigInvalid):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "CONFIG_INVALID", Message: err.Error()},
		})
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "VALIDATION_FAILED", Message: err.Error()},
		})
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "PARSE_ERROR", Message: err.Error()},
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "IMPORT_FAILED", Message: "An internal error occurred"},
		})
	}
}

// ListRuns lists import run audit records
// @Summary List import runs
// @Tags Imports
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/imports [get]
func (h *ImportsHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := h.service.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   runs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetRun retrieves one import run by ID
// @Summary Get import run
// @Tags Imports
// @Produce json
// @Param id path string true "Import run ID"
// @Success 200 {object} models.ImportRun
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/imports/{id} [get]
func (h *ImportsHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "invalid import run id"},
		})
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "import run not found"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetImportTemplate returns a template file matching a supplier's configured
// column layout
// @Summary Download a supplier's price-list template
// @Tags Imports
// @Produce json
// @Param supplierId query string true "Supplier ID"
// @Param format query string false "json, csv or xlsx" default(json)
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/imports/template [get]
func (h *ImportsHandler) GetImportTemplate(c *gin.Context) {
	supplierID, err := uuid.Parse(c.Query("supplierId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "supplierId query parameter is required"},
		})
		return
	}

	config, err := h.suppliers.GetConfig(c.Request.Context(), supplierID)
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

	columns, err := templateColumns(config)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "CONFIG_INVALID", Message: err.Error()},
		})
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "csv":
		h.generateCSVTemplate(c, config, columns)
	case "xlsx":
		h.generateXLSXTemplate(c, config, columns)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":             true,
			"columns":             columns,
			"expectedColumnCount": config.ExpectedColumnCount,
			"csvDelimiter":        config.CSVDelimiter,
			"headerRows":          config.HeaderRows,
		})
	}
}

// templateColumn is one mapped column in a supplier's file layout.
type templateColumn struct {
	Column   string `json:"column"`
	Index    int    `json:"index"`
	Property string `json:"property"`
	Kind     string `json:"kind"`
}

func templateColumns(config *models.SupplierConfig) ([]templateColumn, error) {
	mappings, err := config.DecodeColumnMappings()
	if err != nil {
		return nil, err
	}
	classifier := services.NewPropertyClassifier(config.OfferProperties)

	columns := make([]templateColumn, 0, len(mappings))
	for letter, property := range mappings {
		idx, err := services.ColumnLetterToIndex(letter)
		if err != nil {
			return nil, err
		}
		columns = append(columns, templateColumn{
			Column:   letter,
			Index:    idx,
			Property: property,
			Kind:     classifier.Classify(property).String(),
		})
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].Index < columns[j].Index })
	return columns, nil
}

// generateCSVTemplate downloads a header-only CSV in the supplier's layout,
// using the supplier's configured delimiter.
func (h *ImportsHandler) generateCSVTemplate(c *gin.Context, config *models.SupplierConfig, columns []templateColumn) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=pricelist_template.csv")

	writer := csv.NewWriter(c.Writer)
	if config.CSVDelimiter != "" {
		writer.Comma = []rune(config.CSVDelimiter)[0]
	}
	defer writer.Flush()

	width := 0
	for _, col := range columns {
		if col.Index+1 > width {
			width = col.Index + 1
		}
	}
	header := make([]string, width)
	for _, col := range columns {
		header[col.Index] = col.Property
	}
	writer.Write(header)
}

// generateXLSXTemplate downloads an Excel template with headers placed at
// the supplier's mapped column positions.
func (h *ImportsHandler) generateXLSXTemplate(c *gin.Context, config *models.SupplierConfig, columns []templateColumn) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "PriceList"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for _, col := range columns {
		cell := col.Column + "1"
		f.SetCellValue(sheetName, cell, col.Property)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		f.SetColWidth(sheetName, col.Column, col.Column, 20)
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Price List Import Layout")
	f.SetCellValue("Instructions", "A3", "Column")
	f.SetCellValue("Instructions", "B3", "Property")
	f.SetCellValue("Instructions", "C3", "Classification")
	for i, col := range columns {
		row := i + 4
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Column)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Property)
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), col.Kind)
	}
	f.SetColWidth("Instructions", "A", "A", 12)
	f.SetColWidth("Instructions", "B", "B", 30)
	f.SetColWidth("Instructions", "C", "C", 18)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=pricelist_template.xlsx")
	f.Write(c.Writer)
}
