package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pricelist-service/internal/models"
	"pricelist-service/internal/readers"
	"pricelist-service/internal/repository"
	"pricelist-service/internal/services"
)

// MockImportService is a mock implementation of ImportServiceInterface
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) ProcessFile(ctx context.Context, path string, req *models.ImportRequest) (*models.ProcessingResult, error) {
	args := m.Called(ctx, path, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProcessingResult), args.Error(1)
}

func (m *MockImportService) ProcessReader(ctx context.Context, fileName string, src io.Reader, req *models.ImportRequest) (*models.ProcessingResult, error) {
	args := m.Called(ctx, fileName, src, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProcessingResult), args.Error(1)
}

func (m *MockImportService) GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportRun), args.Error(1)
}

func (m *MockImportService) ListRuns(ctx context.Context, limit, offset int) ([]models.ImportRun, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.ImportRun), args.Get(1).(int64), args.Error(2)
}

var _ services.ImportServiceInterface = (*MockImportService)(nil)

// ============================================================================
// Test harness
// ============================================================================

func setupImportsRouter(service services.ImportServiceInterface, suppliers repository.SuppliersRepositoryInterface, maxUploadMB int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewImportsHandler(service, suppliers, maxUploadMB, 500)
	router := gin.New()
	api := router.Group("/api/v1")
	{
		imports := api.Group("/imports")
		{
			imports.POST("", handler.UploadPriceList)
			imports.GET("", handler.ListRuns)
			imports.GET("/template", handler.GetImportTemplate)
			imports.GET("/:id", handler.GetRun)
		}
	}
	return router
}

func multipartUpload(t *testing.T, fileName, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func performUpload(router *gin.Engine, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/api/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func templateTestConfig(t *testing.T, supplierID uuid.UUID) *models.SupplierConfig {
	t.Helper()
	config := &models.SupplierConfig{
		SupplierID:          supplierID,
		HeaderRows:          1,
		CSVDelimiter:        ";",
		OfferProperties:     []string{"price"},
		ExpectedColumnCount: intPtr(3),
	}
	require.NoError(t, config.SetColumnMappings(map[string]string{"A": "ean", "B": "name", "C": "price"}))
	return config
}

// ============================================================================
// Upload Tests
// ============================================================================

func TestUploadPriceList(t *testing.T) {
	mockService := new(MockImportService)
	var gotFile string
	var gotReq *models.ImportRequest
	mockService.On("ProcessReader", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotFile = args.String(1)
			gotReq = args.Get(3).(*models.ImportRequest)
		}).
		Return(&models.ProcessingResult{Success: true, TotalRows: 3, ProductsCreated: 2, OfferProductsCreated: 3}, nil)

	router := setupImportsRouter(mockService, new(MockSuppliersRepository), 50)
	body, contentType := multipartUpload(t, "acme_prices.csv", "ean;name;price\n111;Chair;19.90\n", map[string]string{
		"supplierName":         "Acme",
		"batchSize":            "100",
		"maxRetries":           "3",
		"perBatchTransactions": "true",
		"currency":             "EUR",
	})
	w := performUpload(router, body, contentType)

	assert.Equal(t, http.StatusOK, w.Code)
	var result models.ProcessingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ProductsCreated)

	assert.Equal(t, "acme_prices.csv", gotFile)
	require.NotNil(t, gotReq)
	assert.Equal(t, "Acme", gotReq.SupplierName)
	assert.Equal(t, 100, gotReq.BatchSize)
	assert.Equal(t, 3, gotReq.MaxRetries)
	assert.True(t, gotReq.PerBatchTransactions)
	assert.False(t, gotReq.UseStaging)
	assert.False(t, gotReq.ValidateOnly)
	assert.Equal(t, "EUR", gotReq.Currency)
}

func TestUploadPriceList_DefaultsApply(t *testing.T) {
	mockService := new(MockImportService)
	var gotReq *models.ImportRequest
	mockService.On("ProcessReader", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotReq = args.Get(3).(*models.ImportRequest)
		}).
		Return(&models.ProcessingResult{Success: true}, nil)

	router := setupImportsRouter(mockService, new(MockSuppliersRepository), 50)
	body, contentType := multipartUpload(t, "prices.csv", "111;Chair;19.90\n", nil)
	w := performUpload(router, body, contentType)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotReq)
	assert.Equal(t, 500, gotReq.BatchSize)
	assert.Equal(t, 0, gotReq.MaxRetries)
	assert.Empty(t, gotReq.SupplierName)
	assert.False(t, gotReq.PerBatchTransactions)
}

func TestUploadPriceList_MissingFile(t *testing.T) {
	mockService := new(MockImportService)
	router := setupImportsRouter(mockService, new(MockSuppliersRepository), 50)

	body, contentType := multipartUpload(t, "", "", map[string]string{"supplierName": "Acme"})
	w := performUpload(router, body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "FILE_REQUIRED", resp.Error.Code)
	mockService.AssertNotCalled(t, "ProcessReader", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadPriceList_FileTooLarge(t *testing.T) {
	mockService := new(MockImportService)
	router := setupImportsRouter(mockService, new(MockSuppliersRepository), 1)

	oversized := strings.Repeat("x", (1<<20)+1)
	body, contentType := multipartUpload(t, "huge.csv", oversized, nil)
	w := performUpload(router, body, contentType)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeError(t, w).Error.Code)
	mockService.AssertNotCalled(t, "ProcessReader", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadPriceList_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"no supplier config",
			fmt.Errorf("%w: no configuration matches %q", services.ErrNoSupplierConfig, "mystery.csv"),
			http.StatusBadRequest,
			"NO_SUPPLIER_CONFIG",
		},
		{
			"config invalid",
			fmt.Errorf("%w: no column mappings configured", services.ErrConfigInvalid),
			http.StatusBadRequest,
			"CONFIG_INVALID",
		},
		{
			"validation failed",
			fmt.Errorf("%w: file contains no data rows", services.ErrValidationFailed),
			http.StatusBadRequest,
			"VALIDATION_FAILED",
		},
		{
			"parse error",
			&readers.ParseError{File: "prices.xlsx", Reason: "not a valid workbook"},
			http.StatusBadRequest,
			"PARSE_ERROR",
		},
		{
			"internal error",
			errors.New("pq: connection refused"),
			http.StatusInternalServerError,
			"IMPORT_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockImportService)
			mockService.On("ProcessReader", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, tt.err)

			router := setupImportsRouter(mockService, new(MockSuppliersRepository), 50)
			body, contentType := multipartUpload(t, "prices.csv", "111;Chair\n", nil)
			w := performUpload(router, body, contentType)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				// Database details must not leak into the response.
				assert.NotContains(t, resp.Error.Message, "connection refused")
				assert.Equal(t, "An internal error occurred", resp.Error.Message)
			}
		})
	}
}

// ============================================================================
// Run Listing Tests
// ============================================================================

func TestListImportRuns_ClampsPagination(t *testing.T) {
	mockService := new(MockImportService)
	mockService.On("ListRuns", mock.Anything, 20, 0).Return([]models.ImportRun{
		{ID: uuid.New(), FileName: "a.csv", Status: models.ImportStatusCompleted},
		{ID: uuid.New(), FileName: "b.csv", Status: models.ImportStatusFailed},
	}, int64(5), nil)

	router := setupImportsRouter(mockService, new(MockSuppliersRepository), 50)
	w := performJSON(router, "GET", "/api/v1/imports?limit=999&offset=-3", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(5), resp["total"])
	assert.Equal(t, float64(20), resp["limit"])
	assert.Equal(t, float64(0), resp["offset"])
	assert.Len(t, resp["data"], 2)
	mockService.AssertExpectations(t)
}

func TestGetImportRun(t *testing.T) {
	run := &models.ImportRun{ID: uuid.New(), FileName: "acme.csv", Status: models.ImportStatusCompleted}
	mockService := new(MockImportService)
	mockService.On("GetRun", mock.Anything, run.ID).Return(run, nil)

	router := setupImportsRouter(mockService, new(MockSuppliersRepository), 50)
	w := performJSON(router, "GET", "/api/v1/imports/"+run.ID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.ImportRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, run.ID, resp.ID)
	assert.Equal(t, models.ImportStatusCompleted, resp.Status)
}

func TestGetImportRun_InvalidID(t *testing.T) {
	router := setupImportsRouter(new(MockImportService), new(MockSuppliersRepository), 50)
	w := performJSON(router, "GET", "/api/v1/imports/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decodeError(t, w).Error.Code)
}

func TestGetImportRun_NotFound(t *testing.T) {
	mockService := new(MockImportService)
	mockService.On("GetRun", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	router := setupImportsRouter(mockService, new(MockSuppliersRepository), 50)
	w := performJSON(router, "GET", "/api/v1/imports/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeError(t, w).Error.Message, "import run not found")
}

// ============================================================================
// Template Tests
// ============================================================================

func TestGetImportTemplate_JSON(t *testing.T) {
	supplierID := uuid.New()
	mockSuppliers := new(MockSuppliersRepository)
	mockSuppliers.On("GetConfig", mock.Anything, supplierID).Return(templateTestConfig(t, supplierID), nil)

	router := setupImportsRouter(new(MockImportService), mockSuppliers, 50)
	w := performJSON(router, "GET", "/api/v1/imports/template?supplierId="+supplierID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success             bool             `json:"success"`
		Columns             []templateColumn `json:"columns"`
		ExpectedColumnCount *int             `json:"expectedColumnCount"`
		CSVDelimiter        string           `json:"csvDelimiter"`
		HeaderRows          int              `json:"headerRows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, ";", resp.CSVDelimiter)
	assert.Equal(t, 1, resp.HeaderRows)
	require.NotNil(t, resp.ExpectedColumnCount)
	assert.Equal(t, 3, *resp.ExpectedColumnCount)

	require.Len(t, resp.Columns, 3)
	assert.Equal(t, templateColumn{Column: "A", Index: 0, Property: "ean", Kind: "core"}, resp.Columns[0])
	assert.Equal(t, templateColumn{Column: "B", Index: 1, Property: "name", Kind: "core"}, resp.Columns[1])
	assert.Equal(t, templateColumn{Column: "C", Index: 2, Property: "price", Kind: "offer"}, resp.Columns[2])
}

func TestGetImportTemplate_CSV(t *testing.T) {
	supplierID := uuid.New()
	mockSuppliers := new(MockSuppliersRepository)
	mockSuppliers.On("GetConfig", mock.Anything, supplierID).Return(templateTestConfig(t, supplierID), nil)

	router := setupImportsRouter(new(MockImportService), mockSuppliers, 50)
	w := performJSON(router, "GET", "/api/v1/imports/template?supplierId="+supplierID.String()+"&format=csv", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "pricelist_template.csv")
	assert.Equal(t, "ean;name;price\n", w.Body.String())
}

func TestGetImportTemplate_XLSX(t *testing.T) {
	supplierID := uuid.New()
	mockSuppliers := new(MockSuppliersRepository)
	mockSuppliers.On("GetConfig", mock.Anything, supplierID).Return(templateTestConfig(t, supplierID), nil)

	router := setupImportsRouter(new(MockImportService), mockSuppliers, 50)
	w := performJSON(router, "GET", "/api/v1/imports/template?supplierId="+supplierID.String()+"&format=xlsx", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "pricelist_template.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), "PriceList")
	assert.Contains(t, f.GetSheetList(), "Instructions")

	rows, err := f.GetRows("PriceList")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"ean", "name", "price"}, rows[0])

	kind, err := f.GetCellValue("Instructions", "C6")
	require.NoError(t, err)
	assert.Equal(t, "offer", kind)
}

func TestGetImportTemplate_MissingSupplierID(t *testing.T) {
	router := setupImportsRouter(new(MockImportService), new(MockSuppliersRepository), 50)
	w := performJSON(router, "GET", "/api/v1/imports/template", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decodeError(t, w).Error.Code)
}

func TestGetImportTemplate_NoConfiguration(t *testing.T) {
	mockSuppliers := new(MockSuppliersRepository)
	mockSuppliers.On("GetConfig", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	router := setupImportsRouter(new(MockImportService), mockSuppliers, 50)
	w := performJSON(router, "GET", "/api/v1/imports/template?supplierId="+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeError(t, w).Error.Message, "no import configuration")
}
