package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pricelist-service/internal/models"
	"pricelist-service/internal/repository"
)

// MockProductsRepository is a mock implementation of ProductsRepositoryInterface
type MockProductsRepository struct {
	mock.Mock
}

func (m *MockProductsRepository) FindByEANs(ctx context.Context, eans []string) (map[string]*models.Product, error) {
	args := m.Called(ctx, eans)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.Product), args.Error(1)
}

func (m *MockProductsRepository) BulkCreate(ctx context.Context, products []*models.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *MockProductsRepository) BulkUpdate(ctx context.Context, products []*models.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *MockProductsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductsRepository) List(ctx context.Context, limit, offset int) ([]models.Product, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductsRepository) ListAll(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

var _ repository.ProductsRepositoryInterface = (*MockProductsRepository)(nil)

func setupProductsRouter(mockRepo *MockProductsRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewProductsHandler(mockRepo)
	router := gin.New()
	api := router.Group("/api/v1")
	{
		products := api.Group("/products")
		{
			products.GET("", handler.ListProducts)
			products.GET("/:id", handler.GetProduct)
		}
	}
	return router
}

func TestListProducts(t *testing.T) {
	mockRepo := new(MockProductsRepository)
	mockRepo.On("List", mock.Anything, 20, 0).Return([]models.Product{
		{ID: uuid.New(), EAN: "111", Name: "Chair"},
		{ID: uuid.New(), EAN: "222", Name: "Table"},
	}, int64(7), nil)

	router := setupProductsRouter(mockRepo)
	w := performJSON(router, "GET", "/api/v1/products", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(7), resp["total"])
	assert.Len(t, resp["data"], 2)
}

func TestListProducts_LooksUpByEAN(t *testing.T) {
	product := &models.Product{ID: uuid.New(), EAN: "ABC111", Name: "Chair"}
	mockRepo := new(MockProductsRepository)
	mockRepo.On("FindByEANs", mock.Anything, []string{"ABC111"}).
		Return(map[string]*models.Product{"abc111": product}, nil)

	router := setupProductsRouter(mockRepo)
	w := performJSON(router, "GET", "/api/v1/products?ean=ABC111", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["total"])
	require.Len(t, resp["data"], 1)
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestListProducts_UnknownEAN(t *testing.T) {
	mockRepo := new(MockProductsRepository)
	mockRepo.On("FindByEANs", mock.Anything, []string{"404404"}).
		Return(map[string]*models.Product{}, nil)

	router := setupProductsRouter(mockRepo)
	w := performJSON(router, "GET", "/api/v1/products?ean=404404", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["total"])
	assert.Len(t, resp["data"], 0)
}

func TestGetProduct(t *testing.T) {
	product := &models.Product{ID: uuid.New(), EAN: "111", Name: "Chair"}
	mockRepo := new(MockProductsRepository)
	mockRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)

	router := setupProductsRouter(mockRepo)
	w := performJSON(router, "GET", "/api/v1/products/"+product.ID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Chair", resp.Name)
}

func TestGetProduct_InvalidID(t *testing.T) {
	router := setupProductsRouter(new(MockProductsRepository))
	w := performJSON(router, "GET", "/api/v1/products/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decodeError(t, w).Error.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	mockRepo := new(MockProductsRepository)
	mockRepo.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	router := setupProductsRouter(mockRepo)
	w := performJSON(router, "GET", "/api/v1/products/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeError(t, w).Error.Message, "product not found")
}
