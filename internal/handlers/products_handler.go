package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pricelist-service/internal/models"
	"pricelist-service/internal/repository"
)

// ProductsHandler handles HTTP requests for the shared product catalog
type ProductsHandler struct {
	products repository.ProductsRepositoryInterface
}

// NewProductsHandler creates a new ProductsHandler
func NewProductsHandler(products repository.ProductsRepositoryInterface) *ProductsHandler {
	return &ProductsHandler{products: products}
}

// ListProducts lists catalog products
// @Summary List products
// @Tags Products
// @Produce json
// @Param ean query string false "Look up by exact EAN, case-insensitive"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/products [get]
func (h *ProductsHandler) ListProducts(c *gin.Context) {
	if ean := strings.TrimSpace(c.Query("ean")); ean != "" {
		byEAN, err := h.products.FindByEANs(c.Request.Context(), []string{ean})
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
			})
			return
		}
		data := make([]*models.Product, 0, 1)
		if product, ok := byEAN[strings.ToLower(ean)]; ok {
			data = append(data, product)
		}
		c.JSON(http.StatusOK, gin.H{
			"data":   data,
			"total":  len(data),
			"limit":  1,
			"offset": 0,
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	products, total, err := h.products.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   products,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetProduct retrieves one product by ID
// @Summary Get product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/products/{id} [get]
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "invalid product id"},
		})
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "product not found"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusOK, product)
}
