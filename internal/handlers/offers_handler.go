package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pricelist-service/internal/models"
	"pricelist-service/internal/repository"
)

// OffersHandler handles HTTP requests for supplier offers
type OffersHandler struct {
	offers repository.OffersRepositoryInterface
}

// NewOffersHandler creates a new OffersHandler
func NewOffersHandler(offers repository.OffersRepositoryInterface) *OffersHandler {
	return &OffersHandler{offers: offers}
}

// ListOffers lists offers, optionally filtered by supplier
// @Summary List offers
// @Tags Offers
// @Produce json
// @Param supplierId query string false "Filter by supplier ID"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/offers [get]
func (h *OffersHandler) ListOffers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var supplierID *uuid.UUID
	if raw := c.Query("supplierId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "INVALID_ID", Message: "invalid supplier id"},
			})
			return
		}
		supplierID = &parsed
	}

	offers, total, err := h.offers.List(c.Request.Context(), supplierID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   offers,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetOffer retrieves one offer with its linked products
// @Summary Get offer
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} models.SupplierOffer
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/offers/{id} [get]
func (h *OffersHandler) GetOffer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "invalid offer id"},
		})
		return
	}

	offer, err := h.offers.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "offer not found"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusOK, offer)
}

// DeleteOffer deletes an offer and its product links
// @Summary Delete offer
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/offers/{id} [delete]
func (h *OffersHandler) DeleteOffer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_ID", Message: "invalid offer id"},
		})
		return
	}

	if err := h.offers.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "offer not found"},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DB_ERROR", Message: "An internal error occurred"},
		})
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "offer deleted"})
}
