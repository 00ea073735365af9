package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pricelist-service/internal/models"
	"pricelist-service/internal/theme"
)

// ThemesHandler handles HTTP requests for the UI theme catalog
type ThemesHandler struct {
	manager *theme.Manager
}

// NewThemesHandler creates a new ThemesHandler
func NewThemesHandler(manager *theme.Manager) *ThemesHandler {
	return &ThemesHandler{manager: manager}
}

// ApplyThemeRequest selects the active theme and an optional skin.
type ApplyThemeRequest struct {
	Theme string `json:"theme" binding:"required"`
	Skin  string `json:"skin,omitempty"`
}

// ListThemes lists the catalog and the active selection
// @Summary List themes and skins
// @Tags Themes
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/themes [get]
func (h *ThemesHandler) ListThemes(c *gin.Context) {
	currentTheme, _ := h.manager.CurrentTheme()
	currentSkin, _ := h.manager.CurrentSkin()
	c.JSON(http.StatusOK, gin.H{
		"themes":       h.manager.Themes(),
		"skins":        h.manager.Skins(),
		"currentTheme": currentTheme,
		"currentSkin":  currentSkin,
	})
}

// GetCurrentTheme returns the active selection with resolved definitions
// @Summary Get active theme
// @Tags Themes
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/themes/current [get]
func (h *ThemesHandler) GetCurrentTheme(c *gin.Context) {
	themeName, themeDef := h.manager.CurrentTheme()
	skinName, skinDef := h.manager.CurrentSkin()
	c.JSON(http.StatusOK, gin.H{
		"theme":           themeName,
		"skin":            skinName,
		"themeDefinition": themeDef,
		"skinDefinition":  skinDef,
	})
}

// GetTheme returns one resolved theme definition
// @Summary Get theme
// @Tags Themes
// @Produce json
// @Param name path string true "Theme name"
// @Success 200 {object} theme.ThemeDefinition
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/themes/{name} [get]
func (h *ThemesHandler) GetTheme(c *gin.Context) {
	def, ok := h.manager.Theme(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "NOT_FOUND", Message: "theme not found"},
		})
		return
	}
	c.JSON(http.StatusOK, def)
}

// GetSkin returns one resolved skin definition
// @Summary Get skin
// @Tags Themes
// @Produce json
// @Param name path string true "Skin name"
// @Success 200 {object} theme.SkinDefinition
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/skins/{name} [get]
func (h *ThemesHandler) GetSkin(c *gin.Context) {
	def, ok := h.manager.Skin(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "NOT_FOUND", Message: "skin not found"},
		})
		return
	}
	c.JSON(http.StatusOK, def)
}

// ApplyTheme activates a theme and optional skin
// @Summary Apply theme
// @Tags Themes
// @Accept json
// @Produce json
// @Param selection body ApplyThemeRequest true "Theme selection"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/themes/current [put]
func (h *ThemesHandler) ApplyTheme(c *gin.Context) {
	var req ApplyThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "VALIDATION_ERROR", Message: err.Error()},
		})
		return
	}

	if err := h.manager.ApplyTheme(req.Theme, req.Skin); err != nil {
		if errors.Is(err, theme.ErrUnknownTheme) || errors.Is(err, theme.ErrUnknownSkin) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: err.Error()},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "THEME_SAVE_FAILED", Message: "An internal error occurred"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"theme":   req.Theme,
		"skin":    req.Skin,
	})
}

// ReloadThemes re-reads the theme catalog from disk
// @Summary Reload theme catalog
// @Tags Themes
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/themes/reload [post]
func (h *ThemesHandler) ReloadThemes(c *gin.Context) {
	if err := h.manager.Load(); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "THEME_LOAD_FAILED", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"themes":  h.manager.Themes(),
		"skins":   h.manager.Skins(),
	})
}
