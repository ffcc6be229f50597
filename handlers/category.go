package handlers

import (
	"net/http"

	"doemais/services/category"
	"doemais/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	CategoryService category.CategoryService
}

// ListCategoriesHandler handles GET /api/categories.
func (h *CategoryHandler) ListCategoriesHandler(c *gin.Context) {
	list, err := h.CategoryService.List(c.Request.Context())
	if err != nil {
		getLogger(c).Error("Failed to list categories", zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetCategoryHandler handles GET /api/categories/:id.
func (h *CategoryHandler) GetCategoryHandler(c *gin.Context) {
	cat, err := h.CategoryService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// SubcategoriesHandler handles GET /api/categories/:id/subcategories.
func (h *CategoryHandler) SubcategoriesHandler(c *gin.Context) {
	subs, err := h.CategoryService.Subcategories(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}
