// File: internal/category/handler.go
package category

import (
	"errors"

	"catalog_hierarchy_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for category handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new category handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// IncrementProductsCountRequest adjusts the product counter of a category on
// behalf of the product service.
type IncrementProductsCountRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// RegisterRoutes sets up the routes for category operations. Mutations sit
// behind the actor and admin middleware supplied by the caller.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, actorMW gin.HandlerFunc, adminMW gin.HandlerFunc) {
	categoryGroup := router.Group("/categories")
	{
		categoryGroup.GET("", h.listCategories)
		categoryGroup.GET("/tree", h.getCategoryTree)
		categoryGroup.GET("/stats", h.getStats)
		categoryGroup.GET("/:idOrSlug", h.getCategory)
		categoryGroup.GET("/:idOrSlug/descendants", h.getCategoryDescendants)

		adminGroup := categoryGroup.Group("/admin")
		adminGroup.Use(actorMW)
		adminGroup.Use(adminMW)
		{
			adminGroup.POST("", h.createCategory)
			adminGroup.PUT("/:id", h.updateCategory)
			adminGroup.DELETE("/:id", h.deleteCategory)
			adminGroup.POST("/:id/restore", h.restoreCategory)
			adminGroup.DELETE("/:id/permanent", h.permanentDeleteCategory)
			adminGroup.POST("/:id/products-count", h.incrementProductsCount)
			adminGroup.POST("/:id/recount", h.updateCategoryStats)
		}
	}
}

func (h *Handler) listCategories(c *gin.Context) {
	var query ListCategoriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	categories, err := h.service.ListCategories(c.Request.Context(), query)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Categories retrieved successfully.", categories)
}

func (h *Handler) getCategoryTree(c *gin.Context) {
	tree, err := h.service.GetCategoryTree(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category tree retrieved successfully.", tree)
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category statistics retrieved successfully.", stats)
}

func (h *Handler) getCategory(c *gin.Context) {
	detail, err := h.service.GetCategory(c.Request.Context(), c.Param("idOrSlug"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category retrieved successfully.", detail)
}

func (h *Handler) getCategoryDescendants(c *gin.Context) {
	id, err := uuid.Parse(c.Param("idOrSlug"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid category ID format."))
		return
	}
	includeSelf := c.DefaultQuery("include_self", "true") == "true"
	ids, err := h.service.GetCategoryDescendants(c.Request.Context(), id, includeSelf)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category descendants retrieved successfully.", ids)
}

func (h *Handler) createCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create category: invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	category, err := h.service.CreateCategory(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Category created successfully.", ToCategoryResponse(category))
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid category ID format."))
		return
	}
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Update category: invalid request body", zap.Error(err), zap.String("id", id.String()))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	category, err := h.service.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category updated successfully.", ToCategoryResponse(category))
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid category ID format."))
		return
	}
	actorID := common.GetActorIDFromContext(c)
	category, err := h.service.DeleteCategory(c.Request.Context(), id, actorID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category deleted successfully.", ToCategoryResponse(category))
}

func (h *Handler) restoreCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid category ID format."))
		return
	}
	category, err := h.service.RestoreCategory(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Category restored successfully.", ToCategoryResponse(category))
}

func (h *Handler) permanentDeleteCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid category ID format."))
		return
	}
	if err := h.service.PermanentDeleteCategory(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) incrementProductsCount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid category ID format."))
		return
	}
	var req IncrementProductsCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("A non-zero delta is required."))
		return
	}
	if err := h.service.IncrementProductsCount(c.Request.Context(), id, req.Delta); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) updateCategoryStats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid category ID format."))
		return
	}
	if err := h.service.UpdateCategoryStats(c.Request.Context(), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
