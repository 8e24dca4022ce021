// File: internal/category/model.go
package category

import (
	"time"

	"catalog_hierarchy_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category represents a node of the catalog taxonomy tree.
// ParentID is nil for root-level categories. ChildrenCount is a denormalized
// count of immediate live children and is maintained by the repository in the
// same transaction as the structural change that affects it. ProductsCount is
// owned by the product service and only adjusted here on its behalf.
type Category struct {
	common.BaseModel
	ParentID      *uuid.UUID     `gorm:"type:uuid;index"`
	Name          string         `gorm:"type:varchar(150);not null"`
	NameEn        string         `gorm:"column:name_en;type:varchar(150);not null"`
	// Uniqueness only applies to live rows; soft-deleted slugs are reusable.
	Slug          string         `gorm:"type:varchar(150);not null;uniqueIndex:udx_categories_live_slug,where:deleted_at IS NULL"`
	Description   *string        `gorm:"type:text"`
	SortOrder     int            `gorm:"column:sort_order;not null;default:0"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true"`
	IsFeatured    bool           `gorm:"column:is_featured;not null;default:false"`
	ChildrenCount int            `gorm:"column:children_count;not null;default:0"`
	ProductsCount int            `gorm:"column:products_count;not null;default:0"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
	DeletedBy     *uuid.UUID     `gorm:"type:uuid"`
}

// TableName specifies the table name for the Category model.
func (Category) TableName() string {
	return "categories"
}

// IsDeleted reports whether the category is soft-deleted.
func (c *Category) IsDeleted() bool {
	return c.DeletedAt.Valid
}

// --- DTOs ---

// CategoryResponse defines the structure for category data sent in API responses.
type CategoryResponse struct {
	ID            uuid.UUID  `json:"id"`
	ParentID      *uuid.UUID `json:"parent_id,omitempty"`
	Name          string     `json:"name"`
	NameEn        string     `json:"name_en"`
	Slug          string     `json:"slug"`
	Description   *string    `json:"description,omitempty"`
	SortOrder     int        `json:"sort_order"`
	IsActive      bool       `json:"is_active"`
	IsFeatured    bool       `json:"is_featured"`
	ChildrenCount int        `json:"children_count"`
	ProductsCount int        `json:"products_count"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedBy     *uuid.UUID `json:"deleted_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BreadcrumbItem is one ancestor entry on the path from root to a category.
type BreadcrumbItem struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// CategoryDetailResponse is the single-category view: the category itself,
// its immediate children and the ancestor chain from root to the node.
type CategoryDetailResponse struct {
	CategoryResponse
	Children   []CategoryResponse `json:"children"`
	Breadcrumb []BreadcrumbItem   `json:"breadcrumb"`
}

// TreeNodeResponse is a category with its nested children, used by the
// full-forest endpoint.
type TreeNodeResponse struct {
	CategoryResponse
	Children []*TreeNodeResponse `json:"children"`
}

// StatsResponse aggregates catalog-wide category statistics.
type StatsResponse struct {
	TotalCategories            int64   `json:"total_categories"`
	ActiveCategories           int64   `json:"active_categories"`
	FeaturedCategories         int64   `json:"featured_categories"`
	DeletedCategories          int64   `json:"deleted_categories"`
	TotalProducts              int64   `json:"total_products"`
	CategoriesWithProducts     int64   `json:"categories_with_products"`
	AverageProductsPerCategory float64 `json:"average_products_per_category"`
}

// ToCategoryResponse converts a Category model to a CategoryResponse DTO.
func ToCategoryResponse(category *Category) CategoryResponse {
	resp := CategoryResponse{
		ID:            category.ID,
		ParentID:      category.ParentID,
		Name:          category.Name,
		NameEn:        category.NameEn,
		Slug:          category.Slug,
		Description:   category.Description,
		SortOrder:     category.SortOrder,
		IsActive:      category.IsActive,
		IsFeatured:    category.IsFeatured,
		ChildrenCount: category.ChildrenCount,
		ProductsCount: category.ProductsCount,
		DeletedBy:     category.DeletedBy,
		CreatedAt:     category.CreatedAt,
		UpdatedAt:     category.UpdatedAt,
	}
	if category.DeletedAt.Valid {
		deletedAt := category.DeletedAt.Time
		resp.DeletedAt = &deletedAt
	}
	return resp
}

// ToBreadcrumbItem converts a Category model to a breadcrumb entry.
func ToBreadcrumbItem(category *Category) BreadcrumbItem {
	return BreadcrumbItem{
		ID:   category.ID,
		Name: category.Name,
		Slug: category.Slug,
	}
}

// CreateCategoryRequest is the payload for creating a category.
type CreateCategoryRequest struct {
	ParentID    *uuid.UUID `json:"parent_id"`
	Name        string     `json:"name" binding:"required,max=150"`
	NameEn      string     `json:"name_en" binding:"required,max=150"`
	Slug        string     `json:"slug" binding:"omitempty,max=150"`
	Description *string    `json:"description,omitempty"`
	SortOrder   int        `json:"sort_order"`
	IsActive    *bool      `json:"is_active"`
	IsFeatured  *bool      `json:"is_featured"`
}

// UpdateCategoryRequest is a partial patch; nil fields are left unchanged.
// Parent reassignment is explicit: a non-nil ParentID moves the category
// under that parent, RemoveParent moves it to the root level.
type UpdateCategoryRequest struct {
	ParentID     *uuid.UUID `json:"parent_id"`
	RemoveParent bool       `json:"remove_parent"`
	Name         *string    `json:"name" binding:"omitempty,max=150"`
	NameEn       *string    `json:"name_en" binding:"omitempty,max=150"`
	Slug         *string    `json:"slug" binding:"omitempty,max=150"`
	Description  *string    `json:"description"`
	SortOrder    *int       `json:"sort_order"`
	IsActive     *bool      `json:"is_active"`
	IsFeatured   *bool      `json:"is_featured"`
}

// ListCategoriesQuery captures the list endpoint filters.
type ListCategoriesQuery struct {
	ParentID       *uuid.UUID `form:"parent_id"`
	RootOnly       bool       `form:"root_only"`
	Search         string     `form:"search"`
	IsActive       *bool      `form:"is_active"`
	IsFeatured     *bool      `form:"is_featured"`
	IncludeDeleted bool       `form:"include_deleted"`
}
