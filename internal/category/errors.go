// File: internal/category/errors.go
package category

import (
	"fmt"
	"net/http"

	"catalog_hierarchy_backend/internal/common"
)

// Error codes for structural rule rejections. These are business-rule
// rejections detected before any mutation is applied, not server faults.
const (
	CodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	CodeDuplicateSlug    = "DUPLICATE_SLUG"
	CodeInvalidParent    = "INVALID_PARENT"
	CodeCycleDetected    = "CYCLE_DETECTED"
	CodeHasSubcategories = "HAS_SUBCATEGORIES"
	CodeAlreadyDeleted   = "ALREADY_DELETED"
	CodeNotDeleted       = "NOT_DELETED"
)

func hasCode(err error, code string) bool {
	return common.HasErrorCode(err, code)
}

func newCategoryNotFoundError() *common.APIError {
	return common.NewAPIError(http.StatusNotFound, CodeCategoryNotFound, "Category not found.")
}

func newDuplicateSlugError(slug string) *common.APIError {
	return common.NewAPIError(http.StatusConflict, CodeDuplicateSlug,
		fmt.Sprintf("A category with slug %q already exists.", slug))
}

func newInvalidParentError(reason string) *common.APIError {
	return common.NewAPIError(http.StatusBadRequest, CodeInvalidParent, reason)
}

func newSelfParentError() *common.APIError {
	return common.NewAPIError(http.StatusBadRequest, CodeInvalidParent,
		"A category cannot be its own parent.")
}

func newCycleError() *common.APIError {
	return common.NewAPIError(http.StatusBadRequest, CodeCycleDetected,
		"The target parent is a descendant of this category; moving it there would create a cycle.")
}

func newHasSubcategoriesError(count int64) *common.APIError {
	err := common.NewAPIError(http.StatusConflict, CodeHasSubcategories,
		fmt.Sprintf("Cannot delete category: %d subcategories exist.", count))
	return err.WithDetails(map[string]int64{"subcategory_count": count})
}

func newAlreadyDeletedError() *common.APIError {
	return common.NewAPIError(http.StatusConflict, CodeAlreadyDeleted, "Category is already deleted.")
}

func newNotDeletedError() *common.APIError {
	return common.NewAPIError(http.StatusConflict, CodeNotDeleted, "Category is not deleted.")
}
