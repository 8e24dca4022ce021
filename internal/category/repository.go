// File: internal/category/repository.go
package category

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for category data operations.
//
// Mutating methods run inside a database transaction together with the
// denormalized counter updates they trigger, and re-check their structural
// preconditions (live children count, parent liveness) inside that
// transaction so a check-then-act race cannot corrupt the tree.
type Repository interface {
	Create(ctx context.Context, category *Category) error
	FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Category, error)
	FindBySlug(ctx context.Context, slug string, includeDeleted bool) (*Category, error)
	FindAll(ctx context.Context, query ListCategoriesQuery) ([]Category, error)
	FindChildren(ctx context.Context, parentID uuid.UUID) ([]Category, error)
	// FindChildRows returns the live rows whose ParentID is any of parentIDs.
	// Used by the descendant resolver for breadth-first expansion.
	FindChildRows(ctx context.Context, parentIDs []uuid.UUID, activeOnly bool) ([]Category, error)
	SlugTaken(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Reparent(ctx context.Context, id uuid.UUID, oldParentID, newParentID *uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	CountLiveChildren(ctx context.Context, parentID uuid.UUID) (int64, error)
	AdjustProductsCount(ctx context.Context, id uuid.UUID, delta int) error
	// RecountChildren recomputes children_count from ground truth and
	// returns the corrected value.
	RecountChildren(ctx context.Context, id uuid.UUID) (int, error)
	FindAllLiveIDs(ctx context.Context) ([]uuid.UUID, error)
	Stats(ctx context.Context) (*StatsResponse, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM category repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// adjustChildrenCount applies an atomic relative update to children_count so
// concurrent sibling mutations never lose increments. No-op for a nil parent.
func adjustChildrenCount(tx *gorm.DB, parentID *uuid.UUID, delta int) error {
	if parentID == nil {
		return nil
	}
	return tx.Model(&Category{}).
		Where("id = ?", *parentID).
		UpdateColumn("children_count", gorm.Expr("children_count + ?", delta)).Error
}

func isDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func (r *gormRepository) Create(ctx context.Context, category *Category) error {
	category.Slug = strings.ToLower(strings.TrimSpace(category.Slug))
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if category.ParentID != nil {
			var parent Category
			if err := tx.First(&parent, "id = ?", *category.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return newInvalidParentError("Parent category does not exist or is deleted.")
				}
				return err
			}
		}
		taken, err := slugTaken(tx, category.Slug, nil)
		if err != nil {
			return err
		}
		if taken {
			return newDuplicateSlugError(category.Slug)
		}
		if err := tx.Create(category).Error; err != nil {
			if isDuplicateKeyError(err) {
				return newDuplicateSlugError(category.Slug)
			}
			return err
		}
		return adjustChildrenCount(tx, category.ParentID, +1)
	})
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Category, error) {
	var category Category
	query := r.db.WithContext(ctx)
	if includeDeleted {
		query = query.Unscoped()
	}
	err := query.First(&category, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newCategoryNotFoundError()
		}
		return nil, err
	}
	return &category, nil
}

func (r *gormRepository) FindBySlug(ctx context.Context, slug string, includeDeleted bool) (*Category, error) {
	var category Category
	normalizedSlug := strings.ToLower(strings.TrimSpace(slug))
	query := r.db.WithContext(ctx)
	if includeDeleted {
		query = query.Unscoped()
	}
	err := query.First(&category, "slug = ?", normalizedSlug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newCategoryNotFoundError()
		}
		return nil, err
	}
	return &category, nil
}

func (r *gormRepository) FindAll(ctx context.Context, query ListCategoriesQuery) ([]Category, error) {
	var categories []Category
	q := r.db.WithContext(ctx).Model(&Category{})
	if query.IncludeDeleted {
		q = q.Unscoped()
	}
	if query.RootOnly {
		q = q.Where("parent_id IS NULL")
	} else if query.ParentID != nil {
		q = q.Where("parent_id = ?", *query.ParentID)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		// lower(...) LIKE keeps the match case-insensitive on both
		// Postgres and the sqlite used in tests.
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where(
			"lower(name) LIKE ? OR lower(name_en) LIKE ? OR lower(coalesce(description, '')) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if query.IsActive != nil {
		q = q.Where("is_active = ?", *query.IsActive)
	}
	if query.IsFeatured != nil {
		q = q.Where("is_featured = ?", *query.IsFeatured)
	}
	err := q.Order("sort_order ASC, name ASC").Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *gormRepository) FindChildren(ctx context.Context, parentID uuid.UUID) ([]Category, error) {
	var children []Category
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("sort_order ASC, name ASC").
		Find(&children).Error
	return children, err
}

func (r *gormRepository) FindChildRows(ctx context.Context, parentIDs []uuid.UUID, activeOnly bool) ([]Category, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var rows []Category
	q := r.db.WithContext(ctx).
		Select("id", "parent_id").
		Where("parent_id IN ?", parentIDs)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func slugTaken(tx *gorm.DB, slug string, excludeID *uuid.UUID) (bool, error) {
	// Uniqueness only matters among live rows; a soft-deleted category's
	// slug may be reused.
	var count int64
	q := tx.Model(&Category{}).Where("slug = ?", slug)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) SlugTaken(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	return slugTaken(r.db.WithContext(ctx), strings.ToLower(strings.TrimSpace(slug)), excludeID)
}

func (r *gormRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	newSlug, changingSlug := updates["slug"].(string)
	if changingSlug {
		newSlug = strings.ToLower(strings.TrimSpace(newSlug))
		updates["slug"] = newSlug
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if changingSlug {
			// Re-check inside the transaction; the service's earlier check
			// may be stale by now. The partial unique index is the final
			// backstop either way.
			taken, err := slugTaken(tx, newSlug, &id)
			if err != nil {
				return err
			}
			if taken {
				return newDuplicateSlugError(newSlug)
			}
		}
		result := tx.Model(&Category{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			if isDuplicateKeyError(result.Error) {
				return newDuplicateSlugError(newSlug)
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return newCategoryNotFoundError()
		}
		return nil
	})
}

func (r *gormRepository) Reparent(ctx context.Context, id uuid.UUID, oldParentID, newParentID *uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newParentID != nil {
			var parent Category
			if err := tx.First(&parent, "id = ?", *newParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return newInvalidParentError("Target parent category does not exist or is deleted.")
				}
				return err
			}
		}
		result := tx.Model(&Category{}).Where("id = ?", id).Update("parent_id", newParentID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return newCategoryNotFoundError()
		}
		if err := adjustChildrenCount(tx, oldParentID, -1); err != nil {
			return err
		}
		return adjustChildrenCount(tx, newParentID, +1)
	})
}

func (r *gormRepository) SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.Unscoped().First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newCategoryNotFoundError()
			}
			return err
		}
		if category.IsDeleted() {
			return newAlreadyDeletedError()
		}

		// Live re-check inside the transaction: the count seen by an
		// earlier read may be stale by now.
		var childCount int64
		if err := tx.Model(&Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
			return err
		}
		if childCount > 0 {
			return newHasSubcategoriesError(childCount)
		}

		updates := map[string]interface{}{
			"deleted_at": time.Now(),
			"deleted_by": actorID,
		}
		if err := tx.Model(&Category{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return adjustChildrenCount(tx, category.ParentID, -1)
	})
}

func (r *gormRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.Unscoped().First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newCategoryNotFoundError()
			}
			return err
		}
		if !category.IsDeleted() {
			return newNotDeletedError()
		}
		if category.ParentID != nil {
			var parent Category
			if err := tx.First(&parent, "id = ?", *category.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return newInvalidParentError("Cannot restore: the parent category is deleted. Restore the parent first.")
				}
				return err
			}
		}
		// A live row may have claimed this slug while the category was deleted.
		taken, err := slugTaken(tx, category.Slug, &category.ID)
		if err != nil {
			return err
		}
		if taken {
			return newDuplicateSlugError(category.Slug)
		}

		updates := map[string]interface{}{
			"deleted_at": nil,
			"deleted_by": nil,
		}
		if err := tx.Unscoped().Model(&Category{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return adjustChildrenCount(tx, category.ParentID, +1)
	})
}

func (r *gormRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.Unscoped().First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newCategoryNotFoundError()
			}
			return err
		}

		// Any remaining child row blocks physical removal, soft-deleted
		// ones included, so no historical record is ever orphaned.
		var childCount int64
		if err := tx.Unscoped().Model(&Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
			return err
		}
		if childCount > 0 {
			return newHasSubcategoriesError(childCount)
		}

		if err := tx.Unscoped().Delete(&Category{}, "id = ?", id).Error; err != nil {
			return err
		}
		// A soft-deleted row already gave back its slot in the parent's
		// counter when it was soft-deleted.
		if !category.IsDeleted() {
			return adjustChildrenCount(tx, category.ParentID, -1)
		}
		return nil
	})
}

func (r *gormRepository) CountLiveChildren(ctx context.Context, parentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Category{}).Where("parent_id = ?", parentID).Count(&count).Error
	return count, err
}

func (r *gormRepository) AdjustProductsCount(ctx context.Context, id uuid.UUID, delta int) error {
	result := r.db.WithContext(ctx).Model(&Category{}).
		Where("id = ?", id).
		UpdateColumn("products_count", gorm.Expr("products_count + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return newCategoryNotFoundError()
	}
	return nil
}

func (r *gormRepository) RecountChildren(ctx context.Context, id uuid.UUID) (int, error) {
	var corrected int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newCategoryNotFoundError()
			}
			return err
		}
		var count int64
		if err := tx.Model(&Category{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		corrected = int(count)
		if category.ChildrenCount == corrected {
			return nil
		}
		return tx.Model(&Category{}).Where("id = ?", id).
			UpdateColumn("children_count", corrected).Error
	})
	return corrected, err
}

func (r *gormRepository) FindAllLiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&Category{}).Pluck("id", &ids).Error
	return ids, err
}

func (r *gormRepository) Stats(ctx context.Context) (*StatsResponse, error) {
	db := r.db.WithContext(ctx)
	stats := &StatsResponse{}

	if err := db.Model(&Category{}).Count(&stats.TotalCategories).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Category{}).Where("is_active = ?", true).Count(&stats.ActiveCategories).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Category{}).Where("is_featured = ?", true).Count(&stats.FeaturedCategories).Error; err != nil {
		return nil, err
	}
	if err := db.Unscoped().Model(&Category{}).Where("deleted_at IS NOT NULL").Count(&stats.DeletedCategories).Error; err != nil {
		return nil, err
	}

	var totalProducts *int64
	if err := db.Model(&Category{}).Select("sum(products_count)").Scan(&totalProducts).Error; err != nil {
		return nil, err
	}
	if totalProducts != nil {
		stats.TotalProducts = *totalProducts
	}
	if err := db.Model(&Category{}).Where("products_count > 0").Count(&stats.CategoriesWithProducts).Error; err != nil {
		return nil, err
	}
	if stats.TotalCategories > 0 {
		stats.AverageProductsPerCategory = float64(stats.TotalProducts) / float64(stats.TotalCategories)
	}
	return stats, nil
}
