// File: internal/category/repository_test.go
package category

import (
	"context"
	"fmt"
	"testing"

	"catalog_hierarchy_backend/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// categoriesDDL mirrors the production schema minus the Postgres-only uuid
// default; test rows always carry an explicitly assigned id.
const categoriesDDL = `
CREATE TABLE categories (
	id             TEXT PRIMARY KEY,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	parent_id      TEXT,
	name           TEXT NOT NULL,
	name_en        TEXT NOT NULL,
	slug           TEXT NOT NULL,
	description    TEXT,
	sort_order     INTEGER NOT NULL DEFAULT 0,
	is_active      BOOLEAN NOT NULL DEFAULT 1,
	is_featured    BOOLEAN NOT NULL DEFAULT 0,
	children_count INTEGER NOT NULL DEFAULT 0,
	products_count INTEGER NOT NULL DEFAULT 0,
	deleted_at     DATETIME,
	deleted_by     TEXT
)`

const liveSlugIndexDDL = `
CREATE UNIQUE INDEX udx_categories_live_slug ON categories(slug) WHERE deleted_at IS NULL`

func newTestRepository(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(categoriesDDL).Error)
	require.NoError(t, db.Exec(liveSlugIndexDDL).Error)
	return NewGORMRepository(db), db
}

func seedCategory(t *testing.T, repo Repository, name string, parentID *uuid.UUID, mutators ...func(*Category)) *Category {
	t.Helper()
	c := &Category{
		BaseModel: common.BaseModel{ID: uuid.New()},
		ParentID:  parentID,
		Name:      name,
		NameEn:    name,
		Slug:      name,
		IsActive:  true,
	}
	for _, mutate := range mutators {
		mutate(c)
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func reload(t *testing.T, repo Repository, id uuid.UUID) *Category {
	t.Helper()
	c, err := repo.FindByID(context.Background(), id, true)
	require.NoError(t, err)
	return c
}

func TestCreateMaintainsParentChildrenCount(t *testing.T) {
	repo, _ := newTestRepository(t)

	parent := seedCategory(t, repo, "electronics", nil)
	assert.Equal(t, 0, reload(t, repo, parent.ID).ChildrenCount)

	seedCategory(t, repo, "phones", &parent.ID)
	seedCategory(t, repo, "laptops", &parent.ID)
	assert.Equal(t, 2, reload(t, repo, parent.ID).ChildrenCount)
}

func TestCreateRejectsMissingOrDeletedParent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	missing := uuid.New()
	err := repo.Create(ctx, &Category{
		BaseModel: common.BaseModel{ID: uuid.New()},
		ParentID:  &missing,
		Name:      "orphan", NameEn: "orphan", Slug: "orphan", IsActive: true,
	})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeInvalidParent))

	parent := seedCategory(t, repo, "doomed", nil)
	require.NoError(t, repo.SoftDelete(ctx, parent.ID, uuid.New()))

	err = repo.Create(ctx, &Category{
		BaseModel: common.BaseModel{ID: uuid.New()},
		ParentID:  &parent.ID,
		Name:      "child", NameEn: "child", Slug: "child", IsActive: true,
	})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeInvalidParent))
}

func TestCreateRejectsDuplicateSlugAmongLiveRows(t *testing.T) {
	repo, _ := newTestRepository(t)

	seedCategory(t, repo, "books", nil)
	err := repo.Create(context.Background(), &Category{
		BaseModel: common.BaseModel{ID: uuid.New()},
		Name:      "Books Again", NameEn: "Books Again", Slug: "Books", IsActive: true,
	})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeDuplicateSlug))
}

func TestSoftDeleteGuardedByLiveChildren(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	actor := uuid.New()

	a := seedCategory(t, repo, "a", nil)
	b := seedCategory(t, repo, "b", &a.ID)

	err := repo.SoftDelete(ctx, a.ID, actor)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeHasSubcategories))

	require.NoError(t, repo.SoftDelete(ctx, b.ID, actor))
	assert.Equal(t, 0, reload(t, repo, a.ID).ChildrenCount)

	require.NoError(t, repo.SoftDelete(ctx, a.ID, actor))
	deleted := reload(t, repo, a.ID)
	assert.True(t, deleted.IsDeleted())
	require.NotNil(t, deleted.DeletedBy)
	assert.Equal(t, actor, *deleted.DeletedBy)

	err = repo.SoftDelete(ctx, a.ID, actor)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeAlreadyDeleted))
}

func TestSoftDeletedRowsAreHiddenFromDefaultReads(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	c := seedCategory(t, repo, "hidden", nil)
	require.NoError(t, repo.SoftDelete(ctx, c.ID, uuid.New()))

	_, err := repo.FindByID(ctx, c.ID, false)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeCategoryNotFound))

	_, err = repo.FindBySlug(ctx, "hidden", false)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeCategoryNotFound))

	found, err := repo.FindByID(ctx, c.ID, true)
	require.NoError(t, err)
	assert.True(t, found.IsDeleted())
}

func TestRestoreRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	parent := seedCategory(t, repo, "parent", nil)
	child := seedCategory(t, repo, "child", &parent.ID)
	require.Equal(t, 1, reload(t, repo, parent.ID).ChildrenCount)

	require.NoError(t, repo.SoftDelete(ctx, child.ID, uuid.New()))
	require.Equal(t, 0, reload(t, repo, parent.ID).ChildrenCount)

	require.NoError(t, repo.Restore(ctx, child.ID))

	restored := reload(t, repo, child.ID)
	assert.False(t, restored.IsDeleted())
	assert.Nil(t, restored.DeletedBy)
	assert.Equal(t, 1, reload(t, repo, parent.ID).ChildrenCount)

	err := repo.Restore(ctx, child.ID)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeNotDeleted))
}

func TestRestoreBlockedWhileParentIsDeleted(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	actor := uuid.New()

	parent := seedCategory(t, repo, "parent", nil)
	child := seedCategory(t, repo, "child", &parent.ID)

	require.NoError(t, repo.SoftDelete(ctx, child.ID, actor))
	require.NoError(t, repo.SoftDelete(ctx, parent.ID, actor))

	err := repo.Restore(ctx, child.ID)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeInvalidParent))

	// Restoring bottom-up works.
	require.NoError(t, repo.Restore(ctx, parent.ID))
	require.NoError(t, repo.Restore(ctx, child.ID))
	assert.Equal(t, 1, reload(t, repo, parent.ID).ChildrenCount)
}

func TestSlugIsReusableAfterSoftDelete(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	original := seedCategory(t, repo, "phones", nil)
	require.NoError(t, repo.SoftDelete(ctx, original.ID, uuid.New()))

	// The slot is free again for a live row.
	seedCategory(t, repo, "phones", nil, func(c *Category) { c.Name = "Phones v2" })

	// The old row can no longer come back under the claimed slug.
	err := repo.Restore(ctx, original.ID)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeDuplicateSlug))
}

func TestReparentRebalancesCounters(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	p1 := seedCategory(t, repo, "p1", nil)
	p2 := seedCategory(t, repo, "p2", nil)
	child := seedCategory(t, repo, "child", &p1.ID)

	require.NoError(t, repo.Reparent(ctx, child.ID, &p1.ID, &p2.ID))
	assert.Equal(t, 0, reload(t, repo, p1.ID).ChildrenCount)
	assert.Equal(t, 1, reload(t, repo, p2.ID).ChildrenCount)
	assert.Equal(t, &p2.ID, reload(t, repo, child.ID).ParentID)

	// Moving to root level releases the parent slot.
	require.NoError(t, repo.Reparent(ctx, child.ID, &p2.ID, nil))
	assert.Equal(t, 0, reload(t, repo, p2.ID).ChildrenCount)
	assert.Nil(t, reload(t, repo, child.ID).ParentID)
}

func TestReparentRejectsDeletedTarget(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	target := seedCategory(t, repo, "target", nil)
	child := seedCategory(t, repo, "child", nil)
	require.NoError(t, repo.SoftDelete(ctx, target.ID, uuid.New()))

	err := repo.Reparent(ctx, child.ID, nil, &target.ID)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeInvalidParent))
}

func TestHardDeleteBlockedByAnyChildRow(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	parent := seedCategory(t, repo, "parent", nil)
	child := seedCategory(t, repo, "child", &parent.ID)

	// Even a soft-deleted child keeps the parent row pinned.
	require.NoError(t, repo.SoftDelete(ctx, child.ID, uuid.New()))
	err := repo.HardDelete(ctx, parent.ID)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeHasSubcategories))

	// Purging the soft-deleted child must not decrement the parent's
	// counter a second time.
	require.NoError(t, repo.HardDelete(ctx, child.ID))
	assert.Equal(t, 0, reload(t, repo, parent.ID).ChildrenCount)

	require.NoError(t, repo.HardDelete(ctx, parent.ID))
	_, err = repo.FindByID(ctx, parent.ID, true)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeCategoryNotFound))
}

func TestHardDeleteOfLiveChildDecrementsParent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	parent := seedCategory(t, repo, "parent", nil)
	child := seedCategory(t, repo, "child", &parent.ID)
	require.Equal(t, 1, reload(t, repo, parent.ID).ChildrenCount)

	require.NoError(t, repo.HardDelete(ctx, child.ID))
	assert.Equal(t, 0, reload(t, repo, parent.ID).ChildrenCount)
}

func TestFindAllFiltersAndOrdering(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	banana := seedCategory(t, repo, "banana", nil, func(c *Category) { c.SortOrder = 2 })
	apple := seedCategory(t, repo, "apple", nil, func(c *Category) { c.SortOrder = 1 })
	cherry := seedCategory(t, repo, "cherry", nil, func(c *Category) {
		c.SortOrder = 1
		c.IsActive = false
	})
	childA := seedCategory(t, repo, "alpha", &banana.ID)
	seedCategory(t, repo, "beta", &banana.ID, func(c *Category) { c.IsFeatured = true })

	t.Run("roots ordered by sort order then name", func(t *testing.T) {
		roots, err := repo.FindAll(ctx, ListCategoriesQuery{RootOnly: true})
		require.NoError(t, err)
		require.Len(t, roots, 3)
		assert.Equal(t, apple.ID, roots[0].ID)
		assert.Equal(t, cherry.ID, roots[1].ID)
		assert.Equal(t, banana.ID, roots[2].ID)
	})

	t.Run("scoped to a parent", func(t *testing.T) {
		children, err := repo.FindAll(ctx, ListCategoriesQuery{ParentID: &banana.ID})
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, childA.ID, children[0].ID)
	})

	t.Run("active filter", func(t *testing.T) {
		active := true
		rows, err := repo.FindAll(ctx, ListCategoriesQuery{RootOnly: true, IsActive: &active})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("featured filter", func(t *testing.T) {
		featured := true
		rows, err := repo.FindAll(ctx, ListCategoriesQuery{IsFeatured: &featured})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "beta", rows[0].Name)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		rows, err := repo.FindAll(ctx, ListCategoriesQuery{Search: "CHER"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, cherry.ID, rows[0].ID)
	})

	t.Run("deleted rows only appear when asked for", func(t *testing.T) {
		require.NoError(t, repo.SoftDelete(ctx, apple.ID, uuid.New()))

		rows, err := repo.FindAll(ctx, ListCategoriesQuery{RootOnly: true})
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		rows, err = repo.FindAll(ctx, ListCategoriesQuery{RootOnly: true, IncludeDeleted: true})
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})
}

func TestFindChildRowsFiltersInactiveBranches(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	parent := seedCategory(t, repo, "parent", nil)
	active := seedCategory(t, repo, "active", &parent.ID)
	seedCategory(t, repo, "inactive", &parent.ID, func(c *Category) { c.IsActive = false })

	rows, err := repo.FindChildRows(ctx, []uuid.UUID{parent.ID}, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, active.ID, rows[0].ID)

	rows, err = repo.FindChildRows(ctx, []uuid.UUID{parent.ID}, false)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.FindChildRows(ctx, nil, true)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAdjustProductsCount(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	c := seedCategory(t, repo, "gadgets", nil)
	require.NoError(t, repo.AdjustProductsCount(ctx, c.ID, 5))
	require.NoError(t, repo.AdjustProductsCount(ctx, c.ID, -2))
	assert.Equal(t, 3, reload(t, repo, c.ID).ProductsCount)

	err := repo.AdjustProductsCount(ctx, uuid.New(), 1)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeCategoryNotFound))
}

func TestRecountChildrenRepairsDrift(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	parent := seedCategory(t, repo, "parent", nil)
	seedCategory(t, repo, "one", &parent.ID)
	seedCategory(t, repo, "two", &parent.ID)

	// Simulate counter drift.
	require.NoError(t, db.Model(&Category{}).Where("id = ?", parent.ID).
		UpdateColumn("children_count", 99).Error)

	corrected, err := repo.RecountChildren(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, corrected)
	assert.Equal(t, 2, reload(t, repo, parent.ID).ChildrenCount)
}

func TestStatsAggregates(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	a := seedCategory(t, repo, "a", nil, func(c *Category) { c.IsFeatured = true })
	seedCategory(t, repo, "b", nil)
	c := seedCategory(t, repo, "c", nil, func(cat *Category) { cat.IsActive = false })
	d := seedCategory(t, repo, "d", nil)

	require.NoError(t, repo.AdjustProductsCount(ctx, a.ID, 10))
	require.NoError(t, repo.AdjustProductsCount(ctx, c.ID, 2))
	require.NoError(t, repo.SoftDelete(ctx, d.ID, uuid.New()))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalCategories)
	assert.Equal(t, int64(2), stats.ActiveCategories)
	assert.Equal(t, int64(1), stats.FeaturedCategories)
	assert.Equal(t, int64(1), stats.DeletedCategories)
	assert.Equal(t, int64(12), stats.TotalProducts)
	assert.Equal(t, int64(2), stats.CategoriesWithProducts)
	assert.InDelta(t, 4.0, stats.AverageProductsPerCategory, 0.001)
}

func TestUpdateReChecksSlugUniqueness(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	seedCategory(t, repo, "first", nil)
	second := seedCategory(t, repo, "second", nil)

	// Going straight through the repository, past any earlier service-side
	// check, must still be rejected inside the update transaction.
	err := repo.Update(ctx, second.ID, map[string]interface{}{"slug": "First"})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeDuplicateSlug))
	assert.Equal(t, "second", reload(t, repo, second.ID).Slug)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	c := seedCategory(t, repo, "old-name", nil)
	require.NoError(t, repo.Update(ctx, c.ID, map[string]interface{}{
		"name":       "New Name",
		"slug":       "New-Slug",
		"sort_order": 5,
	}))

	updated := reload(t, repo, c.ID)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "new-slug", updated.Slug)
	assert.Equal(t, 5, updated.SortOrder)

	err := repo.Update(ctx, uuid.New(), map[string]interface{}{"name": "x"})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, CodeCategoryNotFound))
}
