// File: internal/category/service.go
package category

import (
	"context"
	"strconv"
	"strings"

	"catalog_hierarchy_backend/internal/config"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Service defines the interface for category business logic. It owns the
// structural invariants of the taxonomy tree (acyclicity, parent liveness,
// slug uniqueness, children guards) and the versioned read-through cache.
type Service interface {
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*Category, error)
	RestoreCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	PermanentDeleteCategory(ctx context.Context, id uuid.UUID) error

	GetCategory(ctx context.Context, idOrSlug string) (*CategoryDetailResponse, error)
	ListCategories(ctx context.Context, query ListCategoriesQuery) ([]CategoryResponse, error)
	GetCategoryTree(ctx context.Context) ([]*TreeNodeResponse, error)
	GetCategoryDescendants(ctx context.Context, id uuid.UUID, includeSelf bool) ([]uuid.UUID, error)

	IncrementProductsCount(ctx context.Context, id uuid.UUID, delta int) error
	UpdateCategoryStats(ctx context.Context, id uuid.UUID) error
	GetStats(ctx context.Context) (*StatsResponse, error)
}

type service struct {
	repo   Repository
	cache  *CoherenceManager
	logger *zap.Logger
	config *config.Config
}

// NewService creates a new category service.
func NewService(repo Repository, cacheManager *CoherenceManager, logger *zap.Logger, cfg *config.Config) Service {
	return &service{
		repo:   repo,
		cache:  cacheManager,
		logger: logger,
		config: cfg,
	}
}

// --- Mutations ---

func (s *service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	finalSlug := strings.TrimSpace(req.Slug)
	if finalSlug == "" {
		finalSlug = slug.Make(req.NameEn)
	} else {
		finalSlug = slug.Make(finalSlug)
	}

	category := &Category{
		ParentID:    req.ParentID,
		Name:        strings.TrimSpace(req.Name),
		NameEn:      strings.TrimSpace(req.NameEn),
		Slug:        finalSlug,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    true,
		IsFeatured:  false,
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if req.IsFeatured != nil {
		category.IsFeatured = *req.IsFeatured
	}

	if err := s.repo.Create(ctx, category); err != nil {
		s.logger.Error("Failed to create category", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}
	s.cache.Bump(ctx, CacheNamespace)
	s.logger.Info("Category created successfully",
		zap.String("id", category.ID.String()), zap.String("slug", category.Slug))
	return category, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*Category, error) {
	existing, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	// Validate the field changes before touching the tree so a rejectable
	// patch fails with nothing committed.
	updates, err := s.buildFieldUpdates(ctx, existing, req)
	if err != nil {
		return nil, err
	}

	mutated := false
	// Once any step has committed, cached reads must be retired even if a
	// later step fails; the deferred bump covers every exit path.
	defer func() {
		if mutated {
			s.cache.Bump(ctx, CacheNamespace)
		}
	}()

	if reparent, newParentID := reparentTarget(existing, req); reparent {
		if newParentID != nil {
			if *newParentID == id {
				return nil, newSelfParentError()
			}
			cyclic, err := s.wouldCreateCycle(ctx, id, *newParentID)
			if err != nil {
				return nil, err
			}
			if cyclic {
				return nil, newCycleError()
			}
		}
		if err := s.repo.Reparent(ctx, id, existing.ParentID, newParentID); err != nil {
			s.logger.Error("Failed to reparent category", zap.Error(err), zap.String("id", id.String()))
			return nil, err
		}
		mutated = true
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			s.logger.Error("Failed to update category", zap.Error(err), zap.String("id", id.String()))
			return nil, err
		}
		mutated = true
	}

	updated, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if mutated {
		s.logger.Info("Category updated successfully", zap.String("id", id.String()))
	}
	return updated, nil
}

// reparentTarget decides whether the patch moves the category and where to.
func reparentTarget(existing *Category, req UpdateCategoryRequest) (bool, *uuid.UUID) {
	if req.ParentID != nil {
		if existing.ParentID != nil && *existing.ParentID == *req.ParentID {
			return false, nil
		}
		return true, req.ParentID
	}
	if req.RemoveParent && existing.ParentID != nil {
		return true, nil
	}
	return false, nil
}

// wouldCreateCycle walks the ancestor chain upward from the candidate parent
// and reports whether the moved category appears on it. Exceeding the
// configured depth bound means the stored chain already loops, which is
// treated the same way.
func (s *service) wouldCreateCycle(ctx context.Context, movedID, candidateParentID uuid.UUID) (bool, error) {
	currentID := candidateParentID
	for depth := 0; depth < s.config.MaxCategoryDepth; depth++ {
		if currentID == movedID {
			return true, nil
		}
		ancestor, err := s.repo.FindByID(ctx, currentID, true)
		if err != nil {
			if hasCode(err, CodeCategoryNotFound) {
				return false, nil
			}
			return false, err
		}
		if ancestor.ParentID == nil {
			return false, nil
		}
		currentID = *ancestor.ParentID
	}
	return true, nil
}

func (s *service) buildFieldUpdates(ctx context.Context, existing *Category, req UpdateCategoryRequest) (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.NameEn != nil {
		updates["name_en"] = strings.TrimSpace(*req.NameEn)
	}
	if req.Slug != nil {
		newSlug := slug.Make(*req.Slug)
		if newSlug != existing.Slug {
			taken, err := s.repo.SlugTaken(ctx, newSlug, &existing.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, newDuplicateSlugError(newSlug)
			}
			updates["slug"] = newSlug
		}
	}
	if req.Description != nil {
		updates["description"] = req.Description
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	return updates, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*Category, error) {
	if err := s.repo.SoftDelete(ctx, id, actorID); err != nil {
		s.logger.Warn("Failed to delete category", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	deleted, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	s.cache.Bump(ctx, CacheNamespace)
	s.logger.Info("Category deleted successfully",
		zap.String("id", id.String()), zap.String("deleted_by", actorID.String()))
	return deleted, nil
}

func (s *service) RestoreCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	if err := s.repo.Restore(ctx, id); err != nil {
		s.logger.Warn("Failed to restore category", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	restored, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.cache.Bump(ctx, CacheNamespace)
	s.logger.Info("Category restored successfully", zap.String("id", id.String()))
	return restored, nil
}

func (s *service) PermanentDeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.HardDelete(ctx, id); err != nil {
		s.logger.Warn("Failed to permanently delete category", zap.Error(err), zap.String("id", id.String()))
		return err
	}
	s.cache.Bump(ctx, CacheNamespace)
	s.logger.Info("Category permanently deleted", zap.String("id", id.String()))
	return nil
}

func (s *service) IncrementProductsCount(ctx context.Context, id uuid.UUID, delta int) error {
	if err := s.repo.AdjustProductsCount(ctx, id, delta); err != nil {
		s.logger.Warn("Failed to adjust products count",
			zap.Error(err), zap.String("id", id.String()), zap.Int("delta", delta))
		return err
	}
	s.cache.Bump(ctx, CacheNamespace)
	return nil
}

func (s *service) UpdateCategoryStats(ctx context.Context, id uuid.UUID) error {
	corrected, err := s.repo.RecountChildren(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to recount children", zap.Error(err), zap.String("id", id.String()))
		return err
	}
	s.cache.Bump(ctx, CacheNamespace)
	s.logger.Debug("Category stats recomputed",
		zap.String("id", id.String()), zap.Int("children_count", corrected))
	return nil
}

// --- Reads (read-through versioned cache) ---

func (s *service) GetCategory(ctx context.Context, idOrSlug string) (*CategoryDetailResponse, error) {
	normalized := strings.ToLower(strings.TrimSpace(idOrSlug))
	key := s.cache.Key(ctx, CacheNamespace, "detail", map[string]string{"id_or_slug": normalized})

	var cached CategoryDetailResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	var cat *Category
	var err error
	if id, parseErr := uuid.Parse(normalized); parseErr == nil {
		cat, err = s.repo.FindByID(ctx, id, false)
	} else {
		cat, err = s.repo.FindBySlug(ctx, normalized, false)
	}
	if err != nil {
		return nil, err
	}

	children, err := s.repo.FindChildren(ctx, cat.ID)
	if err != nil {
		return nil, err
	}
	breadcrumb, err := s.breadcrumb(ctx, cat)
	if err != nil {
		return nil, err
	}

	detail := &CategoryDetailResponse{
		CategoryResponse: ToCategoryResponse(cat),
		Children:         make([]CategoryResponse, len(children)),
		Breadcrumb:       breadcrumb,
	}
	for i := range children {
		detail.Children[i] = ToCategoryResponse(&children[i])
	}

	s.cache.SetJSON(ctx, key, detail, s.config.CacheDetailTTL)
	return detail, nil
}

// breadcrumb collects the ancestor chain ordered from root down to cat.
func (s *service) breadcrumb(ctx context.Context, cat *Category) ([]BreadcrumbItem, error) {
	chain := []BreadcrumbItem{ToBreadcrumbItem(cat)}
	current := cat
	for depth := 0; current.ParentID != nil && depth < s.config.MaxCategoryDepth; depth++ {
		parent, err := s.repo.FindByID(ctx, *current.ParentID, true)
		if err != nil {
			if hasCode(err, CodeCategoryNotFound) {
				break
			}
			return nil, err
		}
		chain = append(chain, ToBreadcrumbItem(parent))
		current = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (s *service) ListCategories(ctx context.Context, query ListCategoriesQuery) ([]CategoryResponse, error) {
	key := s.cache.Key(ctx, CacheNamespace, "list", listCacheParams(query))

	var cached []CategoryResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	categories, err := s.repo.FindAll(ctx, query)
	if err != nil {
		s.logger.Error("Failed to list categories", zap.Error(err))
		return nil, err
	}
	responses := make([]CategoryResponse, len(categories))
	for i := range categories {
		responses[i] = ToCategoryResponse(&categories[i])
	}

	s.cache.SetJSON(ctx, key, responses, s.config.CacheListTTL)
	return responses, nil
}

func listCacheParams(query ListCategoriesQuery) map[string]string {
	params := map[string]string{
		"search": strings.ToLower(strings.TrimSpace(query.Search)),
	}
	if query.ParentID != nil {
		params["parent_id"] = query.ParentID.String()
	}
	if query.RootOnly {
		params["root_only"] = "true"
	}
	if query.IsActive != nil {
		params["is_active"] = strconv.FormatBool(*query.IsActive)
	}
	if query.IsFeatured != nil {
		params["is_featured"] = strconv.FormatBool(*query.IsFeatured)
	}
	if query.IncludeDeleted {
		params["include_deleted"] = "true"
	}
	return params
}

func (s *service) GetCategoryTree(ctx context.Context) ([]*TreeNodeResponse, error) {
	key := s.cache.Key(ctx, CacheNamespace, "tree", nil)

	var cached []*TreeNodeResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	categories, err := s.repo.FindAll(ctx, ListCategoriesQuery{})
	if err != nil {
		s.logger.Error("Failed to load categories for tree", zap.Error(err))
		return nil, err
	}
	tree := BuildTree(categories, nil)

	s.cache.SetJSON(ctx, key, tree, s.config.CacheTreeTTL)
	return tree, nil
}

func (s *service) GetStats(ctx context.Context) (*StatsResponse, error) {
	key := s.cache.Key(ctx, CacheNamespace, "stats", nil)

	var cached StatsResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		s.logger.Error("Failed to compute category stats", zap.Error(err))
		return nil, err
	}

	s.cache.SetJSON(ctx, key, stats, s.config.CacheDetailTTL)
	return stats, nil
}
