// File: internal/category/descendants.go
package category

import (
	"context"

	"github.com/google/uuid"
)

// GetCategoryDescendants returns the ids of the entire subtree under id,
// walking only live, active rows. The expansion is breadth-first over whole
// frontiers, one repository round-trip per depth level instead of one per
// node.
//
// A missing, deleted or inactive root id is not an error here: callers use
// this set for cascading work ("all products under this branch") and want a
// safe no-op superset, so the result is just the input id itself (or empty
// without includeSelf).
func (s *service) GetCategoryDescendants(ctx context.Context, id uuid.UUID, includeSelf bool) ([]uuid.UUID, error) {
	result := make([]uuid.UUID, 0, 8)
	if includeSelf {
		result = append(result, id)
	}

	seen := map[uuid.UUID]bool{id: true}
	frontier := []uuid.UUID{id}
	for len(frontier) > 0 {
		rows, err := s.repo.FindChildRows(ctx, frontier, true)
		if err != nil {
			return nil, err
		}
		next := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			if seen[row.ID] {
				// A row already visited means the stored parent
				// links loop; stop following that branch.
				continue
			}
			seen[row.ID] = true
			result = append(result, row.ID)
			next = append(next, row.ID)
		}
		frontier = next
	}
	return result, nil
}
