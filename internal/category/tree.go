// File: internal/category/tree.go
package category

import (
	"sort"

	"github.com/google/uuid"
)

// rootSentinel keys the nil-parent group when records are indexed by parent.
const rootSentinel = "root"

func parentKey(parentID *uuid.UUID) string {
	if parentID == nil {
		return rootSentinel
	}
	return parentID.String()
}

// BuildTree assembles a flat list of categories into nested nodes rooted at
// rootID (nil for the whole forest). The input is not mutated. Construction
// is iterative with an explicit work list, so a deep or malformed hierarchy
// cannot exhaust the stack; rows caught in a parent cycle are unreachable
// from the root and are simply left out.
func BuildTree(categories []Category, rootID *uuid.UUID) []*TreeNodeResponse {
	childrenOf := make(map[string][]*Category, len(categories))
	for i := range categories {
		key := parentKey(categories[i].ParentID)
		childrenOf[key] = append(childrenOf[key], &categories[i])
	}
	for _, group := range childrenOf {
		sortSiblings(group)
	}

	rootKey := rootSentinel
	if rootID != nil {
		rootKey = rootID.String()
	}

	type frame struct {
		node *TreeNodeResponse
		id   uuid.UUID
	}

	roots := make([]*TreeNodeResponse, 0, len(childrenOf[rootKey]))
	work := make([]frame, 0, len(categories))
	for _, c := range childrenOf[rootKey] {
		node := newTreeNode(c)
		roots = append(roots, node)
		work = append(work, frame{node: node, id: c.ID})
	}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		for _, c := range childrenOf[f.id.String()] {
			child := newTreeNode(c)
			f.node.Children = append(f.node.Children, child)
			work = append(work, frame{node: child, id: c.ID})
		}
	}
	return roots
}

func newTreeNode(c *Category) *TreeNodeResponse {
	return &TreeNodeResponse{
		CategoryResponse: ToCategoryResponse(c),
		Children:         []*TreeNodeResponse{},
	}
}

// sortSiblings orders a sibling group by (sort_order, name) so listings are
// deterministic even when sort_order values collide.
func sortSiblings(group []*Category) {
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].SortOrder != group[j].SortOrder {
			return group[i].SortOrder < group[j].SortOrder
		}
		return group[i].Name < group[j].Name
	})
}
