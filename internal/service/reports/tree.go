package reports

import (
	"strings"

	"aireporter/internal/domain/models/reports"
)

// Tree helpers operate on a freshly decoded collection, so matched nodes are
// replaced in place. Every walk stops at the first match: ids are unique
// across the whole store.

// findItem returns the first node with id, searching depth-first in preorder.
func findItem(items []reports.Item, id string) *reports.Item {
	for i := range items {
		if items[i].ID() == id {
			return &items[i]
		}
		if f := items[i].Folder; f != nil {
			if found := findItem(f.Children, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// replaceItem swaps the first node with id for fn(node).
func replaceItem(items []reports.Item, id string, fn func(reports.Item) reports.Item) bool {
	for i := range items {
		if items[i].ID() == id {
			items[i] = fn(items[i])
			return true
		}
		if f := items[i].Folder; f != nil && replaceItem(f.Children, id, fn) {
			return true
		}
	}
	return false
}

// removeItem detaches the first node with id, wherever it is nested. It
// returns the resulting list and the removed subtree, or nil if absent.
func removeItem(items []reports.Item, id string) ([]reports.Item, *reports.Item) {
	for i := range items {
		if items[i].ID() == id {
			removed := items[i]
			out := make([]reports.Item, 0, len(items)-1)
			out = append(out, items[:i]...)
			out = append(out, items[i+1:]...)
			return out, &removed
		}
		if f := items[i].Folder; f != nil {
			if children, removed := removeItem(f.Children, id); removed != nil {
				folder := *f
				folder.Children = children
				items[i] = reports.FolderItem(&folder)
				return items, removed
			}
		}
	}
	return items, nil
}

// parentOrRoot treats a blank parent id as the project root.
func parentOrRoot(parentID *string) *string {
	if parentID != nil && strings.TrimSpace(*parentID) == "" {
		return nil
	}
	return parentID
}

// insertItem prepends item to the children of parentID, or to the project
// root when parentID is nil. It fails if the parent is missing or not a folder.
func insertItem(project *reports.Project, parentID *string, item reports.Item) bool {
	if parentID == nil {
		project.Items = append([]reports.Item{item}, project.Items...)
		return true
	}

	parent := findItem(project.Items, *parentID)
	if parent == nil || parent.Folder == nil {
		return false
	}
	parent.Folder.Children = append([]reports.Item{item}, parent.Folder.Children...)
	return true
}

// reportIDs lists every report id in the subtree rooted at item.
func reportIDs(item reports.Item) []string {
	if item.Report != nil {
		return []string{item.Report.ID}
	}
	var ids []string
	if item.Folder != nil {
		for _, child := range item.Folder.Children {
			ids = append(ids, reportIDs(child)...)
		}
	}
	return ids
}

// subtreeContains reports whether id is item itself or one of its descendants.
func subtreeContains(item reports.Item, id string) bool {
	if item.ID() == id {
		return true
	}
	if item.Folder != nil {
		return findItem(item.Folder.Children, id) != nil
	}
	return false
}

// collectIDs records every node id in items.
func collectIDs(items []reports.Item, seen map[string]struct{}) {
	for _, item := range items {
		seen[item.ID()] = struct{}{}
		if item.Folder != nil {
			collectIDs(item.Folder.Children, seen)
		}
	}
}

func projectIndex(projects []reports.Project, id string) int {
	for i := range projects {
		if projects[i].ID == id {
			return i
		}
	}
	return -1
}
