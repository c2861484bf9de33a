package reports

import (
	"encoding/json"
	"fmt"
)

// ItemType is the discriminator of the Folder | Report union.
type ItemType string

const (
	ItemTypeFolder ItemType = "folder"
	ItemTypeReport ItemType = "report"
)

// Item is a node of a project tree. Exactly one of Folder or Report is set.
// Children are owned by value so a node can never appear under two parents.
type Item struct {
	Folder *Folder
	Report *Report
}

// Folder groups reports and other folders to arbitrary depth.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Children  []Item    `json:"children"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// Report is a leaf holding the user's findings and the generated markdown.
type Report struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Findings  string    `json:"findings"`
	Markdown  string    `json:"markdown"`
	Mode      Mode      `json:"mode,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// FolderItem wraps a folder as a tree node.
func FolderItem(f *Folder) Item { return Item{Folder: f} }

// ReportItem wraps a report as a tree node.
func ReportItem(r *Report) Item { return Item{Report: r} }

// ID returns the node identifier regardless of variant.
func (it Item) ID() string {
	switch {
	case it.Folder != nil:
		return it.Folder.ID
	case it.Report != nil:
		return it.Report.ID
	}
	return ""
}

// Name returns the node display name regardless of variant.
func (it Item) Name() string {
	switch {
	case it.Folder != nil:
		return it.Folder.Name
	case it.Report != nil:
		return it.Report.Name
	}
	return ""
}

// Type returns the union discriminator.
func (it Item) Type() ItemType {
	if it.Folder != nil {
		return ItemTypeFolder
	}
	return ItemTypeReport
}

type folderJSON struct {
	Type ItemType `json:"type"`
	*Folder
}

type reportJSON struct {
	Type ItemType `json:"type"`
	*Report
}

func (it Item) MarshalJSON() ([]byte, error) {
	switch {
	case it.Folder != nil:
		f := *it.Folder
		if f.Children == nil {
			f.Children = []Item{}
		}
		return json.Marshal(folderJSON{Type: ItemTypeFolder, Folder: &f})
	case it.Report != nil:
		return json.Marshal(reportJSON{Type: ItemTypeReport, Report: it.Report})
	}
	return nil, fmt.Errorf("empty item")
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var head struct {
		Type ItemType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch head.Type {
	case ItemTypeFolder:
		var f Folder
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		if f.Children == nil {
			f.Children = []Item{}
		}
		*it = Item{Folder: &f}
	case ItemTypeReport, "":
		// Untagged nodes only come from the legacy flat layout, which held reports
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*it = Item{Report: &r}
	default:
		return fmt.Errorf("unknown item type %q", head.Type)
	}
	return nil
}
