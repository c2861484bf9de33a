package reports

// Project is the top-level container. It owns its item tree exclusively.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Items       []Item    `json:"items"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

// AllReports flattens the item tree into its report leaves, preorder.
func (p *Project) AllReports() []Report {
	reports := []Report{}
	collectReports(p.Items, &reports)
	return reports
}

func collectReports(items []Item, out *[]Report) {
	for _, item := range items {
		switch {
		case item.Report != nil:
			*out = append(*out, *item.Report)
		case item.Folder != nil:
			collectReports(item.Folder.Children, out)
		}
	}
}
