package reports

import (
	"context"

	"aireporter/internal/domain/models/reports"
)

// StoreService owns the project tree. Lookups return (nil, nil) when the
// target does not exist; placement and update failures wrap domain.ErrNotFound.
type StoreService interface {
	// CreateProject prepends a new project with an empty item list
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*reports.Project, error)

	// ListProjects returns every project in display order
	ListProjects(ctx context.Context) ([]reports.Project, error)

	// GetProject returns nil if the project does not exist
	GetProject(ctx context.Context, projectID string) (*reports.Project, error)

	// UpdateProject applies the provided fields and refreshes updatedAt
	UpdateProject(ctx context.Context, projectID string, req *UpdateProjectRequest) (*reports.Project, error)

	// DeleteProject removes the project, its whole tree and every image
	// attached to its reports. A missing project is a no-op.
	DeleteProject(ctx context.Context, projectID string) error

	// AddReport creates a report under the given folder, or at the project root
	AddReport(ctx context.Context, req *AddReportRequest) (*reports.Report, error)

	// CreateFolder creates a folder under the given folder, or at the project root
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*reports.Folder, error)

	// UpdateReport merges only the fields present in req. Findings change
	// only when req.Findings is set.
	UpdateReport(ctx context.Context, projectID, reportID string, req *UpdateReportRequest) (*reports.Report, error)

	// UpdateFolder renames a folder
	UpdateFolder(ctx context.Context, projectID, folderID string, req *UpdateFolderRequest) (*reports.Folder, error)

	// DeleteItem removes the item and its subtree wherever it lives, along
	// with images of every removed report. A missing item is a no-op.
	DeleteItem(ctx context.Context, projectID, itemID string) error

	// MoveItem detaches an item and reattaches it at the front of
	// newParentID, or at the project root when newParentID is nil
	MoveItem(ctx context.Context, projectID, itemID string, newParentID *string) (*reports.Item, error)

	// FindReport searches the tree depth-first; nil if absent
	FindReport(ctx context.Context, projectID, reportID string) (*reports.Report, error)

	// Find returns any item by id; nil if absent
	Find(ctx context.Context, projectID, itemID string) (*reports.Item, error)

	// GetAllReports flattens a project into its reports, preorder
	GetAllReports(project *reports.Project) []reports.Report

	// ImportFindings converts an uploaded file to markdown and appends it to
	// the report's findings
	ImportFindings(ctx context.Context, projectID, reportID, filename string, content []byte) (*reports.Report, error)
}

// CreateProjectRequest represents a request to create a project
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// OptionalText tracks tri-state semantics for clearable text fields.
// Transport-agnostic; handlers map from httputil.OptionalString.
//   - Present=false: leave unchanged
//   - Present=true, Value=nil: clear
//   - Present=true, Value=&"text": set
type OptionalText struct {
	Present bool
	Value   *string
}

// UpdateProjectRequest represents a request to update a project
type UpdateProjectRequest struct {
	Name        *string      `json:"name,omitempty"`
	Description OptionalText `json:"-"`
}

// AddReportRequest represents a request to add a report
type AddReportRequest struct {
	ProjectID      string       `json:"-"`
	Name           string       `json:"name"`
	ParentFolderID *string      `json:"parentFolderId,omitempty"` // nil = project root
	Findings       string       `json:"findings,omitempty"`
	Markdown       string       `json:"markdown,omitempty"`
	Mode           reports.Mode `json:"mode,omitempty"`
}

// CreateFolderRequest represents a request to create a folder
type CreateFolderRequest struct {
	ProjectID      string  `json:"-"`
	Name           string  `json:"name"`
	ParentFolderID *string `json:"parentFolderId,omitempty"` // nil = project root
}

// UpdateReportRequest is a partial update; nil fields are left unchanged
type UpdateReportRequest struct {
	Name     *string       `json:"name,omitempty"`
	Findings *string       `json:"findings,omitempty"`
	Markdown *string       `json:"markdown,omitempty"`
	Mode     *reports.Mode `json:"mode,omitempty"`
}

// UpdateFolderRequest is a partial update; nil fields are left unchanged
type UpdateFolderRequest struct {
	Name *string `json:"name,omitempty"`
}
