package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"aireporter/internal/config"
	"aireporter/internal/domain"
	"aireporter/internal/domain/models/reports"
	"aireporter/internal/domain/repositories"
	reportsSvc "aireporter/internal/domain/services/reports"
)

// ImageCleaner removes images that belong to deleted reports. Detach runs
// inside the tree transaction; file removal runs after it commits.
type ImageCleaner interface {
	DetachForReports(ctx context.Context, reportIDs ...string) ([]reports.StoredImage, error)
	RemoveFiles(ctx context.Context, images []reports.StoredImage)
}

// FindingsConverter turns an uploaded file into markdown.
type FindingsConverter interface {
	Convert(ctx context.Context, filename string, content []byte) (string, error)
}

type storeService struct {
	projects  repositories.ProjectRepository
	txManager repositories.TransactionManager
	images    ImageCleaner
	converter FindingsConverter
	logger    *slog.Logger
}

// NewStoreService creates the hierarchical store service
func NewStoreService(
	projects repositories.ProjectRepository,
	txManager repositories.TransactionManager,
	images ImageCleaner,
	converter FindingsConverter,
	logger *slog.Logger,
) reportsSvc.StoreService {
	return &storeService{
		projects:  projects,
		txManager: txManager,
		images:    images,
		converter: converter,
		logger:    logger,
	}
}

// newID returns a uuid that no node or project in the collection uses yet.
func newID(projects []reports.Project) string {
	seen := make(map[string]struct{})
	for _, p := range projects {
		seen[p.ID] = struct{}{}
		collectIDs(p.Items, seen)
	}
	for {
		id := uuid.New().String()
		if _, taken := seen[id]; !taken {
			return id
		}
	}
}

func projectNotFound(projectID string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("project %q not found", projectID)}
}

func (s *storeService) CreateProject(ctx context.Context, req *reportsSvc.CreateProjectRequest) (*reports.Project, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxProjectNameLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxProjectDescriptionLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var created reports.Project
	err := s.projects.Update(ctx, func(projects []reports.Project) ([]reports.Project, error) {
		now := reports.Now()
		created = reports.Project{
			ID:          newID(projects),
			Name:        req.Name,
			Description: req.Description,
			Items:       []reports.Item{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return append([]reports.Project{created}, projects...), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created", "id", created.ID, "name", created.Name)
	return &created, nil
}

func (s *storeService) ListProjects(ctx context.Context) ([]reports.Project, error) {
	return s.projects.List(ctx)
}

func (s *storeService) GetProject(ctx context.Context, projectID string) (*reports.Project, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, err
	}
	if i := projectIndex(projects, projectID); i >= 0 {
		return &projects[i], nil
	}
	return nil, nil
}

func (s *storeService) UpdateProject(ctx context.Context, projectID string, req *reportsSvc.UpdateProjectRequest) (*reports.Project, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxProjectNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if v := req.Description.Value; v != nil && len(*v) > config.MaxProjectDescriptionLength {
		return nil, fmt.Errorf("%w: description: the length must be no more than %d", domain.ErrValidation, config.MaxProjectDescriptionLength)
	}

	var updated reports.Project
	err := s.projects.Update(ctx, func(projects []reports.Project) ([]reports.Project, error) {
		i := projectIndex(projects, projectID)
		if i < 0 {
			return nil, projectNotFound(projectID)
		}

		p := projects[i]
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description.Present {
			p.Description = ""
			if req.Description.Value != nil {
				p.Description = strings.TrimSpace(*req.Description.Value)
			}
		}
		p.UpdatedAt = reports.Now()
		projects[i] = p
		updated = p
		return projects, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project updated", "id", projectID, "name", updated.Name)
	return &updated, nil
}

func (s *storeService) DeleteProject(ctx context.Context, projectID string) error {
	var detached []reports.StoredImage
	var found bool

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var ids []string
		err := s.projects.Update(ctx, func(projects []reports.Project) ([]reports.Project, error) {
			i := projectIndex(projects, projectID)
			if i < 0 {
				return projects, nil
			}
			found = true
			for _, r := range projects[i].AllReports() {
				ids = append(ids, r.ID)
			}
			return append(projects[:i:i], projects[i+1:]...), nil
		})
		if err != nil || len(ids) == 0 {
			return err
		}

		detached, err = s.images.DetachForReports(ctx, ids...)
		return err
	})
	if err != nil {
		return err
	}

	s.images.RemoveFiles(ctx, detached)
	if found {
		s.logger.Info("project deleted", "id", projectID, "images_removed", len(detached))
	}
	return nil
}

func (s *storeService) AddReport(ctx context.Context, req *reportsSvc.AddReportRequest) (*reports.Report, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.ParentFolderID = parentOrRoot(req.ParentFolderID)
	if req.Mode == "" {
		req.Mode = reports.ModeStandard
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxReportNameLength)),
		validation.Field(&req.Findings, validation.Length(0, config.MaxFindingsLength)),
		validation.Field(&req.Mode, validation.In(reports.Modes...)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var created reports.Report
	err := s.projects.Update(ctx, func(projects []reports.Project) ([]reports.Project, error) {
		i := projectIndex(projects, req.ProjectID)
		if i < 0 {
			return nil, projectNotFound(req.ProjectID)
		}

		now := reports.Now()
		created = reports.Report{
			ID:        newID(projects),
			Name:      req.Name,
			Findings:  req.Findings,
			Markdown:  req.Markdown,
			Mode:      req.Mode,
			CreatedAt: now,
			UpdatedAt: now,
		}
		r := created
		if !insertItem(&projects[i], req.ParentFolderID, reports.ReportItem(&r)) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("parent folder %q not found", *req.ParentFolderID)}
		}
		projects[i].UpdatedAt = now
		return projects, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("report created",
		"id", created.ID,
		"name", created.Name,
		"project_id", req.ProjectID,
		"parent_folder_id", req.ParentFolderID,
	)
	return &created, nil
}

func (s *storeService) CreateFolder(ctx context.Context, req *reportsSvc.CreateFolderRequest) (*reports.Folder, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.ParentFolderID = parentOrRoot(req.ParentFolderID)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxFolderNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var created reports.Folder
	err := s.projects.Update(ctx, func(projects []reports.Project) ([]reports.Project, error) {
		i := projectIndex(projects, req.ProjectID)
		if i < 0 {
			return nil, projectNotFound(req.ProjectID)
		}

		now := reports.Now()
		created = reports.Folder{
			ID:        newID(projects),
			Name:      req.Name,
			Children:  []reports.Item{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		f := created
		f.Children = []reports.Item{}
		if !insertItem(&projects[i], req.ParentFolderID, reports.FolderItem(&f)) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("parent folder %q not found", *req.ParentFolderID)}
		}
		projects[i].UpdatedAt = now
		return projects, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"id", created.ID,
		"name", created.Name,
		"project_id", req.ProjectID,
		"parent_folder_id", req.ParentFolderID,
	)
	return &created, nil
}

func (s *storeService) UpdateReport(ctx context.Context, projectID, reportID string, req *reportsSvc.UpdateReportRequest) (*reports.Report, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxReportNameLength)),
		validation.Field(&req.Findings, validation.Length(0, config.MaxFindingsLength)),
		validation.Field(&req.Mode, validation.In(reports.Modes...)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	updated, err := s.mutateReport(ctx, projectID, reportID, func(r *reports.Report) {
		if req.Name != nil {
			r.Name = *req.Name
		}
		if req.Findings != nil {
			r.Findings = *req.Findings
		}
		if req.Markdown != nil {
			r.Markdown = *req.Markdown
		}
		if req.Mode != nil {
			r.Mode = *req.Mode
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("report updated",
		"id", reportID,
		"project_id", projectID,
		"findings_changed", req.Findings != nil,
		"markdown_changed", req.Markdown != nil,
	)
	return updated, nil
}

// mutateReport applies fn to a copy of the report and swaps it into the tree,
// refreshing the report's and the project's updatedAt.
func (s *storeService) mutateReport(ctx context.Context, projectID, reportID string, fn func(r *reports.Report)) (*reports.Report, error) {
	var updated *reports.Report
	err := s.projects.Update(ctx, func(projects []reports.Project) ([]reports.Project, error) {
		i := projectIndex(projects, projectID)
		if i < 0 {
			return nil, projectNotFound(projectID)
		}

		now := reports.Now()
		replaceItem(projects[i].Items, reportID, func(item reports.Item) reports.Item {
			if item.Report == nil {
				return item
			}
			r := *item.Report
			fn(&r)
			r.UpdatedAt = now
			updated = &r
			return reports.ReportItem(&r)
		})
		if updated == nil {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("report %q not found", reportID)}
		}
		projects[i].UpdatedAt = now
		return projects, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *storeService) UpdateFolder(ctx context.Context, projectID, folderID string, req *reportsSvc.UpdateFolderRequest) (*reports.Folder, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxFolderNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var updated reports.Folder
	err := s.projects.Update(ctx, func(projects []reports.Project) ([]reports.Project, error) {
		i := projectIndex(projects, projectID)
		if i < 0 {
			return nil, projectNotFound(projectID)
		}

		now := reports.Now()
		replaceItem(projects[i].Items, folderID, func(item reports.Item) reports.Item {
			if item.Folder == nil {
				return item
			}
			f := *item.Folder
			if req.Name != nil {
				f.Name = *req.Name
			}
			f.UpdatedAt = now
			updated = f
			return reports.FolderItem(&f)
		})
		if updated.ID == "" {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %q not found", folderID)}
		}
		projects[i].UpdatedAt = now
		return projects, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder updated", "id", folderID, "name", updated.Name, "project_id", projectID)
	return &updated, nil
}

func (s *storeService) DeleteItem(ctx context.Context, projectID, itemID string) error {
	var removed *reports.Item
	var detached []reports.StoredImage

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		err := s.projects.Update(ctx, func(projects []reports.Project) ([]reports.Project, error) {
			i := projectIndex(projects, projectID)
			if i < 0 {
				return projects, nil
			}
			projects[i].Items, removed = removeItem(projects[i].Items, itemID)
			if removed != nil {
				projects[i].UpdatedAt = reports.Now()
			}
			return projects, nil
		})
		if err != nil || removed == nil {
			return err
		}

		ids := reportIDs(*removed)
		if len(ids) == 0 {
			return nil
		}
		detached, err = s.images.DetachForReports(ctx, ids...)
		return err
	})
	if err != nil {
		return err
	}
	if removed == nil {
		return nil
	}

	s.images.RemoveFiles(ctx, detached)
	s.logger.Info("item deleted",
		"id", itemID,
		"type", removed.Type(),
		"project_id", projectID,
		"reports_removed", len(reportIDs(*removed)),
		"images_removed", len(detached),
	)
	return nil
}

func (s *storeService) MoveItem(ctx context.Context, projectID, itemID string, newParentID *string) (*reports.Item, error) {
	newParentID = parentOrRoot(newParentID)

	var moved reports.Item
	err := s.projects.Update(ctx, func(projects []reports.Project) ([]reports.Project, error) {
		i := projectIndex(projects, projectID)
		if i < 0 {
			return nil, projectNotFound(projectID)
		}

		item := findItem(projects[i].Items, itemID)
		if item == nil {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("item %q not found", itemID)}
		}
		if newParentID != nil && subtreeContains(*item, *newParentID) {
			return nil, &domain.ValidationError{Message: "cannot move a folder into itself or one of its descendants"}
		}

		var removed *reports.Item
		projects[i].Items, removed = removeItem(projects[i].Items, itemID)
		moved = *removed
		if !insertItem(&projects[i], newParentID, moved) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("parent folder %q not found", *newParentID)}
		}
		projects[i].UpdatedAt = reports.Now()
		return projects, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item moved", "id", itemID, "project_id", projectID, "parent_folder_id", newParentID)
	return &moved, nil
}

func (s *storeService) FindReport(ctx context.Context, projectID, reportID string) (*reports.Report, error) {
	item, err := s.Find(ctx, projectID, reportID)
	if err != nil || item == nil || item.Report == nil {
		return nil, err
	}
	return item.Report, nil
}

func (s *storeService) Find(ctx context.Context, projectID, itemID string) (*reports.Item, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil || project == nil {
		return nil, err
	}
	return findItem(project.Items, itemID), nil
}

func (s *storeService) GetAllReports(project *reports.Project) []reports.Report {
	if project == nil {
		return []reports.Report{}
	}
	return project.AllReports()
}

func (s *storeService) ImportFindings(ctx context.Context, projectID, reportID, filename string, content []byte) (*reports.Report, error) {
	markdown, err := s.converter.Convert(ctx, filename, content)
	if err != nil {
		return nil, err
	}

	if len(markdown) > config.MaxFindingsLength {
		return nil, fmt.Errorf("%w: imported findings exceed %d characters", domain.ErrValidation, config.MaxFindingsLength)
	}

	updated, err := s.mutateReport(ctx, projectID, reportID, func(r *reports.Report) {
		if strings.TrimSpace(r.Findings) == "" {
			r.Findings = markdown
			return
		}
		r.Findings = strings.TrimRight(r.Findings, "\n") + "\n\n" + markdown
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("findings imported", "report_id", reportID, "file", filename, "bytes", len(content))
	return updated, nil
}
