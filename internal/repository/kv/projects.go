package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"aireporter/internal/domain/models/reports"
	"aireporter/internal/domain/repositories"
)

// ProjectRepository stores every project under the "projects" key.
type ProjectRepository struct {
	collection[reports.Project]
}

// NewProjectRepository creates a project repository over store
func NewProjectRepository(store repositories.KeyValueStore, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{collection[reports.Project]{
		store: store,
		key:   repositories.KeyProjects,
		decode: func(data []byte) ([]reports.Project, error) {
			return decodeProjects(data, logger)
		},
	}}
}

func (r *ProjectRepository) List(ctx context.Context) ([]reports.Project, error) {
	return r.list(ctx)
}

func (r *ProjectRepository) Update(ctx context.Context, fn repositories.ProjectsFn) error {
	return r.update(ctx, fn)
}

// storedProject is the on-disk shape, tolerant of the legacy layout in which
// a project carried a flat "reports" array instead of an "items" tree.
type storedProject struct {
	reports.Project
	Reports []reports.Report `json:"reports,omitempty"`
}

// decodeProjects decodes the collection and upgrades legacy records in place.
// Ids, timestamps and content carry over unchanged; the upgraded shape is
// persisted by the next write.
func decodeProjects(data []byte, logger *slog.Logger) ([]reports.Project, error) {
	projects := []reports.Project{}
	if len(data) == 0 {
		return projects, nil
	}

	var stored []storedProject
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}

	for _, sp := range stored {
		p := sp.Project
		if p.Items == nil {
			p.Items = []reports.Item{}
			if len(sp.Reports) > 0 {
				p.Items = migrateLegacyReports(sp.Reports)
				logger.Info("migrated legacy project layout", "project_id", p.ID, "reports", len(sp.Reports))
			}
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func migrateLegacyReports(legacy []reports.Report) []reports.Item {
	items := make([]reports.Item, 0, len(legacy))
	for i := range legacy {
		r := legacy[i]
		items = append(items, reports.ReportItem(&r))
	}
	return items
}
