package kv

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aireporter/internal/domain/models/reports"
	"aireporter/internal/domain/repositories"
	"aireporter/internal/repository/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const legacyProjects = `[
  {
    "id": "p1",
    "name": "Acme",
    "createdAt": 1700000000000,
    "updatedAt": 1700000005000,
    "reports": [
      {"id": "r1", "name": "Login Bug", "findings": "SQLi on /login", "markdown": "# SQLi", "createdAt": 1700000001000, "updatedAt": 1700000002000},
      {"id": "r2", "name": "XSS", "findings": "reflected", "markdown": "", "mode": "hackerone", "createdAt": 1700000003000, "updatedAt": 1700000004000}
    ]
  }
]`

func TestProjectRepository_MigratesLegacyReports(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Put(ctx, repositories.KeyProjects, []byte(legacyProjects)))

	repo := NewProjectRepository(store, discardLogger())
	projects, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	items := projects[0].Items
	require.Len(t, items, 2)

	assert.Equal(t, reports.ItemTypeReport, items[0].Type())
	assert.Equal(t, "r1", items[0].Report.ID)
	assert.Equal(t, "SQLi on /login", items[0].Report.Findings)
	assert.Equal(t, "# SQLi", items[0].Report.Markdown)
	assert.Equal(t, int64(1700000001000), items[0].Report.CreatedAt.UnixMilli())
	assert.Equal(t, int64(1700000002000), items[0].Report.UpdatedAt.UnixMilli())

	assert.Equal(t, "r2", items[1].Report.ID)
	assert.Equal(t, reports.ModeHackerOne, items[1].Report.Mode)

	assert.Equal(t, int64(1700000005000), projects[0].UpdatedAt.UnixMilli())
}

func TestProjectRepository_PersistsMigrationOnNextWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Put(ctx, repositories.KeyProjects, []byte(legacyProjects)))

	repo := NewProjectRepository(store, discardLogger())
	require.NoError(t, repo.Update(ctx, func(p []reports.Project) ([]reports.Project, error) {
		return p, nil
	}))

	raw, err := store.Get(ctx, repositories.KeyProjects)
	require.NoError(t, err)

	var decoded []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.NotContains(t, decoded[0], "reports")
	require.Contains(t, decoded[0], "items")

	var items []map[string]any
	require.NoError(t, json.Unmarshal(decoded[0]["items"], &items))
	require.Len(t, items, 2)
	assert.Equal(t, "report", items[0]["type"])
	assert.Equal(t, "r1", items[0]["id"])
}

func TestProjectRepository_PreservesOrderAcrossSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(memory.NewStore(), discardLogger())

	now := reports.Now()
	nested := &reports.Folder{ID: "f2", Name: "Inner", CreatedAt: now, UpdatedAt: now, Children: []reports.Item{
		reports.ReportItem(&reports.Report{ID: "r3", Name: "c", Mode: reports.ModeStandard, CreatedAt: now, UpdatedAt: now}),
		reports.ReportItem(&reports.Report{ID: "r4", Name: "d", Mode: reports.ModeStandard, CreatedAt: now, UpdatedAt: now}),
	}}
	project := reports.Project{ID: "p1", Name: "Acme", CreatedAt: now, UpdatedAt: now, Items: []reports.Item{
		reports.ReportItem(&reports.Report{ID: "r1", Name: "a", CreatedAt: now, UpdatedAt: now}),
		reports.FolderItem(&reports.Folder{ID: "f1", Name: "Web", CreatedAt: now, UpdatedAt: now, Children: []reports.Item{
			reports.FolderItem(nested),
			reports.ReportItem(&reports.Report{ID: "r2", Name: "b", CreatedAt: now, UpdatedAt: now}),
		}}),
	}}

	require.NoError(t, repo.Update(ctx, func([]reports.Project) ([]reports.Project, error) {
		return []reports.Project{project}, nil
	}))

	loaded, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, project, loaded[0])

	var ids []string
	var walk func([]reports.Item)
	walk = func(items []reports.Item) {
		for _, it := range items {
			ids = append(ids, it.ID())
			if it.Folder != nil {
				walk(it.Folder.Children)
			}
		}
	}
	walk(loaded[0].Items)
	assert.Equal(t, []string{"r1", "f1", "f2", "r3", "r4", "r2"}, ids)
}

func TestProjectRepository_EmptyStore(t *testing.T) {
	repo := NewProjectRepository(memory.NewStore(), discardLogger())

	projects, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.NotNil(t, projects)
}

func TestProjectRepository_FailedUpdateDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := NewProjectRepository(store, discardLogger())

	err := repo.Update(ctx, func([]reports.Project) ([]reports.Project, error) {
		return nil, assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	raw, err := store.Get(ctx, repositories.KeyProjects)
	require.NoError(t, err)
	assert.Nil(t, raw)
}
