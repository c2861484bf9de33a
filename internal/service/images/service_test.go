package images

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aireporter/internal/domain"
	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/filestore"
	"aireporter/internal/repository/kv"
	"aireporter/internal/repository/memory"
)

func newTestService(t *testing.T) (Service, afero.Fs) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fsys := afero.NewMemMapFs()
	files, err := filestore.NewLocal(fsys, "/data/images", logger)
	require.NoError(t, err)
	return NewService(kv.NewImageRepository(memory.NewStore()), files, logger), fsys
}

func dataURL(mime, content string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func TestService_StoreAndLoad(t *testing.T) {
	ctx := context.Background()
	svc, fsys := newTestService(t)

	img, err := svc.Store(ctx, &reportsSvc.StoreImageRequest{
		ReportID:    "r1",
		DataURL:     dataURL("image/jpeg", "jpeg-bytes"),
		Description: "Login <form>",
	})
	require.NoError(t, err)

	assert.Regexp(t, `^img-[a-z0-9]{6}$`, img.ID)
	assert.Equal(t, "r1", img.ReportID)
	assert.Equal(t, "Login form", img.Description)
	assert.Equal(t, filepath.Join("/data/images", img.ID+".jpg"), img.FilePath)

	onDisk, err := afero.ReadFile(fsys, img.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(onDisk))

	loaded, err := svc.LoadData(ctx, img.FilePath)
	require.NoError(t, err)
	assert.Equal(t, dataURL("image/jpeg", "jpeg-bytes"), loaded)

	got, err := svc.Get(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestService_StoreRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Store(context.Background(), &reportsSvc.StoreImageRequest{ReportID: "r1", DataURL: "not-a-data-url"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Store(context.Background(), &reportsSvc.StoreImageRequest{DataURL: dataURL("image/png", "x")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_ReplaceWritesPNG(t *testing.T) {
	ctx := context.Background()
	svc, fsys := newTestService(t)

	img, err := svc.Store(ctx, &reportsSvc.StoreImageRequest{ReportID: "r1", DataURL: dataURL("image/jpeg", "old")})
	require.NoError(t, err)

	replaced, err := svc.Replace(ctx, img.ID, dataURL("image/png", "annotated"))
	require.NoError(t, err)
	assert.Equal(t, img.ID, replaced.ID)
	assert.Equal(t, filepath.Join("/data/images", img.ID+".png"), replaced.FilePath)

	data, err := afero.ReadFile(fsys, replaced.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "annotated", string(data))

	oldExists, err := afero.Exists(fsys, img.FilePath)
	require.NoError(t, err)
	assert.False(t, oldExists, "previous jpg should be removed")

	_, err = svc.Replace(ctx, "img-zzzzzz", dataURL("image/png", "x"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_UpdateDescription(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	img, err := svc.Store(ctx, &reportsSvc.StoreImageRequest{ReportID: "r1", DataURL: dataURL("image/png", "x")})
	require.NoError(t, err)
	assert.Equal(t, DefaultDescription, img.Description)

	updated, err := svc.UpdateDescription(ctx, img.ID, "  Admin   panel ")
	require.NoError(t, err)
	assert.Equal(t, "Admin panel", updated.Description)
}

func TestService_DeleteForReports(t *testing.T) {
	ctx := context.Background()
	svc, fsys := newTestService(t)

	a, err := svc.Store(ctx, &reportsSvc.StoreImageRequest{ReportID: "r1", DataURL: dataURL("image/png", "a")})
	require.NoError(t, err)
	b, err := svc.Store(ctx, &reportsSvc.StoreImageRequest{ReportID: "r2", DataURL: dataURL("image/png", "b")})
	require.NoError(t, err)
	c, err := svc.Store(ctx, &reportsSvc.StoreImageRequest{ReportID: "r3", DataURL: dataURL("image/png", "c")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteForReports(ctx, "r1", "r3"))

	remaining, err := svc.ForReport(ctx, "r2")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, b.ID, remaining[0].ID)

	for _, img := range []string{a.FilePath, c.FilePath} {
		exists, _ := afero.Exists(fsys, img)
		assert.False(t, exists, "%s should be deleted", img)
	}
	exists, _ := afero.Exists(fsys, b.FilePath)
	assert.True(t, exists)
}

func TestService_DeleteMissingIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.Delete(context.Background(), "img-000000"))
}

func TestService_SaveAs(t *testing.T) {
	ctx := context.Background()
	svc, fsys := newTestService(t)

	img, err := svc.Store(ctx, &reportsSvc.StoreImageRequest{ReportID: "r1", DataURL: dataURL("image/png", "shot")})
	require.NoError(t, err)

	require.NoError(t, svc.SaveAs(ctx, img.ID, "/exports/shot.png"))
	data, err := afero.ReadFile(fsys, "/exports/shot.png")
	require.NoError(t, err)
	assert.Equal(t, "shot", string(data))

	assert.ErrorIs(t, svc.SaveAs(ctx, img.ID, "relative.png"), domain.ErrValidation)
	assert.ErrorIs(t, svc.SaveAs(ctx, "img-nope00", "/exports/x.png"), domain.ErrNotFound)
}

func TestService_LoadDataOutsideRoot(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.LoadData(context.Background(), "/etc/passwd")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
