package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aireporter/internal/domain"
	"aireporter/internal/domain/models/reports"
	domainllm "aireporter/internal/domain/services/llm"
	reportsSvc "aireporter/internal/domain/services/reports"
	"aireporter/internal/filestore"
	"aireporter/internal/repository/kv"
	"aireporter/internal/repository/memory"
	"aireporter/internal/service/converter"
	"aireporter/internal/service/images"
	storeService "aireporter/internal/service/reports"
)

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
	started chan struct{}
	release chan struct{}
	text    string
	err     error

	// honorCtx aborts a held call when ctx is done, like the SDK clients
	honorCtx bool
}

func newFakeProvider(text string) *fakeProvider {
	return &fakeProvider{started: make(chan struct{}, 8), text: text}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Prompt)
	p.mu.Unlock()

	p.started <- struct{}{}
	if p.release != nil {
		if p.honorCtx {
			select {
			case <-p.release:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		} else {
			<-p.release
		}
	}
	return p.text, p.err
}

func (p *fakeProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts[len(p.prompts)-1]
}

type fakeResolver struct {
	provider domainllm.Provider
	err      error
}

func (r *fakeResolver) Resolve(ctx context.Context, model, key string) (domainllm.Provider, string, error) {
	if r.err != nil {
		return nil, "", r.err
	}
	return r.provider, model, nil
}

type staticSettings struct{}

func (staticSettings) Get(ctx context.Context) (*reports.Settings, error) {
	s := reports.DefaultSettings()
	s.APIKey = "test-key"
	return &s, nil
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(eventType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	store    reportsSvc.StoreService
	images   images.Service
	provider *fakeProvider
	resolver *fakeResolver
	events   *recorder
	orch     *Orchestrator
	project  *reports.Project
}

func newFixture(t *testing.T, text string) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kvStore := memory.NewStore()

	files, err := filestore.NewLocal(afero.NewMemMapFs(), "/data/images", logger)
	require.NoError(t, err)
	imageSvc := images.NewService(kv.NewImageRepository(kvStore), files, logger)
	store := storeService.NewStoreService(kv.NewProjectRepository(kvStore, logger), kvStore, imageSvc, converter.NewRegistry(), logger)

	prompts, err := LoadPromptCatalog()
	require.NoError(t, err)

	provider := newFakeProvider(text)
	resolver := &fakeResolver{provider: provider}
	events := &recorder{}
	orch := NewOrchestrator(Options{
		Store:     store,
		Images:    imageSvc,
		Settings:  staticSettings{},
		Providers: resolver,
		Prompts:   prompts,
		Events:    events,
		Timeout:   time.Minute,
		Logger:    logger,
	})

	project, err := store.CreateProject(context.Background(), &reportsSvc.CreateProjectRequest{Name: "Acme"})
	require.NoError(t, err)

	return &fixture{store: store, images: imageSvc, provider: provider, resolver: resolver, events: events, orch: orch, project: project}
}

func (f *fixture) report(t *testing.T, name, findings string) *reports.Report {
	t.Helper()
	r, err := f.store.AddReport(context.Background(), &reportsSvc.AddReportRequest{ProjectID: f.project.ID, Name: name, Findings: findings})
	require.NoError(t, err)
	return r
}

func (f *fixture) reload(t *testing.T, reportID string) *reports.Report {
	t.Helper()
	r, err := f.store.FindReport(context.Background(), f.project.ID, reportID)
	require.NoError(t, err)
	return r
}

func (f *fixture) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-f.provider.started:
	case <-time.After(5 * time.Second):
		t.Fatal("provider was never called")
	}
}

func (f *fixture) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.orch.Wait(ctx))
}

func TestGenerate_CompletesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "# Generated")
	r1 := f.report(t, "Login Bug", "SQLi on /login")
	f.orch.Workspace().Select(f.project.ID, r1)

	outcome, err := f.orch.Generate(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID, Mode: reports.ModeHackerOne})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, outcome.Status)
	assert.True(t, outcome.PreviewApplied)
	assert.Equal(t, "# Generated", f.orch.Workspace().State().Markdown)
	assert.Equal(t, reports.ModeHackerOne, f.orch.Workspace().State().Mode)

	stored := f.reload(t, r1.ID)
	assert.Equal(t, "# Generated", stored.Markdown)
	assert.Equal(t, reports.ModeHackerOne, stored.Mode)
	assert.Equal(t, "SQLi on /login", stored.Findings)

	assert.Empty(t, f.orch.Active())
	assert.Equal(t, []string{EventStarted, EventPreviewUpdate, EventCompleted}, f.events.list())
}

func TestStart_SwitchAwayKeepsOtherPreview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "# R1 report")
	f.provider.release = make(chan struct{})

	r1 := f.report(t, "R1", "findings one")
	r2 := f.report(t, "R2", "findings two")
	_, err := f.store.UpdateReport(ctx, f.project.ID, r2.ID, &reportsSvc.UpdateReportRequest{Markdown: strPtr("r2 preview")})
	require.NoError(t, err)
	r2 = f.reload(t, r2.ID)

	f.orch.Workspace().Select(f.project.ID, r1)
	require.NoError(t, f.orch.Start(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID}))
	f.waitStarted(t)
	assert.Equal(t, []string{r1.ID}, f.orch.Active())

	// User switches to R2 before the response arrives
	f.orch.Workspace().Select(f.project.ID, r2)
	close(f.provider.release)
	f.waitIdle(t)

	state := f.orch.Workspace().State()
	assert.Equal(t, r2.ID, state.ReportID)
	assert.Equal(t, "r2 preview", state.Markdown)

	assert.Equal(t, "# R1 report", f.reload(t, r1.ID).Markdown)
	assert.Equal(t, "r2 preview", f.reload(t, r2.ID).Markdown)
	assert.Empty(t, f.orch.Active())
	assert.NotContains(t, f.events.list(), EventPreviewUpdate)
}

func TestStart_DeletedMidFlightIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "# too late")
	f.provider.release = make(chan struct{})
	r1 := f.report(t, "R1", "findings")
	other := f.report(t, "Other", "keep")

	require.NoError(t, f.orch.Start(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID}))
	f.waitStarted(t)

	require.NoError(t, f.store.DeleteItem(ctx, f.project.ID, r1.ID))
	before, err := f.store.GetProject(ctx, f.project.ID)
	require.NoError(t, err)

	close(f.provider.release)
	f.waitIdle(t)

	after, err := f.store.GetProject(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "store must be untouched")
	assert.Nil(t, f.reload(t, r1.ID))
	assert.Equal(t, "", f.reload(t, other.ID).Markdown)
	assert.False(t, f.orch.inFlight.Contains(r1.ID))

	events := f.events.list()
	assert.Equal(t, EventDiscarded, events[len(events)-1])
}

func TestStart_FindingsEditedDuringFlightSurvive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "# generated")
	f.provider.release = make(chan struct{})
	r1 := f.report(t, "R1", "original")

	require.NoError(t, f.orch.Start(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID}))
	f.waitStarted(t)

	_, err := f.store.UpdateReport(ctx, f.project.ID, r1.ID, &reportsSvc.UpdateReportRequest{Findings: strPtr("edited while waiting")})
	require.NoError(t, err)

	close(f.provider.release)
	f.waitIdle(t)

	stored := f.reload(t, r1.ID)
	assert.Equal(t, "edited while waiting", stored.Findings)
	assert.Equal(t, "# generated", stored.Markdown)
	assert.Contains(t, f.provider.lastPrompt(), "original")
}

func TestGenerate_FailureClearsInFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	f.provider.err = &domainllm.UpstreamError{Provider: "fake", StatusCode: 429, Message: "quota"}
	r1 := f.report(t, "R1", "findings")

	outcome, err := f.orch.Generate(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID})

	var genErr *domain.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, domain.GenerationRateLimit, genErr.Kind)
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Empty(t, f.orch.Active())
	assert.Equal(t, "", f.reload(t, r1.ID).Markdown)

	// The report can be generated again once the failure is cleared
	f.provider.err = nil
	f.provider.text = "# second try"
	outcome, err = f.orch.Generate(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, outcome.Status)
}

func TestGenerate_MissingKeyIsConfigurationError(t *testing.T) {
	f := newFixture(t, "")
	f.resolver.err = domainllm.ErrMissingAPIKey
	r1 := f.report(t, "R1", "findings")

	_, err := f.orch.Generate(context.Background(), &Request{ProjectID: f.project.ID, ReportID: r1.ID})

	var genErr *domain.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, domain.GenerationConfiguration, genErr.Kind)
	assert.Empty(t, f.orch.Active())
}

func TestStart_DuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "# done")
	f.provider.release = make(chan struct{})
	r1 := f.report(t, "R1", "findings")
	r2 := f.report(t, "R2", "findings")

	require.NoError(t, f.orch.Start(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID}))
	f.waitStarted(t)

	err := f.orch.Start(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// A different report generates concurrently
	require.NoError(t, f.orch.Start(ctx, &Request{ProjectID: f.project.ID, ReportID: r2.ID}))
	f.waitStarted(t)
	assert.ElementsMatch(t, []string{r1.ID, r2.ID}, f.orch.Active())

	close(f.provider.release)
	f.waitIdle(t)
	assert.Empty(t, f.orch.Active())
}

func TestGenerate_ShapesPromptFromAttachedImages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "# ok")
	r1 := f.report(t, "R1", "")

	img, err := f.images.Store(ctx, &reportsSvc.StoreImageRequest{
		ReportID:    r1.ID,
		DataURL:     "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes")),
		Description: "Login form",
	})
	require.NoError(t, err)

	findings := "see @" + img.ID + " and @img-zzzzzz"
	_, err = f.orch.Generate(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID, Findings: &findings, Language: "German"})
	require.NoError(t, err)

	prompt := f.provider.lastPrompt()
	assert.Contains(t, prompt, "see @"+img.ID+" and ")
	assert.NotContains(t, prompt, "@img-zzzzzz")
	assert.Contains(t, prompt, "[ATTACHED SCREENSHOTS]\n{"+img.ID+": \"Login form\"}")
	assert.Contains(t, prompt, "German")
	assert.Equal(t, "", f.reload(t, r1.ID).Findings, "request findings are never persisted")
}

func TestGenerate_RequestErrors(t *testing.T) {
	f := newFixture(t, "")
	r1 := f.report(t, "R1", "x")

	tests := []struct {
		name string
		req  *Request
		want error
	}{
		{"missing report id", &Request{ProjectID: f.project.ID}, domain.ErrValidation},
		{"bad mode", &Request{ProjectID: f.project.ID, ReportID: r1.ID, Mode: "essay"}, domain.ErrValidation},
		{"bad redaction", &Request{ProjectID: f.project.ID, ReportID: r1.ID, Redaction: "max"}, domain.ErrValidation},
		{"unknown report", &Request{ProjectID: f.project.ID, ReportID: "nope"}, domain.ErrNotFound},
		{"blank findings override", &Request{ProjectID: f.project.ID, ReportID: r1.ID, Findings: strPtr(" \n\t")}, domain.ErrValidation},
		{"unknown project", &Request{ProjectID: "nope", ReportID: r1.ID}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := f.orch.Generate(context.Background(), tt.req)
			assert.Nil(t, outcome)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, !strings.Contains(strings.Join(f.orch.Active(), ","), r1.ID))
		})
	}
}

func TestGenerate_EmptyStoredFindingsNeverReachModel(t *testing.T) {
	f := newFixture(t, "# never")
	r1 := f.report(t, "R1", "   ")

	outcome, err := f.orch.Generate(context.Background(), &Request{ProjectID: f.project.ID, ReportID: r1.ID})
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.orch.Active())
	assert.Empty(t, f.events.list())
	assert.Empty(t, f.provider.prompts)
}

func TestGenerate_CallerCancelDoesNotAbortModelCall(t *testing.T) {
	f := newFixture(t, "# finished anyway")
	f.provider.release = make(chan struct{})
	f.provider.honorCtx = true
	r1 := f.report(t, "R1", "findings")

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		outcome *Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := f.orch.Generate(ctx, &Request{ProjectID: f.project.ID, ReportID: r1.ID})
		done <- result{outcome, err}
	}()

	f.waitStarted(t)
	cancel()
	// Give a ctx-honoring call the chance to abort before the answer arrives
	time.Sleep(20 * time.Millisecond)
	close(f.provider.release)

	var res result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("generate never returned")
	}
	require.NoError(t, res.err)
	assert.Equal(t, StatusCompleted, res.outcome.Status)
	assert.Equal(t, "# finished anyway", f.reload(t, r1.ID).Markdown)
	assert.Empty(t, f.orch.Active())
}

func strPtr(s string) *string { return &s }
