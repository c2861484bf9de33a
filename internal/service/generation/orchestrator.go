package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"aireporter/internal/config"
	"aireporter/internal/domain"
	"aireporter/internal/domain/models/reports"
	reportsSvc "aireporter/internal/domain/services/reports"
	domainllm "aireporter/internal/domain/services/llm"
	"aireporter/internal/service/references"
)

// Status is the terminal state of one generation
type Status string

const (
	StatusCompleted Status = "completed"
	StatusDiscarded Status = "discarded"
	StatusFailed    Status = "failed"
)

// Event types published over the lifecycle of a generation
const (
	EventStarted       = "generation.started"
	EventCompleted     = "generation.completed"
	EventDiscarded     = "generation.discarded"
	EventFailed        = "generation.failed"
	EventPreviewUpdate = "preview.updated"
)

// ReportStore is the part of the hierarchical store generation needs.
type ReportStore interface {
	FindReport(ctx context.Context, projectID, reportID string) (*reports.Report, error)
	UpdateReport(ctx context.Context, projectID, reportID string, req *reportsSvc.UpdateReportRequest) (*reports.Report, error)
}

// ImageLister lists the images attached to a report.
type ImageLister interface {
	ForReport(ctx context.Context, reportID string) ([]reports.StoredImage, error)
}

// SettingsReader returns the current settings.
type SettingsReader interface {
	Get(ctx context.Context) (*reports.Settings, error)
}

// ProviderResolver picks the provider and provider model id for a model string.
type ProviderResolver interface {
	Resolve(ctx context.Context, model, settingsKey string) (domainllm.Provider, string, error)
}

// Publisher broadcasts lifecycle events. Publish must not block.
type Publisher interface {
	Publish(eventType string, data any)
}

// Request asks for one report to be generated. Findings defaults to the
// stored findings, Mode to the report's mode and Redaction to none.
type Request struct {
	ProjectID string            `json:"projectId"`
	ReportID  string            `json:"reportId"`
	Findings  *string           `json:"findings,omitempty"`
	Mode      reports.Mode      `json:"mode,omitempty"`
	Redaction reports.Redaction `json:"redaction,omitempty"`
	Language  string            `json:"language,omitempty"`
}

// Validate implements validation.Validatable
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProjectID, validation.Required),
		validation.Field(&r.ReportID, validation.Required),
		validation.Field(&r.Findings, validation.Length(0, config.MaxFindingsLength)),
		validation.Field(&r.Mode, validation.In(reports.Modes...)),
		validation.Field(&r.Redaction, validation.In(reports.Redactions...)),
		validation.Field(&r.Language, validation.Length(0, 64)),
	)
}

// Outcome reports how a generation ended.
type Outcome struct {
	Status         Status                  `json:"status"`
	ProjectID      string                  `json:"projectId"`
	ReportID       string                  `json:"reportId"`
	Mode           reports.Mode            `json:"mode"`
	Markdown       string                  `json:"markdown,omitempty"`
	PreviewApplied bool                    `json:"previewApplied"`
	ErrorKind      domain.GenerationKind   `json:"errorKind,omitempty"`
	Error          string                  `json:"error,omitempty"`
	StartedAt      time.Time               `json:"startedAt"`
	FinishedAt     time.Time               `json:"finishedAt"`
	err            *domain.GenerationError
}

// Err returns the classified failure, or nil unless Status is failed.
func (o *Outcome) Err() *domain.GenerationError {
	return o.err
}

// snapshot is captured when a generation starts and is the only input the
// rest of the lifecycle reads.
type snapshot struct {
	projectID string
	reportID  string
	findings  string
	images    []reports.StoredImage
	mode      reports.Mode
	redaction reports.Redaction
	language  string
	model     string
	apiKey    string
	temp      float64
	startedAt time.Time
}

// Orchestrator drives one model call per Generate and reconciles the result
// against whatever the store and workspace look like when it returns.
type Orchestrator struct {
	store     ReportStore
	images    ImageLister
	settings  SettingsReader
	providers ProviderResolver
	prompts   *PromptCatalog
	workspace *Workspace
	inFlight  *InFlight
	events    Publisher
	timeout   time.Duration
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// Options bundles the orchestrator's collaborators
type Options struct {
	Store     ReportStore
	Images    ImageLister
	Settings  SettingsReader
	Providers ProviderResolver
	Prompts   *PromptCatalog
	Workspace *Workspace
	InFlight  *InFlight
	Events    Publisher
	Timeout   time.Duration
	Logger    *slog.Logger
}

// NewOrchestrator creates a generation orchestrator
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Workspace == nil {
		opts.Workspace = NewWorkspace()
	}
	if opts.InFlight == nil {
		opts.InFlight = NewInFlight()
	}
	if opts.Events == nil {
		opts.Events = nopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		store:     opts.Store,
		images:    opts.Images,
		settings:  opts.Settings,
		providers: opts.Providers,
		prompts:   opts.Prompts,
		workspace: opts.Workspace,
		inFlight:  opts.InFlight,
		events:    opts.Events,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
}

// Workspace returns the live selection the orchestrator checks against
func (o *Orchestrator) Workspace() *Workspace { return o.workspace }

// Active returns the ids of reports that are generating
func (o *Orchestrator) Active() []string { return o.inFlight.List() }

// Generate runs a generation to completion and returns its outcome. Request
// problems (validation, unknown report, a generation already running for the
// report) are returned as errors before anything starts. A failed model call
// returns an outcome with StatusFailed together with its GenerationError.
// Once claimed, the run is detached from ctx like Start: a caller that goes
// away does not abort the model call or the save.
func (o *Orchestrator) Generate(ctx context.Context, req *Request) (*Outcome, error) {
	snap, err := o.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	outcome := o.run(context.WithoutCancel(ctx), snap)
	if outcome.err != nil {
		return outcome, outcome.err
	}
	return outcome, nil
}

// Start claims the report and runs the generation in the background. The
// model call is detached from ctx: it always runs to completion and only its
// effects are suppressed if the report was deselected or deleted.
func (o *Orchestrator) Start(ctx context.Context, req *Request) error {
	snap, err := o.begin(ctx, req)
	if err != nil {
		return err
	}

	detached := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(detached, snap)
	}()
	return nil
}

// Wait blocks until background generations finish or ctx is done
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin validates the request, captures the snapshot and claims the report.
func (o *Orchestrator) begin(ctx context.Context, req *Request) (*snapshot, error) {
	if req == nil {
		return nil, &domain.ValidationError{Message: "request is required"}
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.ReportID = strings.TrimSpace(req.ReportID)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	report, err := o.store.FindReport(ctx, req.ProjectID, req.ReportID)
	if err != nil {
		return nil, fmt.Errorf("find report: %w", err)
	}
	if report == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("report %q not found in project %q", req.ReportID, req.ProjectID)}
	}

	images, err := o.images.ForReport(ctx, report.ID)
	if err != nil {
		return nil, fmt.Errorf("list report images: %w", err)
	}

	settings, err := o.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	snap := &snapshot{
		projectID: req.ProjectID,
		reportID:  report.ID,
		findings:  report.Findings,
		images:    images,
		mode:      req.Mode,
		redaction: req.Redaction,
		language:  strings.TrimSpace(req.Language),
		model:     settings.Model,
		apiKey:    settings.APIKey,
		temp:      settings.Temperature,
		startedAt: time.Now(),
	}
	if req.Findings != nil {
		snap.findings = *req.Findings
	}
	if strings.TrimSpace(snap.findings) == "" {
		return nil, &domain.ValidationError{Message: "please enter some findings first"}
	}
	if snap.mode == "" {
		snap.mode = report.Mode
	}
	if snap.mode == "" {
		snap.mode = reports.ModeStandard
	}
	if snap.redaction == "" {
		snap.redaction = reports.RedactionNone
	}
	if snap.language == "" {
		snap.language = DefaultLanguage
	}

	if !o.inFlight.TryAdd(snap.reportID) {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("report %q is already generating", snap.reportID),
			ResourceType: "generation",
			ResourceID:   snap.reportID,
		}
	}

	o.events.Publish(EventStarted, map[string]any{
		"projectId": snap.projectID,
		"reportId":  snap.reportID,
		"mode":      snap.mode,
		"model":     snap.model,
	})
	o.logger.Info("generation started",
		"project_id", snap.projectID,
		"report_id", snap.reportID,
		"mode", snap.mode,
		"redaction", snap.redaction,
		"model", snap.model,
		"images", len(snap.images),
	)
	return snap, nil
}

// run calls the model and commits the effects that are still valid. The
// in-flight entry is released on every path.
func (o *Orchestrator) run(ctx context.Context, snap *snapshot) (outcome *Outcome) {
	outcome = &Outcome{
		ProjectID: snap.projectID,
		ReportID:  snap.reportID,
		Mode:      snap.mode,
		StartedAt: snap.startedAt,
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("generation panicked", "report_id", snap.reportID, "panic", r)
			o.fail(outcome, fmt.Errorf("generation panicked: %v", r))
		}
		o.inFlight.Remove(snap.reportID)
		outcome.FinishedAt = time.Now()
		o.publishOutcome(outcome)
	}()

	text, err := o.call(ctx, snap)
	if err != nil {
		o.fail(outcome, err)
		return outcome
	}
	outcome.Markdown = text

	// Optimistic preview update, checked against the live selection now
	if o.workspace.ApplyIfSelected(snap.reportID, text, snap.mode) {
		outcome.PreviewApplied = true
		o.events.Publish(EventPreviewUpdate, o.workspace.State())
	}

	// Commit iff the report still exists. Findings are never written here.
	current, err := o.store.FindReport(ctx, snap.projectID, snap.reportID)
	if err != nil {
		o.fail(outcome, fmt.Errorf("revalidate report: %w", err))
		return outcome
	}
	if current == nil {
		outcome.Status = StatusDiscarded
		return outcome
	}

	mode := snap.mode
	_, err = o.store.UpdateReport(ctx, snap.projectID, snap.reportID, &reportsSvc.UpdateReportRequest{
		Markdown: &text,
		Mode:     &mode,
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Deleted between the revalidation and the write
		outcome.Status = StatusDiscarded
	case err != nil:
		o.fail(outcome, fmt.Errorf("save generated report: %w", err))
	default:
		outcome.Status = StatusCompleted
	}
	return outcome
}

func (o *Orchestrator) call(ctx context.Context, snap *snapshot) (string, error) {
	provider, model, err := o.providers.Resolve(ctx, snap.model, snap.apiKey)
	if err != nil {
		return "", err
	}

	findings := references.StripDangling(snap.findings, snap.images) + references.AttachmentSummary(snap.images)
	prompt, err := o.prompts.Render(snap.mode, snap.redaction, snap.language, findings)
	if err != nil {
		return "", err
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	return provider.Generate(ctx, &domainllm.GenerateRequest{
		Prompt:      prompt,
		Model:       model,
		Temperature: snap.temp,
	})
}

func (o *Orchestrator) fail(outcome *Outcome, err error) {
	genErr := Classify(err)
	outcome.Status = StatusFailed
	outcome.Markdown = ""
	outcome.ErrorKind = genErr.Kind
	outcome.Error = genErr.Message
	outcome.err = genErr
}

func (o *Orchestrator) publishOutcome(outcome *Outcome) {
	duration := outcome.FinishedAt.Sub(outcome.StartedAt)
	switch outcome.Status {
	case StatusCompleted:
		o.logger.Info("generation completed",
			"report_id", outcome.ReportID,
			"preview_applied", outcome.PreviewApplied,
			"duration_ms", duration.Milliseconds(),
		)
		o.events.Publish(EventCompleted, outcome)
	case StatusDiscarded:
		o.logger.Info("generation discarded, report was deleted",
			"report_id", outcome.ReportID,
			"duration_ms", duration.Milliseconds(),
		)
		o.events.Publish(EventDiscarded, outcome)
	default:
		o.logger.Warn("generation failed",
			"report_id", outcome.ReportID,
			"kind", outcome.ErrorKind,
			"error", outcome.err.Cause,
			"duration_ms", duration.Milliseconds(),
		)
		o.events.Publish(EventFailed, outcome)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}
