package generation

import (
	"sync"

	"aireporter/internal/domain/models/reports"
)

// WorkspaceState is what the user is currently looking at: the selected
// project and report and the preview shown for that report.
type WorkspaceState struct {
	ProjectID string       `json:"projectId,omitempty"`
	ReportID  string       `json:"reportId,omitempty"`
	Markdown  string       `json:"markdown"`
	Mode      reports.Mode `json:"mode,omitempty"`
}

// Workspace holds the live selection. Completed generations compare against
// it at the moment they finish, not at the moment they started.
type Workspace struct {
	mu    sync.RWMutex
	state WorkspaceState
}

// NewWorkspace creates an empty workspace with nothing selected
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// State returns a copy of the current selection and preview
func (w *Workspace) State() WorkspaceState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Select makes report the displayed report and loads its stored preview.
func (w *Workspace) Select(projectID string, report *reports.Report) WorkspaceState {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state = WorkspaceState{ProjectID: projectID}
	if report != nil {
		w.state.ReportID = report.ID
		w.state.Markdown = report.Markdown
		w.state.Mode = report.Mode
	}
	return w.state
}

// Clear deselects everything
func (w *Workspace) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = WorkspaceState{}
}

// IsSelected reports whether reportID is the displayed report
func (w *Workspace) IsSelected(reportID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return reportID != "" && w.state.ReportID == reportID
}

// ApplyIfSelected replaces the preview iff reportID is still the displayed
// report. It returns whether the preview changed.
func (w *Workspace) ApplyIfSelected(reportID, markdown string, mode reports.Mode) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if reportID == "" || w.state.ReportID != reportID {
		return false
	}
	w.state.Markdown = markdown
	w.state.Mode = mode
	return true
}

// Forget drops the selection when the selected report or project is among
// ids, for use after deletion.
func (w *Workspace) Forget(ids ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range ids {
		switch {
		case id == "":
		case w.state.ProjectID == id:
			w.state = WorkspaceState{}
			return
		case w.state.ReportID == id:
			w.state = WorkspaceState{ProjectID: w.state.ProjectID}
			return
		}
	}
}
