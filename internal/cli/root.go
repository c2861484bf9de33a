// Package cli implements reportctl, a terminal companion over the same
// services the server uses.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"aireporter/internal/app"
	"aireporter/internal/config"
	"aireporter/internal/domain/models/reports"
)

// Opener builds the service container for a command
type Opener func(ctx context.Context) (*app.App, error)

// App is the state shared by every command
type App struct {
	PrettyJSON bool
	Style      string
	Width      int

	open Opener
	svc  *app.App
}

// NewRootCmd builds reportctl over the configured store
func NewRootCmd() *cobra.Command {
	return newRootCmd(openFromEnv)
}

func newRootCmd(open Opener) *cobra.Command {
	a := &App{open: open}

	cmd := &cobra.Command{
		Use:          "reportctl",
		Short:        "Inspect and export security reports",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # List projects
  reportctl projects

  # Print a project's folder tree
  reportctl tree Acme

  # Render a report in the terminal
  reportctl show Acme <report-id>

  # Export to a file
  reportctl export pdf Acme <report-id> /tmp/login-bug.pdf
`),
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a.svc == nil {
			return nil
		}
		return a.svc.Close(cmd.Context())
	}

	cmd.PersistentFlags().BoolVar(&a.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&a.Style, "style", "", "Terminal style for show (dark|light|notty; default: settings theme)")
	cmd.PersistentFlags().IntVar(&a.Width, "width", 100, "Word wrap width for show")

	cmd.AddCommand(newProjectsCmd(a))
	cmd.AddCommand(newTreeCmd(a))
	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newGenerateCmd(a))

	return cmd
}

func openFromEnv(ctx context.Context) (*app.App, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	// Commands write their results to stdout; keep logs on stderr and quiet
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return app.New(ctx, cfg, logger)
}

// services opens the container on first use
func (a *App) services(ctx context.Context) (*app.App, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

// resolveProject accepts a project id or a case-insensitive project name
func (a *App) resolveProject(ctx context.Context, ref string) (*reports.Project, error) {
	svc, err := a.services(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := svc.Reports.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].ID == ref {
			return &projects[i], nil
		}
	}
	var match *reports.Project
	for i := range projects {
		if strings.EqualFold(projects[i].Name, ref) {
			if match != nil {
				return nil, fmt.Errorf("project name %q is ambiguous, use the id", ref)
			}
			match = &projects[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("project %q not found", ref)
	}
	return match, nil
}

// resolveReport finds a report by id or case-insensitive name within project
func resolveReport(project *reports.Project, ref string) (*reports.Report, error) {
	all := project.AllReports()
	for i := range all {
		if all[i].ID == ref {
			return &all[i], nil
		}
	}
	var match *reports.Report
	for i := range all {
		if strings.EqualFold(all[i].Name, ref) {
			if match != nil {
				return nil, fmt.Errorf("report name %q is ambiguous, use the id", ref)
			}
			match = &all[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("report %q not found in %s", ref, project.Name)
	}
	return match, nil
}

func writeJSON(cmd *cobra.Command, a *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if a.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
