package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"aireporter/internal/domain/models/reports"
)

type projectSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Reports   int    `json:"reports"`
	UpdatedAt int64  `json:"updatedAt"`
}

func newProjectsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			projects, err := svc.Reports.ListProjects(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}

			out := make([]projectSummary, 0, len(projects))
			for _, p := range projects {
				out = append(out, projectSummary{
					ID:        p.ID,
					Name:      p.Name,
					Reports:   len(p.AllReports()),
					UpdatedAt: p.UpdatedAt.UnixMilli(),
				})
			}
			return writeJSON(cmd, a, out)
		},
	}
}

func newTreeCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <project>",
		Short: "Print a project's folders and reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.resolveProject(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			printTree(cmd.OutOrStdout(), project)
			return nil
		},
	}
}

func printTree(w io.Writer, project *reports.Project) {
	fmt.Fprintf(w, "%s (%s)\n", project.Name, project.ID)
	printItems(w, project.Items, "")
}

func printItems(w io.Writer, items []reports.Item, prefix string) {
	for i, item := range items {
		branch, next := "├── ", "│   "
		if i == len(items)-1 {
			branch, next = "└── ", "    "
		}
		switch {
		case item.Folder != nil:
			fmt.Fprintf(w, "%s%s%s/\n", prefix, branch, item.Folder.Name)
			printItems(w, item.Folder.Children, prefix+next)
		case item.Report != nil:
			mode := item.Report.Mode
			if mode == "" {
				mode = reports.ModeStandard
			}
			status := "draft"
			if strings.TrimSpace(item.Report.Markdown) != "" {
				status = "generated"
			}
			fmt.Fprintf(w, "%s%s%s [%s, %s] %s\n", prefix, branch, item.Report.Name, mode, status, item.Report.ID)
		}
	}
}
