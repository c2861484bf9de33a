package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func newShowCmd(a *App) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <project> <report>",
		Short: "Render a report in the terminal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			project, err := a.resolveProject(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			report, err := resolveReport(project, args[1])
			if err != nil {
				return writeErr(cmd, err)
			}

			svc, err := a.services(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			markdown, err := svc.Export.RenderMarkdown(ctx, project.ID, report.ID)
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(markdown) == "" {
				markdown = fmt.Sprintf("# %s\n\n*Not generated yet.*\n\n## Findings\n\n%s", report.Name, report.Findings)
			}

			if raw {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), markdown)
				return err
			}

			style := a.Style
			if style == "" {
				style = "dark"
				if settings, err := svc.Settings.Get(ctx); err == nil && settings.Theme != "" {
					style = settings.Theme
				}
			}
			renderer, err := glamour.NewTermRenderer(
				glamour.WithStandardStyle(style),
				glamour.WithWordWrap(a.Width),
			)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := renderer.Render(markdown)
			if err != nil {
				return writeErr(cmd, err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the export Markdown without rendering")
	return cmd
}
