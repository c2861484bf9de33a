package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExportCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a report to a file",
	}
	cmd.AddCommand(newExportFormatCmd(a, "md", "Markdown with file:// image links"))
	cmd.AddCommand(newExportFormatCmd(a, "pdf", "single-page PDF with embedded images"))
	return cmd
}

func newExportFormatCmd(a *App, format, desc string) *cobra.Command {
	return &cobra.Command{
		Use:   format + " <project> <report> <destination>",
		Short: "Export as " + desc,
		Args:  cobra.ExactArgs(3),
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
			dst, err := filepath.Abs(args[2])
			if err != nil {
				return writeErr(cmd, err)
			}

			svc, err := a.services(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if format == "pdf" {
				err = svc.Export.PDF(ctx, project.ID, report.ID, dst)
			} else {
				err = svc.Export.Markdown(ctx, project.ID, report.ID, dst)
			}
			if err != nil {
				return writeErr(cmd, err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), dst)
			return err
		},
	}
}
