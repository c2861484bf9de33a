package cli

import (
	"github.com/spf13/cobra"

	"aireporter/internal/domain/models/reports"
	"aireporter/internal/service/generation"
)

func newGenerateCmd(a *App) *cobra.Command {
	var mode, redaction, language string
	cmd := &cobra.Command{
		Use:   "generate <project> <report>",
		Short: "Generate a report from its stored findings and print the outcome",
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
			outcome, err := svc.Orchestrator.Generate(ctx, &generation.Request{
				ProjectID: project.ID,
				ReportID:  report.ID,
				Mode:      reports.Mode(mode),
				Redaction: reports.Redaction(redaction),
				Language:  language,
			})
			if outcome != nil {
				if werr := writeJSON(cmd, a, outcome); werr != nil {
					return werr
				}
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "standard or hackerone (default: the report's mode)")
	cmd.Flags().StringVar(&redaction, "redaction", "", "none, low, medium or high")
	cmd.Flags().StringVar(&language, "language", "", "Output language (default: English)")
	return cmd
}
