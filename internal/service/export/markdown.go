package export

import (
	"aireporter/internal/domain/models/reports"
	"aireporter/internal/service/hackerone"
)

// ExportMarkdown returns the document every export path starts from. HackerOne
// reports are flattened from their delimited sections into readable Markdown;
// anything else is exported as stored.
func ExportMarkdown(report *reports.Report) string {
	if report == nil {
		return ""
	}
	if report.Mode == reports.ModeHackerOne {
		return hackerone.CleanMarkdown(hackerone.Parse(report.Markdown))
	}
	return report.Markdown
}
