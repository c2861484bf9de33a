// Package hackerone reads and writes the delimited section format used for
// HackerOne-mode reports.
package hackerone

import (
	"fmt"
	"regexp"
	"strings"
)

// Sections are the six fields of a HackerOne-mode report.
type Sections struct {
	Asset       string `json:"asset"`
	Weakness    string `json:"weakness"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

func sectionPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)<<<` + name + `>>>(.*?)<<<END_` + name + `>>>`)
}

var (
	assetPattern       = sectionPattern("ASSET")
	weaknessPattern    = sectionPattern("WEAKNESS")
	severityPattern    = sectionPattern("SEVERITY")
	titlePattern       = sectionPattern("TITLE")
	descriptionPattern = sectionPattern("DESCRIPTION")
	impactPattern      = sectionPattern("IMPACT")
)

func extract(re *regexp.Regexp, markdown string) string {
	m := re.FindStringSubmatch(markdown)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Parse extracts each section's trimmed body. A missing section is empty.
func Parse(markdown string) Sections {
	return Sections{
		Asset:       extract(assetPattern, markdown),
		Weakness:    extract(weaknessPattern, markdown),
		Severity:    extract(severityPattern, markdown),
		Title:       extract(titlePattern, markdown),
		Description: extract(descriptionPattern, markdown),
		Impact:      extract(impactPattern, markdown),
	}
}

// Serialize writes sections back into the delimited format. Parse(Serialize(s))
// returns s for trimmed fields, and Serialize(Parse(m)) is stable.
func Serialize(s Sections) string {
	blocks := []struct{ name, body string }{
		{"ASSET", s.Asset},
		{"WEAKNESS", s.Weakness},
		{"SEVERITY", s.Severity},
		{"TITLE", s.Title},
		{"DESCRIPTION", s.Description},
		{"IMPACT", s.Impact},
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, fmt.Sprintf("<<<%s>>>\n%s\n<<<END_%s>>>", b.name, b.body, b.name))
	}
	return strings.Join(parts, "\n\n")
}

// CleanMarkdown renders sections as a readable Markdown document for export.
func CleanMarkdown(s Sections) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	fmt.Fprintf(&b, "**Asset:** %s  \n", s.Asset)
	fmt.Fprintf(&b, "**Weakness:** %s  \n", s.Weakness)
	fmt.Fprintf(&b, "**Severity:** %s\n\n", s.Severity)
	b.WriteString("---\n\n")
	b.WriteString(s.Description)
	b.WriteString("\n\n---\n\n## Impact\n\n")
	b.WriteString(s.Impact)
	return b.String()
}

// IsDelimited reports whether markdown carries at least one section delimiter.
func IsDelimited(markdown string) bool {
	for _, re := range []*regexp.Regexp{assetPattern, weaknessPattern, severityPattern, titlePattern, descriptionPattern, impactPattern} {
		if re.MatchString(markdown) {
			return true
		}
	}
	return false
}
