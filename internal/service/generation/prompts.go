package generation

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"aireporter/internal/domain/models/reports"
)

//go:embed prompts.yaml
var promptsFile []byte

// DefaultLanguage is used when a request names no output language
const DefaultLanguage = "English"

// PromptCatalog renders the instruction template for a mode and redaction level.
type PromptCatalog struct {
	modes     map[reports.Mode]*template.Template
	redaction map[reports.Redaction]string
}

type promptInput struct {
	Findings  string
	Language  string
	Redaction string
}

// LoadPromptCatalog parses the embedded template catalogue.
func LoadPromptCatalog() (*PromptCatalog, error) {
	return parsePromptCatalog(promptsFile)
}

func parsePromptCatalog(data []byte) (*PromptCatalog, error) {
	var raw struct {
		Modes     map[string]string `yaml:"modes"`
		Redaction map[string]string `yaml:"redaction"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	c := &PromptCatalog{
		modes:     make(map[reports.Mode]*template.Template),
		redaction: make(map[reports.Redaction]string),
	}
	for name, text := range raw.Modes {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s prompt: %w", name, err)
		}
		c.modes[reports.Mode(name)] = tmpl
	}
	for level, text := range raw.Redaction {
		c.redaction[reports.Redaction(level)] = text
	}

	for _, m := range reports.Modes {
		if _, ok := c.modes[m.(reports.Mode)]; !ok {
			return nil, fmt.Errorf("prompt catalogue has no template for mode %q", m)
		}
	}
	return c, nil
}

// Render builds the prompt. Unknown redaction levels add no instruction.
func (c *PromptCatalog) Render(mode reports.Mode, redaction reports.Redaction, language, findings string) (string, error) {
	tmpl, ok := c.modes[mode]
	if !ok {
		return "", fmt.Errorf("no prompt template for mode %q", mode)
	}
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, promptInput{
		Findings:  findings,
		Language:  language,
		Redaction: c.redaction[redaction],
	}); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", mode, err)
	}
	return sb.String(), nil
}
