package lorem

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"

	domainllm "aireporter/internal/domain/services/llm"
	"aireporter/internal/service/references"
)

// Provider is a mock LLM provider that generates lorem ipsum reports.
// Used for testing, seeding and offline development without API keys.
//
// The output keeps the shape a real model would produce for the prompt:
// HackerOne prompts get the delimited sections and every screenshot token
// found in the prompt is placed in the body.
//
// Model names select behaviour:
//   - lorem-slow: waits before answering
//   - lorem-ratelimit, lorem-notfound, lorem-overloaded, lorem-blocked:
//     fail the way the matching upstream error would
type Provider struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
	delay     time.Duration
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
		delay:     2 * time.Second,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// Generate returns a placeholder report for the prompt.
func (p *Provider) Generate(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	if err := simulatedFailure(req.Model); err != nil {
		return "", err
	}

	if strings.Contains(req.Model, "slow") {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	tokens := references.TokenIDs(req.Prompt)
	if strings.Contains(req.Prompt, "<<<ASSET>>>") {
		return p.hackerOneReport(tokens), nil
	}
	return p.standardReport(tokens), nil
}

func simulatedFailure(model string) error {
	switch {
	case strings.Contains(model, "ratelimit"):
		return &domainllm.UpstreamError{Provider: "lorem", StatusCode: http.StatusTooManyRequests, Message: "quota exceeded"}
	case strings.Contains(model, "notfound"):
		return &domainllm.UpstreamError{Provider: "lorem", StatusCode: http.StatusNotFound, Message: fmt.Sprintf("model %s not found", model)}
	case strings.Contains(model, "overloaded"):
		return &domainllm.UpstreamError{Provider: "lorem", StatusCode: http.StatusServiceUnavailable, Message: "model is overloaded"}
	case strings.Contains(model, "blocked"):
		return &domainllm.UpstreamError{Provider: "lorem", Message: "response blocked", Blocked: true}
	}
	return nil
}

func (p *Provider) standardReport(tokens []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", strings.TrimSuffix(p.generator.Sentence(3, 6), "."))
	sb.WriteString("**Severity:** Medium | **CVSS:** 5.3\n\n")
	sb.WriteString("**Asset:** `https://target.example.com/`\n\n")
	fmt.Fprintf(&sb, "**Weakness:** %s\n\n", strings.TrimSuffix(p.generator.Sentence(2, 4), "."))
	fmt.Fprintf(&sb, "## Summary\n%s\n\n", p.generator.Paragraph(2, 3))
	sb.WriteString("## Steps To Reproduce\n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&sb, "%d. %s\n", i, p.generator.Sentence(5, 10))
	}
	sb.WriteString("\n## Proof of Concept\n```request\nGET / HTTP/1.1\nHost: target.example.com\n```\n\n")
	for _, id := range tokens {
		fmt.Fprintf(&sb, "@%s\n\n", id)
	}
	fmt.Fprintf(&sb, "## Impact\n%s\n\n", p.generator.Paragraph(2, 3))
	fmt.Fprintf(&sb, "## Recommendation\n1. %s\n", p.generator.Sentence(5, 10))
	return sb.String()
}

func (p *Provider) hackerOneReport(tokens []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var desc strings.Builder
	fmt.Fprintf(&desc, "## Summary:\n%s\n\n## Steps To Reproduce:\n", p.generator.Paragraph(2, 3))
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&desc, "%d. %s\n", i, p.generator.Sentence(5, 10))
	}
	for _, id := range tokens {
		fmt.Fprintf(&desc, "\n@%s\n", id)
	}

	sections := []struct{ name, body string }{
		{"ASSET", "https://target.example.com/"},
		{"WEAKNESS", strings.TrimSuffix(p.generator.Sentence(2, 4), ".")},
		{"SEVERITY", "Medium - CVSS: 5.3"},
		{"TITLE", strings.TrimSuffix(p.generator.Sentence(3, 6), ".")},
		{"DESCRIPTION", strings.TrimSpace(desc.String())},
		{"IMPACT", p.generator.Paragraph(1, 2)},
	}
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, fmt.Sprintf("<<<%s>>>\n%s\n<<<END_%s>>>", s.name, s.body, s.name))
	}
	return strings.Join(parts, "\n\n")
}
