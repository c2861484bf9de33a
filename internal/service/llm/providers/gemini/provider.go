package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	domainllm "aireporter/internal/domain/services/llm"
)

// Provider implements the Provider interface for Google Gemini models.
type Provider struct {
	client *genai.Client
}

// NewProvider creates a new Gemini provider with the given API key.
func NewProvider(ctx context.Context, apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, domainllm.ErrMissingAPIKey
	}

	return newProvider(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func newProvider(ctx context.Context, cfg *genai.ClientConfig) (*Provider, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Provider{client: client}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "gemini"
}

// Generate sends the prompt as a single user turn and returns the text.
func (p *Provider) Generate(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	})
	if err != nil {
		return "", mapError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" &&
		resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return "", &domainllm.UpstreamError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
			Blocked:  true,
		}
	}

	text := resp.Text()
	if text == "" && len(resp.Candidates) > 0 {
		switch resp.Candidates[0].FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
			return "", &domainllm.UpstreamError{
				Provider: p.Name(),
				Message:  fmt.Sprintf("response blocked: %s", resp.Candidates[0].FinishReason),
				Blocked:  true,
			}
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", &domainllm.UpstreamError{Provider: p.Name(), Message: "model returned an empty response"}
	}

	return text, nil
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if apiErr.Status != "" {
			msg = apiErr.Status + ": " + msg
		}
		return &domainllm.UpstreamError{
			Provider:   "gemini",
			StatusCode: apiErr.Code,
			Message:    msg,
			Blocked:    strings.Contains(strings.ToLower(apiErr.Message), "safety"),
		}
	}
	return fmt.Errorf("gemini API call failed: %w", err)
}
