package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	domainllm "aireporter/internal/domain/services/llm"
)

// defaultMaxTokens bounds the report length; reports are long-form Markdown
const defaultMaxTokens = 8192

// Provider implements the Provider interface for Anthropic (Claude) models.
type Provider struct {
	client *anthropic.Client
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey string, opts ...option.RequestOption) (*Provider, error) {
	if apiKey == "" {
		return nil, domainllm.ErrMissingAPIKey
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &Provider{
		client: &client,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// Generate sends the prompt as a single user message and joins the text blocks
// of the reply.
func (p *Provider) Generate(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		// Anthropic caps temperature at 1.0
		Temperature: anthropic.Float(min(req.Temperature, 1.0)),
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	if message.StopReason == anthropic.StopReasonRefusal {
		return "", &domainllm.UpstreamError{
			Provider: p.Name(),
			Message:  "response blocked: model refused on safety grounds",
			Blocked:  true,
		}
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &domainllm.UpstreamError{Provider: p.Name(), Message: "model returned an empty response"}
	}

	return sb.String(), nil
}

// errorBody is the JSON envelope Anthropic returns on failure
type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func mapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic API call failed: %w", err)
	}

	msg := http.StatusText(apiErr.StatusCode)
	var body errorBody
	if json.Unmarshal([]byte(apiErr.RawJSON()), &body) == nil && body.Error.Message != "" {
		msg = body.Error.Type + ": " + body.Error.Message
	}

	status := apiErr.StatusCode
	// 529 is Anthropic's overloaded status
	if status == 529 {
		status = http.StatusServiceUnavailable
	}

	return &domainllm.UpstreamError{
		Provider:   "anthropic",
		StatusCode: status,
		Message:    msg,
	}
}
