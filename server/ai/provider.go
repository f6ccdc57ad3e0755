package ai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	aierrors "github.com/hrygo/confidant/server/internal/errors"
)

const (
	// DefaultBaseURL is the OpenRouter OpenAI-compatible endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	// DefaultModel is used when no model is configured.
	DefaultModel = "cognitivecomputations/dolphin3.0-mistral-24b:free"
	// ProviderName is reported by the model-info endpoint.
	ProviderName = "OpenRouter"
)

// Chat message roles.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Config holds the completion provider configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds a single HTTP exchange with the provider.
	Timeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Model:   DefaultModel,
		Timeout: 60 * time.Second,
	}
}

// Message represents a chat message.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	Model     string
	Messages  []Message
	MaxTokens int
}

// Provider sends chat completions to an OpenAI-compatible endpoint.
// It never retries; callers decide from the classified error.
type Provider struct {
	client *openai.Client
	config *Config
}

// NewProvider creates a new completion provider.
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// Complete performs a chat completion and returns the text of the first choice.
// Failures are returned as *errors.AIError.
func (p *Provider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if p.config.APIKey == "" {
		return "", aierrors.Configuration("completion provider API key is not configured")
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		classified := Classify(err)
		slog.Warn("completion failed",
			slog.String("model", model),
			slog.String("code", string(classified.Code)),
			slog.String("error", err.Error()))
		return "", classified
	}
	if len(resp.Choices) == 0 {
		return "", aierrors.Provider("invalid response from completion provider: no choices", nil)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", aierrors.Provider("invalid response from completion provider: empty message", nil)
	}
	return content, nil
}
