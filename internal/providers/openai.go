package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI chat client.
type OpenAIConfig struct {
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int // Retry attempts for rate-limit errors (default: 3)
	BaseURL      string
	HTTPClient   *http.Client // Optional (tests)

	// Limiter is the shared admission control for outbound calls.
	Limiter *RateLimiter
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
type OpenAIClient struct {
	defaultModel string
	client       openai.Client
	limiter      *RateLimiter
	maxRetries   int

	sleep func(ctx context.Context, d time.Duration)
}

// NewOpenAIClient creates a new OpenAI chat client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(DefaultWindow, DefaultCapacity)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// SDK-level retries disabled; backoff is handled here so 429
		// behavior matches the other clients.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		defaultModel: cfg.DefaultModel,
		client:       openai.NewClient(opts...),
		limiter:      cfg.Limiter,
		maxRetries:   cfg.MaxRetries,
		sleep:        sleepCtx,
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Limiter returns the client's admission controller.
func (c *OpenAIClient) Limiter() *RateLimiter {
	return c.limiter
}

// Generate sends a chat completion request via the OpenAI SDK.
func (c *OpenAIClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	retries := req.Retries
	if retries <= 0 {
		retries = c.maxRetries
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	var lastErr *GenerationError
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			genErr := mapOpenAIError(err)
			genErr.Attempts = attempt + 1
			if !genErr.RateLimited() {
				return nil, genErr
			}
			lastErr = genErr
			c.sleep(ctx, time.Duration(1<<attempt)*time.Second)
			continue
		}

		if len(resp.Choices) == 0 {
			return nil, &GenerationError{
				Provider:   OpenAIName,
				StatusCode: http.StatusOK,
				Code:       "empty_response",
				Message:    "no choices in response",
				Attempts:   attempt + 1,
			}
		}

		return &GenerateResult{
			Content:          resp.Choices[0].Message.Content,
			ModelUsed:        resp.Model,
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
			ExecutionTime:    time.Since(start),
			Provider:         OpenAIName,
			RequestID:        requestID,
			Attempts:         attempt + 1,
		}, nil
	}

	return nil, lastErr
}

// mapOpenAIError converts SDK errors into GenerationError values.
func mapOpenAIError(err error) *GenerationError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &GenerationError{
			Provider:   OpenAIName,
			StatusCode: apiErr.StatusCode,
			Code:       apiErr.Code,
			Message:    apiErr.Message,
		}
	}
	return &GenerationError{Provider: OpenAIName, Message: err.Error()}
}

// Verify interface
var _ LLMClient = (*OpenAIClient)(nil)
