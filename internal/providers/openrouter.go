package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int // Retry attempts for rate-limit errors (default: 3)

	// Limiter is the shared admission control for outbound calls.
	// If nil, a client-local limiter with default settings is used.
	Limiter *RateLimiter
}

// OpenRouterClient implements LLMClient using the OpenRouter API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	limiter      *RateLimiter
	maxRetries   int

	// sleep is swappable for tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration)
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic/claude-3.5-sonnet"
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

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:    cfg.Limiter,
		maxRetries: cfg.MaxRetries,
		sleep:      sleepCtx,
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Limiter returns the client's admission controller.
func (c *OpenRouterClient) Limiter() *RateLimiter {
	return c.limiter
}

// Generate sends a generation request and returns the first candidate's text.
// Rate-limit rejections (429) are retried with exponential backoff; any other
// HTTP failure aborts immediately with a GenerationError.
func (c *OpenRouterClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
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

	orReq := openRouterRequest{
		Model:       model,
		Messages:    make([]openRouterMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		orReq.Messages = append(orReq.Messages, openRouterMessage{Role: m.Role, Content: m.Content})
	}

	var lastErr *GenerationError
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Admission control applies to every attempt, retries included.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		orResp, genErr := c.doRequest(ctx, "/chat/completions", &orReq)
		if genErr != nil {
			genErr.Attempts = attempt + 1
			if !genErr.RateLimited() {
				return nil, genErr
			}
			lastErr = genErr
			// Exponential backoff: 1s, 2s, 4s, ...
			c.sleep(ctx, time.Duration(1<<attempt)*time.Second)
			continue
		}

		if len(orResp.Choices) == 0 {
			return nil, &GenerationError{
				Provider:   OpenRouterName,
				StatusCode: http.StatusOK,
				Code:       "empty_response",
				Message:    "no choices in response",
				Attempts:   attempt + 1,
			}
		}

		return &GenerateResult{
			Content:          orResp.Choices[0].Message.Content,
			ModelUsed:        orResp.Model,
			PromptTokens:     orResp.Usage.PromptTokens,
			CompletionTokens: orResp.Usage.CompletionTokens,
			TotalTokens:      orResp.Usage.TotalTokens,
			ExecutionTime:    time.Since(start),
			Provider:         OpenRouterName,
			RequestID:        requestID,
			Attempts:         attempt + 1,
		}, nil
	}

	return nil, lastErr
}

// doRequest makes one HTTP request to OpenRouter. Failures are returned as
// GenerationError so the caller can decide on retry behavior.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, body *openRouterRequest) (*openRouterResponse, *GenerationError) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, &GenerationError{Provider: OpenRouterName, Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &GenerationError{Provider: OpenRouterName, Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/podshelf/podshelf")
	req.Header.Set("X-Title", "Podshelf")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &GenerationError{Provider: OpenRouterName, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenerationError{Provider: OpenRouterName, StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		genErr := &GenerationError{
			Provider:   OpenRouterName,
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
		// Providers return {"error": {"code": ..., "message": ...}} bodies.
		var errBody openRouterErrorResponse
		if jsonErr := json.Unmarshal(respBody, &errBody); jsonErr == nil && errBody.Error.Message != "" {
			genErr.Code = errBody.Error.Code.String()
			genErr.Message = errBody.Error.Message
		}
		return nil, genErr
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, &GenerationError{Provider: OpenRouterName, StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to unmarshal response: %v", err)}
	}

	return &orResp, nil
}

// sleepCtx sleeps for d, respecting context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// OpenRouter API types

type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openRouterErrorResponse struct {
	Error struct {
		Code    errorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// errorCode tolerates providers that send codes as numbers or strings.
type errorCode string

func (c *errorCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = errorCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*c = errorCode(n.String())
		return nil
	}
	*c = errorCode(string(data))
	return nil
}

func (c errorCode) String() string { return string(c) }

// Verify interface
var _ LLMClient = (*OpenRouterClient)(nil)
