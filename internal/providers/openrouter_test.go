package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":    "test-id",
		"model": "anthropic/claude-3.5-sonnet",
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
}

func newTestClient(serverURL string) *OpenRouterClient {
	c := NewOpenRouterClient(OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: serverURL,
	})
	c.sleep = func(ctx context.Context, d time.Duration) {}
	return c
}

func TestOpenRouterClient_Generate(t *testing.T) {
	t.Run("successful generation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatResponse("Hello!"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		result, err := client.Generate(context.Background(), &GenerateRequest{
			Messages: []Message{{Role: "user", Content: "Hello"}},
		})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if result.Content != "Hello!" {
			t.Errorf("Content = %q", result.Content)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", result.Attempts)
		}
	})

	t.Run("retries on 429 then succeeds", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": 429, "message": "rate limited"},
				})
				return
			}
			json.NewEncoder(w).Encode(chatResponse("recovered"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		result, err := client.Generate(context.Background(), &GenerateRequest{
			Messages: []Message{{Role: "user", Content: "Hello"}},
		})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if result.Content != "recovered" {
			t.Errorf("Content = %q", result.Content)
		}
		if result.Attempts != 2 {
			t.Errorf("Attempts = %d, want 2", result.Attempts)
		}
	})

	t.Run("exhausts retries on persistent 429", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": "rate_limit", "message": "slow down"},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &GenerateRequest{
			Messages: []Message{{Role: "user", Content: "Hello"}},
			Retries:  2,
		})
		if err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			t.Fatalf("error type = %T, want *GenerationError", err)
		}
		if !genErr.RateLimited() {
			t.Error("expected rate-limited error")
		}
		if genErr.Message != "slow down" {
			t.Errorf("Message = %q, want provider message", genErr.Message)
		}
		// Retries=2 means 3 total attempts.
		if got := calls.Load(); got != 3 {
			t.Errorf("HTTP calls = %d, want 3", got)
		}
	})

	t.Run("aborts immediately on non-retryable error", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": "invalid_api_key", "message": "bad key"},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &GenerateRequest{
			Messages: []Message{{Role: "user", Content: "Hello"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			t.Fatalf("error type = %T, want *GenerationError", err)
		}
		if genErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("StatusCode = %d, want 401", genErr.StatusCode)
		}
		if genErr.Code != "invalid_api_key" {
			t.Errorf("Code = %q, want invalid_api_key", genErr.Code)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("HTTP calls = %d, want 1 (no retry)", got)
		}
	})

	t.Run("fails on empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "test-id",
				"model":   "m",
				"choices": []any{},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Generate(context.Background(), &GenerateRequest{
			Messages: []Message{{Role: "user", Content: "Hello"}},
		})
		if err == nil {
			t.Fatal("expected error for empty choices")
		}
	})

	t.Run("waits for rate limiter admission", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(chatResponse("ok"))
		}))
		defer server.Close()

		limiter := NewRateLimiter(time.Minute, 1)
		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
			Limiter: limiter,
		})

		// Fill the window so the next call blocks until context cancel.
		if !limiter.TryAdmit() {
			t.Fatal("TryAdmit() should succeed")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := client.Generate(ctx, &GenerateRequest{
			Messages: []Message{{Role: "user", Content: "Hello"}},
		})
		if err != context.DeadlineExceeded {
			t.Errorf("Generate() error = %v, want context.DeadlineExceeded", err)
		}
	})
}
