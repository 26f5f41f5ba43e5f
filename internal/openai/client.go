// Copyright 2025 Spec3 Chatbot Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai provides an OpenAI-backed model invoker as an alternative
// to the Bedrock runtime for direct model calls.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"
	// MaxRetries defines the maximum number of retry attempts
	MaxRetries = 3
	// BaseRetryDelay defines the base delay for exponential backoff
	BaseRetryDelay = time.Second
)

// RetryableError represents an error that can be retried
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

// Client wraps the go-openai client behind the model-invoker contract used
// by the queriers.
type Client struct {
	client *openai.Client
	logger *zap.Logger
	model  string
}

// NewClient creates a new OpenAI client.
func NewClient(apiKey, model string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if !strings.HasPrefix(apiKey, "sk-") {
		return nil, fmt.Errorf("invalid API key format")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("OpenAI client initialized",
		zap.String("model", model),
		zap.Int("max_retries", MaxRetries),
	)

	return &Client{
		client: openai.NewClient(apiKey),
		logger: logger,
		model:  model,
	}, nil
}

// Invoke sends a single-turn prompt and returns the reply text. It retries
// rate-limit and server errors with exponential backoff.
func (c *Client) Invoke(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	c.logger.Debug("Creating chat completion",
		zap.String("model", c.model),
		zap.Int("max_tokens", maxTokens),
		zap.Int("prompt_length", len(prompt)),
	)

	var lastErr error
	delay := BaseRetryDelay

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying chat completion request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = c.handleAPIError(err)

			if _, ok := lastErr.(*RetryableError); ok {
				delay = BaseRetryDelay * time.Duration(1<<uint(attempt))
				continue
			}

			return "", lastErr
		}

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices returned from OpenAI")
		}

		c.logger.Debug("Chat completion successful",
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
			zap.Int("total_tokens", resp.Usage.TotalTokens),
		)

		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// handleAPIError classifies OpenAI API errors as retryable or terminal.
func (c *Client) handleAPIError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("invalid API key or unauthorized access: %w", err)
		case http.StatusTooManyRequests:
			// The API error carries no Retry-After value; rate limits back
			// off exponentially like server errors.
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
			}
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
			}
		default:
			return fmt.Errorf("OpenAI API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}

	return fmt.Errorf("OpenAI client error: %w", err)
}
