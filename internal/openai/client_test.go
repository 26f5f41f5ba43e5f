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

package openai

import (
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient("", "gpt-4o", nil); err == nil {
		t.Error("expected an error for an empty API key")
	}

	if _, err := NewClient("not-a-key", "gpt-4o", nil); err == nil {
		t.Error("expected an error for a malformed API key")
	}

	client, err := NewClient("sk-test123456789", "", nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.model != DefaultModel {
		t.Errorf("model = %q, want default %q", client.model, DefaultModel)
	}
}

func TestHandleAPIError(t *testing.T) {
	client, err := NewClient("sk-test123456789", "gpt-4o", nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	testCases := []struct {
		name      string
		apiErr    *openai.APIError
		retryable bool
	}{
		{
			name:      "Rate limit is retryable",
			apiErr:    &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"},
			retryable: true,
		},
		{
			name:      "Server error is retryable",
			apiErr:    &openai.APIError{HTTPStatusCode: http.StatusBadGateway, Message: "bad gateway"},
			retryable: true,
		},
		{
			name:      "Unauthorized is terminal",
			apiErr:    &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"},
			retryable: false,
		},
		{
			name:      "Bad request is terminal",
			apiErr:    &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "bad request"},
			retryable: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := client.handleAPIError(tc.apiErr)
			retryErr, ok := got.(*RetryableError)
			if ok != tc.retryable {
				t.Fatalf("retryable = %v, want %v (err=%v)", ok, tc.retryable, got)
			}
			if ok && retryErr.StatusCode != tc.apiErr.HTTPStatusCode {
				t.Errorf("StatusCode = %d, want %d", retryErr.StatusCode, tc.apiErr.HTTPStatusCode)
			}
		})
	}
}
