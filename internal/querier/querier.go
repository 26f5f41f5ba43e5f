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

// Package querier adapts each remote answer provider to one normalized
// contract: a message in, an answer plus provenance labels out. A querier
// never returns an error; provider failure degrades to an apologetic answer
// with empty sources inside the querier's own boundary.
package querier

import (
	"context"
	"time"

	"github.com/your-org/spec3-chatbot/internal/resilience"
	"go.uber.org/zap"
)

// Source labels attached to answers by provider.
const (
	RulebookSource = "Spec3 Rulebook"
	DynamicSource  = "Google Sheets via MCP"
	GeneralSource  = "General Spec3 Knowledge"
)

const (
	rulesPromptFormat   = "Based on the Spec3 racing rulebook and documentation, please answer: %s"
	generalPromptFormat = "You are a helpful assistant for Spec3 racing. Answer this question: %s"

	rulesMaxTokens   = 1000
	generalMaxTokens = 500
)

// Result is the normalized shape every querier produces, including on
// internal failure.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Querier answers a user message from one provider.
type Querier interface {
	Query(ctx context.Context, message string) Result
}

// ModelInvoker is a direct model-invocation backend. Both the Bedrock
// runtime client and the OpenAI client satisfy it.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// KnowledgeBase is a retrieve-and-generate backend.
type KnowledgeBase interface {
	Query(ctx context.Context, message string) (answer string, sources []string, err error)
}

// invokeWithTimeout bounds a single model invocation.
func invokeWithTimeout(ctx context.Context, invoker ModelInvoker, prompt string, maxTokens int, timeout time.Duration, logger *zap.Logger) (string, error) {
	var answer string
	err := resilience.WithTimeout(ctx, timeout, logger, func(ctx context.Context) error {
		var invokeErr error
		answer, invokeErr = invoker.Invoke(ctx, prompt, maxTokens)
		return invokeErr
	})
	return answer, err
}
