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

package querier

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/spec3-chatbot/internal/resilience"
	"go.uber.org/zap"
)

// RulesQuerier answers rulebook questions. When a knowledge base is
// configured it is preferred; an unconfigured or failing knowledge base
// falls back to a direct model invocation with the rulebook prompt.
type RulesQuerier struct {
	invoker ModelInvoker
	kb      KnowledgeBase
	timeout time.Duration
	logger  *zap.Logger
}

// NewRulesQuerier creates a rules querier. kb may be nil, in which case
// every query uses the direct-model path.
func NewRulesQuerier(invoker ModelInvoker, kb KnowledgeBase, timeout time.Duration, logger *zap.Logger) *RulesQuerier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RulesQuerier{
		invoker: invoker,
		kb:      kb,
		timeout: timeout,
		logger:  logger,
	}
}

// Query answers a rulebook question. It never returns an error; any failure
// of both provider paths degrades to an error-describing answer with empty
// sources.
func (q *RulesQuerier) Query(ctx context.Context, message string) Result {
	if q.kb != nil {
		answer, sources, err := q.queryKnowledgeBase(ctx, message)
		if err == nil {
			if len(sources) == 0 {
				sources = []string{RulebookSource}
			}
			return Result{Answer: answer, Sources: sources}
		}
		q.logger.Warn("Knowledge base query failed, falling back to direct model invocation",
			zap.Error(err))
	}

	prompt := fmt.Sprintf(rulesPromptFormat, message)
	answer, err := invokeWithTimeout(ctx, q.invoker, prompt, rulesMaxTokens, q.timeout, q.logger)
	if err != nil {
		q.logger.Error("Rules model invocation failed", zap.Error(err))
		return Result{
			Answer:  fmt.Sprintf("Error querying knowledge base: %v", err),
			Sources: []string{},
		}
	}

	return Result{Answer: answer, Sources: []string{RulebookSource}}
}

func (q *RulesQuerier) queryKnowledgeBase(ctx context.Context, message string) (string, []string, error) {
	var answer string
	var sources []string
	err := resilience.WithTimeout(ctx, q.timeout, q.logger, func(ctx context.Context) error {
		var queryErr error
		answer, sources, queryErr = q.kb.Query(ctx, message)
		return queryErr
	})
	return answer, sources, err
}
