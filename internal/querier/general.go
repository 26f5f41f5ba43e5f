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

	"go.uber.org/zap"
)

const generalFallbackAnswer = "I'm here to help with Spec3 racing questions! Could you be more specific?"

// GeneralQuerier answers everything that matched no keyword list with a
// generic assistant prompt and a shorter reply ceiling.
type GeneralQuerier struct {
	invoker ModelInvoker
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeneralQuerier creates a general querier.
func NewGeneralQuerier(invoker ModelInvoker, timeout time.Duration, logger *zap.Logger) *GeneralQuerier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneralQuerier{
		invoker: invoker,
		timeout: timeout,
		logger:  logger,
	}
}

// Query answers a general question. It never returns an error; provider
// failure degrades to a friendly prompt for a more specific question.
func (q *GeneralQuerier) Query(ctx context.Context, message string) Result {
	prompt := fmt.Sprintf(generalPromptFormat, message)
	answer, err := invokeWithTimeout(ctx, q.invoker, prompt, generalMaxTokens, q.timeout, q.logger)
	if err != nil {
		q.logger.Warn("General model invocation failed", zap.Error(err))
		return Result{
			Answer:  generalFallbackAnswer,
			Sources: []string{},
		}
	}

	return Result{Answer: answer, Sources: []string{GeneralSource}}
}
