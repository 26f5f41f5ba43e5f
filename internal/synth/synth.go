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

// Package synth selects the querier path for an intent and merges the two
// provider answers of the hybrid path into one response.
package synth

import (
	"context"
	"fmt"
	"sync"

	"github.com/your-org/spec3-chatbot/internal/classifier"
	"github.com/your-org/spec3-chatbot/internal/querier"
	"go.uber.org/zap"
)

// combinedAnswerFormat joins the rules and dynamic answers under fixed
// literal headers. Both slots are always filled: a failed querier already
// degraded to an apology inside its own boundary.
const combinedAnswerFormat = "Based on the rules: %s\n\nCurrent data: %s"

// Synthesizer routes an intent to its querier path.
type Synthesizer struct {
	rules   querier.Querier
	dynamic querier.Querier
	general querier.Querier
	logger  *zap.Logger
}

// New creates a Synthesizer over the three queriers.
func New(rules, dynamic, general querier.Querier, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		rules:   rules,
		dynamic: dynamic,
		general: general,
		logger:  logger,
	}
}

// Answer resolves a message for the given intent. Single-source intents pass
// the querier result through unchanged; the hybrid intent fans out to the
// rules and dynamic queriers concurrently and concatenates both answers.
func (s *Synthesizer) Answer(ctx context.Context, intent classifier.Intent, message string) querier.Result {
	switch intent {
	case classifier.IntentRules:
		return s.rules.Query(ctx, message)
	case classifier.IntentPartsOrSchedule:
		return s.dynamic.Query(ctx, message)
	case classifier.IntentHybrid:
		return s.combined(ctx, message)
	default:
		return s.general.Query(ctx, message)
	}
}

// combined runs both queriers concurrently and joins on both results. This
// is a join, not a race: both answers are needed, so the slower call is
// never cancelled.
func (s *Synthesizer) combined(ctx context.Context, message string) querier.Result {
	var rules, data querier.Result
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		rules = s.rules.Query(ctx, message)
	}()
	go func() {
		defer wg.Done()
		data = s.dynamic.Query(ctx, message)
	}()
	wg.Wait()

	sources := make([]string, 0, len(rules.Sources)+len(data.Sources))
	sources = append(sources, rules.Sources...)
	sources = append(sources, data.Sources...)

	s.logger.Debug("Combined both provider answers",
		zap.Int("rules_answer_length", len(rules.Answer)),
		zap.Int("data_answer_length", len(data.Answer)),
		zap.Int("source_count", len(sources)),
	)

	return querier.Result{
		Answer:  fmt.Sprintf(combinedAnswerFormat, rules.Answer, data.Answer),
		Sources: sources,
	}
}
