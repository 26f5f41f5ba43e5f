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

// Package chatbot orchestrates a single chat turn: classify the message,
// dispatch to the matching querier path, and wrap the result in the response
// envelope. The orchestrator holds no conversation state; the session ID is
// echoed back untouched.
package chatbot

import (
	"context"
	"time"

	"github.com/your-org/spec3-chatbot/internal/classifier"
	"github.com/your-org/spec3-chatbot/internal/synth"
	"go.uber.org/zap"
)

// DefaultAnswer replaces an empty provider answer so the caller always gets
// a displayable response.
const DefaultAnswer = "Sorry, I could not find an answer."

// panicAnswer is the generic apology returned when a provider path panics.
const panicAnswer = "Sorry, something went wrong while processing your question."

// ChatResponse is the envelope returned for every chat turn.
type ChatResponse struct {
	Response  string   `json:"response"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id"`
	Timestamp string   `json:"timestamp"`
}

// Chatbot answers one message at a time with no memory between turns.
type Chatbot struct {
	synthesizer *synth.Synthesizer
	logger      *zap.Logger
	now         func() time.Time
}

// New creates a Chatbot over the given synthesizer.
func New(synthesizer *synth.Synthesizer, logger *zap.Logger) *Chatbot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chatbot{
		synthesizer: synthesizer,
		logger:      logger,
		now:         time.Now,
	}
}

// Process answers a single message. It never returns an error: provider
// failures already degraded to apology answers inside the queriers, an empty
// answer becomes DefaultAnswer, and a panic anywhere below is recovered into
// a generic apology so one bad turn cannot take the server down.
func (c *Chatbot) Process(ctx context.Context, message, sessionID string) (resp ChatResponse) {
	start := c.now()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered from panic while processing message",
				zap.Any("panic", r),
				zap.String("session_id", sessionID),
			)
			resp = ChatResponse{
				Response:  panicAnswer,
				Sources:   []string{},
				SessionID: sessionID,
				Timestamp: c.now().UTC().Format(time.RFC3339),
			}
		}
	}()

	intent := classifier.Classify(message)
	c.logger.Info("Classified message",
		zap.String("intent", intent.String()),
		zap.String("session_id", sessionID),
	)

	result := c.synthesizer.Answer(ctx, intent, message)

	answer := result.Answer
	if answer == "" {
		answer = DefaultAnswer
	}
	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	c.logger.Info("Processed message",
		zap.String("intent", intent.String()),
		zap.Duration("duration", c.now().Sub(start)),
		zap.Int("source_count", len(sources)),
	)

	return ChatResponse{
		Response:  answer,
		Sources:   sources,
		SessionID: sessionID,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}
}
