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

// Package bedrock provides clients for the AWS Bedrock model-invocation and
// knowledge-base retrieve-and-generate APIs.
package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"
)

const contentTypeJSON = "application/json"

// RuntimeAPI is the subset of the Bedrock runtime client used for direct
// model invocation. It exists so tests can substitute a double.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client invokes a single Bedrock model with the format codec selected for it.
type Client struct {
	runtime RuntimeAPI
	codec   Codec
	modelID string
	logger  *zap.Logger
}

// NewClient constructs a Client backed by the default AWS credential chain.
func NewClient(ctx context.Context, region, modelARN string, logger *zap.Logger) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewClientWithAPI(bedrockruntime.NewFromConfig(cfg), modelARN, logger), nil
}

// NewClientWithAPI constructs a Client with an injected runtime API.
func NewClientWithAPI(api RuntimeAPI, modelARN string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	modelID := ResolveModelID(modelARN)
	codec := CodecFor(modelID)

	logger.Info("Bedrock model client initialized",
		zap.String("model_id", modelID),
		zap.String("format", codec.Format().String()),
	)

	return &Client{
		runtime: api,
		codec:   codec,
		modelID: modelID,
		logger:  logger,
	}
}

// ModelID returns the resolved model identifier.
func (c *Client) ModelID() string {
	return c.modelID
}

// Invoke sends a single-turn prompt to the model and returns the first text
// segment of the reply.
func (c *Client) Invoke(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := c.codec.BuildRequest(prompt, maxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to build model request: %w", err)
	}

	c.logger.Debug("Invoking Bedrock model",
		zap.String("model_id", c.modelID),
		zap.Int("max_tokens", maxTokens),
		zap.Int("prompt_length", len(prompt)),
	)

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("model invocation failed: %w", err)
	}

	text, err := c.codec.ParseResponse(out.Body)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Bedrock model invocation completed",
		zap.String("model_id", c.modelID),
		zap.Int("response_length", len(text)),
	)

	return text, nil
}
