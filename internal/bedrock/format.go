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

package bedrock

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format identifies the request/response wire shape expected by a Bedrock
// model family. Each format pairs a request builder with a response parser;
// the pair is selected once from the model identifier at construction time.
type Format int

const (
	// FormatClaude uses the Anthropic messages format.
	FormatClaude Format = iota
	// FormatNova uses the Amazon Nova messages format.
	FormatNova
)

const (
	anthropicVersion = "bedrock-2023-05-31"

	novaTemperature = 0.7
	novaTopP        = 0.9

	// InferenceProfileModelID is the model ID used for inference-profile ARNs,
	// which do not carry a usable model ID in their resource path.
	InferenceProfileModelID = "us.amazon.nova-premier-v1:0"
)

// String returns the format name.
func (f Format) String() string {
	if f == FormatNova {
		return "nova"
	}
	return "claude"
}

// Codec builds request bodies and parses response bodies for one format.
type Codec struct {
	format Format
}

// CodecFor selects the codec for a model identifier. Nova models use the
// Nova shape; everything else uses the Claude shape.
func CodecFor(modelID string) Codec {
	if strings.Contains(modelID, "nova") {
		return Codec{format: FormatNova}
	}
	return Codec{format: FormatClaude}
}

// Format returns the selected format.
func (c Codec) Format() Format {
	return c.format
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string        `json:"anthropic_version"`
	MaxTokens        int           `json:"max_tokens"`
	Messages         []chatMessage `json:"messages"`
}

type novaRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"maxTokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"topP"`
}

// BuildRequest serializes a single-turn user prompt into the request body
// shape of the codec's format.
func (c Codec) BuildRequest(prompt string, maxTokens int) ([]byte, error) {
	messages := []chatMessage{{Role: "user", Content: prompt}}

	switch c.format {
	case FormatNova:
		return json.Marshal(novaRequest{
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: novaTemperature,
			TopP:        novaTopP,
		})
	default:
		return json.Marshal(claudeRequest{
			AnthropicVersion: anthropicVersion,
			MaxTokens:        maxTokens,
			Messages:         messages,
		})
	}
}

type modelResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Completion string `json:"completion"`
}

// ParseResponse extracts the first text segment of a model reply. It accepts
// the content-array shape shared by Claude and Nova, the older completion
// field, and falls back to the raw payload when no known field is present.
func (c Codec) ParseResponse(body []byte) (string, error) {
	var resp modelResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}

	if len(resp.Content) > 0 && resp.Content[0].Text != "" {
		return resp.Content[0].Text, nil
	}
	if resp.Completion != "" {
		return resp.Completion, nil
	}
	return string(body), nil
}

// ResolveModelID extracts a usable model ID from a model ARN. Inference
// profiles do not expose the model in the ARN resource path, so they map to
// a fixed model ID; other ARNs use the last path segment. Plain model IDs
// pass through unchanged.
func ResolveModelID(modelARN string) string {
	if !strings.HasPrefix(modelARN, "arn:aws:bedrock:") {
		return modelARN
	}
	if strings.Contains(modelARN, "inference-profile") {
		return InferenceProfileModelID
	}
	parts := strings.Split(modelARN, "/")
	return parts[len(parts)-1]
}
