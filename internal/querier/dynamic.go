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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DynamicQuerier answers parts and schedule questions from the MCP dynamic
// data server. The server is an external collaborator; when it is
// unreachable or unconfigured the querier returns a fixed-shape placeholder
// answer so the caller always gets a filled slot.
type DynamicQuerier struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDynamicQuerier creates a dynamic-data querier. endpoint may be empty.
func NewDynamicQuerier(endpoint string, timeout time.Duration, logger *zap.Logger) *DynamicQuerier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamicQuerier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Query asks the MCP server for dynamic data. It never returns an error.
func (q *DynamicQuerier) Query(ctx context.Context, message string) Result {
	if q.endpoint != "" {
		if result, ok := q.queryServer(ctx, message); ok {
			return result
		}
	}
	return q.placeholderResult(message)
}

// queryServer attempts the remote call; any failure reports ok=false so the
// caller can degrade to the placeholder.
func (q *DynamicQuerier) queryServer(ctx context.Context, message string) (Result, bool) {
	reqBody, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		q.logger.Error("Failed to marshal MCP request", zap.Error(err))
		return Result{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.endpoint+"/query", bytes.NewBuffer(reqBody))
	if err != nil {
		q.logger.Error("Failed to create MCP request", zap.Error(err))
		return Result{}, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		q.logger.Warn("MCP server request failed, using placeholder answer", zap.Error(err))
		return Result{}, false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		q.logger.Warn("MCP server returned error, using placeholder answer",
			zap.Int("status_code", resp.StatusCode))
		return Result{}, false
	}

	var mcpResponse Result
	if err := json.NewDecoder(resp.Body).Decode(&mcpResponse); err != nil {
		q.logger.Warn("Failed to decode MCP response, using placeholder answer", zap.Error(err))
		return Result{}, false
	}

	if mcpResponse.Answer == "" {
		return Result{}, false
	}
	if len(mcpResponse.Sources) == 0 {
		mcpResponse.Sources = []string{DynamicSource}
	}

	q.logger.Debug("MCP server query successful",
		zap.Int("answer_length", len(mcpResponse.Answer)))

	return mcpResponse, true
}

func (q *DynamicQuerier) placeholderResult(message string) Result {
	return Result{
		Answer:  fmt.Sprintf("MCP query result for: %s (placeholder - implement MCP client)", message),
		Sources: []string{DynamicSource},
	}
}
