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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadConfig(t *testing.T) {
	configPath := writeTestConfig(t, `
provider:
  name: "bedrock"
bedrock:
  region: "eu-west-1"
  model_arn: "anthropic.claude-3-sonnet-20240229-v1:0"
  knowledge_base_id: "KB12345"
mcp:
  server_url: "http://mcp:8000"
server:
  port: 9090
timeouts:
  query_seconds: 15
logging:
  level: "debug"
  format: "json"
  output: "stdout"
feedback:
  storage_type: "file"
  file_path: "./feedback.log"
`)

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Bedrock.Region != "eu-west-1" {
		t.Errorf("Bedrock.Region = %q, want %q", config.Bedrock.Region, "eu-west-1")
	}
	if config.Bedrock.KnowledgeBaseID != "KB12345" {
		t.Errorf("Bedrock.KnowledgeBaseID = %q, want %q", config.Bedrock.KnowledgeBaseID, "KB12345")
	}
	if config.MCP.ServerURL != "http://mcp:8000" {
		t.Errorf("MCP.ServerURL = %q, want %q", config.MCP.ServerURL, "http://mcp:8000")
	}
	if config.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", config.Server.Port)
	}
	if config.Timeouts.QuerySeconds != 15 {
		t.Errorf("Timeouts.QuerySeconds = %d, want 15", config.Timeouts.QuerySeconds)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	configPath := writeTestConfig(t, `
provider:
  name: "bedrock"
`)

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Bedrock.Region != "us-east-1" {
		t.Errorf("Bedrock.Region = %q, want default %q", config.Bedrock.Region, "us-east-1")
	}
	if config.Bedrock.ModelARN != "anthropic.claude-3-sonnet-20240229-v1:0" {
		t.Errorf("Bedrock.ModelARN = %q, want default model", config.Bedrock.ModelARN)
	}
	if config.MCP.ServerURL != "http://localhost:8000" {
		t.Errorf("MCP.ServerURL = %q, want default %q", config.MCP.ServerURL, "http://localhost:8000")
	}
	if config.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", config.Server.Port)
	}
	if config.Timeouts.QuerySeconds != 30 {
		t.Errorf("Timeouts.QuerySeconds = %d, want default 30", config.Timeouts.QuerySeconds)
	}
	if config.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", config.Logging.Level, "info")
	}
}

func TestLoadConfigMissingKnowledgeBaseIsNotAnError(t *testing.T) {
	// The rules querier falls back to direct model invocation without a
	// knowledge base, so an empty ID must pass validation.
	configPath := writeTestConfig(t, `
provider:
  name: "bedrock"
bedrock:
  region: "us-east-1"
  model_arn: "anthropic.claude-3-sonnet-20240229-v1:0"
`)

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want success without knowledge_base_id", err)
	}
	if config.Bedrock.KnowledgeBaseID != "" {
		t.Errorf("Bedrock.KnowledgeBaseID = %q, want empty", config.Bedrock.KnowledgeBaseID)
	}
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	configPath := writeTestConfig(t, `
provider:
  name: "bedrock"
bedrock:
  region: "us-east-1"
`)

	t.Setenv("AWS_REGION", "ap-southeast-2")
	t.Setenv("KNOWLEDGE_BASE_ID", "KBENV99")
	t.Setenv("MCP_SERVER_URL", "http://mcp-env:8000")

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Bedrock.Region != "ap-southeast-2" {
		t.Errorf("Bedrock.Region = %q, want env override", config.Bedrock.Region)
	}
	if config.Bedrock.KnowledgeBaseID != "KBENV99" {
		t.Errorf("Bedrock.KnowledgeBaseID = %q, want env override", config.Bedrock.KnowledgeBaseID)
	}
	if config.MCP.ServerURL != "http://mcp-env:8000" {
		t.Errorf("MCP.ServerURL = %q, want env override", config.MCP.ServerURL)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "invalid provider",
			content: `
provider:
  name: "gemini"
`,
			wantErr: "provider.name",
		},
		{
			name: "openai provider without api key",
			content: `
provider:
  name: "openai"
`,
			wantErr: "openai.apikey",
		},
		{
			name: "invalid port",
			content: `
provider:
  name: "bedrock"
server:
  port: 99999
`,
			wantErr: "server.port",
		},
		{
			name: "invalid timeout",
			content: `
provider:
  name: "bedrock"
timeouts:
  query_seconds: 0
`,
			wantErr: "timeouts.query_seconds",
		},
		{
			name: "invalid log level",
			content: `
provider:
  name: "bedrock"
logging:
  level: "verbose"
`,
			wantErr: "logging.level",
		},
		{
			name: "invalid feedback storage",
			content: `
provider:
  name: "bedrock"
feedback:
  storage_type: "redis"
`,
			wantErr: "feedback.storage_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeTestConfig(t, tt.content)
			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("Load() error = nil, want error for explicit missing file")
	}
}

func TestWatchConfig(t *testing.T) {
	configPath := writeTestConfig(t, `
provider:
  name: "bedrock"
`)

	if err := WatchConfig(configPath, func(*Config) {}); err != nil {
		t.Errorf("WatchConfig() error = %v, want watcher installed for existing file", err)
	}

	if err := WatchConfig("/nonexistent/config.yaml", func(*Config) {}); err == nil {
		t.Error("WatchConfig() error = nil, want error for missing file")
	}
}

func TestMaskSensitiveValues(t *testing.T) {
	config := &Config{
		OpenAI:  OpenAIConfig{APIKey: "sk-test-1234567890abcdef"},
		Bedrock: BedrockConfig{KnowledgeBaseID: "KB1234567890"},
	}

	masked := config.MaskSensitiveValues()

	if !strings.HasPrefix(masked.OpenAI.APIKey, "sk-test-") {
		t.Errorf("masked API key = %q, want first 8 characters preserved", masked.OpenAI.APIKey)
	}
	if !strings.Contains(masked.OpenAI.APIKey, "*") {
		t.Errorf("masked API key = %q, want remainder masked", masked.OpenAI.APIKey)
	}
	if masked.Bedrock.KnowledgeBaseID == config.Bedrock.KnowledgeBaseID {
		t.Error("knowledge base ID was not masked")
	}

	// Original must be untouched
	if config.OpenAI.APIKey != "sk-test-1234567890abcdef" {
		t.Error("MaskSensitiveValues modified the original config")
	}
}
