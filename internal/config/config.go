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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// Config represents the complete application configuration
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Bedrock  BedrockConfig  `mapstructure:"bedrock"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	MCP      MCPConfig      `mapstructure:"mcp"`
	Server   ServerConfig   `mapstructure:"server"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Feedback FeedbackConfig `mapstructure:"feedback"`
}

// ProviderConfig selects the model backend used by the queriers
type ProviderConfig struct {
	Name string `mapstructure:"name"`
}

// BedrockConfig contains AWS Bedrock configuration
type BedrockConfig struct {
	Region          string `mapstructure:"region"`
	ModelARN        string `mapstructure:"model_arn"`
	KnowledgeBaseID string `mapstructure:"knowledge_base_id"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey string `mapstructure:"apikey"`
	Model  string `mapstructure:"model"`
}

// MCPConfig contains the dynamic-data MCP server configuration
type MCPConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// TimeoutsConfig contains per-remote-call timeout settings in seconds
type TimeoutsConfig struct {
	QuerySeconds int `mapstructure:"query_seconds"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// FeedbackConfig contains feedback storage configuration
type FeedbackConfig struct {
	StorageType string `mapstructure:"storage_type"`
	FilePath    string `mapstructure:"file_path"`
	DBPath      string `mapstructure:"db_path"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over config file values.
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// The config file is optional: the deployment may be driven entirely by
	// environment variables.
	hasFile, err := setConfigFile(v, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SPEC3_CHATBOT")

	if hasFile {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("provider.name", "bedrock")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_arn", "anthropic.claude-3-sonnet-20240229-v1:0")

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-4o")

	// MCP defaults
	v.SetDefault("mcp.server_url", "http://localhost:8000")

	// Server defaults
	v.SetDefault("server.port", 8080)

	// Timeout defaults
	v.SetDefault("timeouts.query_seconds", 30)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Feedback defaults
	v.SetDefault("feedback.storage_type", "file")
	v.SetDefault("feedback.file_path", "./feedback.log")
	v.SetDefault("feedback.db_path", "./feedback.db")
}

// setConfigFile sets the configuration file path. It reports whether a config
// file was found; a missing file in the default locations is not an error.
func setConfigFile(v *viper.Viper, configPath string) (bool, error) {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return false, fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return true, nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return false, fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return true, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	for _, path := range []string{"./configs/config.yaml", "./config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return true, nil
		}
	}

	return false, nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"AWS_REGION":        "bedrock.region",
		"MODEL_ARN":         "bedrock.model_arn",
		"KNOWLEDGE_BASE_ID": "bedrock.knowledge_base_id",
		"BEDROCK_KB_ID":     "bedrock.knowledge_base_id",
		"MODEL_PROVIDER":    "provider.name",
		"OPENAI_API_KEY":    "openai.apikey",
		"OPENAI_MODEL":      "openai.model",
		"MCP_SERVER_URL":    "mcp.server_url",
		"PORT":              "server.port",
		"LOG_LEVEL":         "logging.level",
		"LOG_FORMAT":        "logging.format",
		"LOG_OUTPUT":        "logging.output",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid
// values. A missing knowledge base ID is deliberately not an error: the rules
// querier falls back to direct model invocation without one.
func validateConfig(config *Config) error {
	var errors []ValidationError

	validProviders := []string{"bedrock", "openai"}
	if !contains(validProviders, config.Provider.Name) {
		errors = append(errors, ValidationError{
			Field:   "provider.name",
			Message: fmt.Sprintf("provider must be one of: %s", strings.Join(validProviders, ", ")),
		})
	}

	if config.Provider.Name == "bedrock" {
		if config.Bedrock.Region == "" {
			errors = append(errors, ValidationError{
				Field:   "bedrock.region",
				Message: "AWS region is required. Set via config file or AWS_REGION environment variable",
			})
		}
		if config.Bedrock.ModelARN == "" {
			errors = append(errors, ValidationError{
				Field:   "bedrock.model_arn",
				Message: "model ARN or ID is required. Set via config file or MODEL_ARN environment variable",
			})
		}
	}

	if config.Provider.Name == "openai" && config.OpenAI.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "openai.apikey",
			Message: "OpenAI API key is required. Set via config file or OPENAI_API_KEY environment variable",
		})
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if config.Timeouts.QuerySeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "timeouts.query_seconds",
			Message: "query_seconds must be greater than 0",
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	validStorageTypes := []string{"file", "sqlite"}
	if !contains(validStorageTypes, config.Feedback.StorageType) {
		errors = append(errors, ValidationError{
			Field:   "feedback.storage_type",
			Message: fmt.Sprintf("storage type must be one of: %s", strings.Join(validStorageTypes, ", ")),
		})
	}

	if len(errors) > 0 {
		var errorMessages []string
		for _, err := range errors {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errorMessages, "\n"))
	}

	return nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}
	if masked.Bedrock.KnowledgeBaseID != "" {
		masked.Bedrock.KnowledgeBaseID = maskValue(masked.Bedrock.KnowledgeBaseID)
	}

	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// WatchConfig enables configuration hot-reloading for development
func WatchConfig(configPath string, callback func(*Config)) error {
	v := viper.New()

	hasFile, err := setConfigFile(v, configPath)
	if err != nil {
		return err
	}
	if !hasFile {
		return fmt.Errorf("cannot watch config: no config file found")
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Printf("Config file changed: %s\n", e.Name)

		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			ValidateRequired: true,
		})
		if err != nil {
			fmt.Printf("Failed to reload config: %v\n", err)
			return
		}

		callback(config)
	})

	return nil
}
