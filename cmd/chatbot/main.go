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

// Package main provides the Spec3 racing chatbot service. It serves the chat
// API, the health endpoint, and a minimal browser chat page.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/your-org/spec3-chatbot/internal/bedrock"
	"github.com/your-org/spec3-chatbot/internal/chatbot"
	"github.com/your-org/spec3-chatbot/internal/config"
	"github.com/your-org/spec3-chatbot/internal/feedback"
	"github.com/your-org/spec3-chatbot/internal/health"
	"github.com/your-org/spec3-chatbot/internal/openai"
	"github.com/your-org/spec3-chatbot/internal/querier"
	"github.com/your-org/spec3-chatbot/internal/synth"
)

const (
	serviceName = "spec3-chatbot"
	version     = "1.0.0"

	// DefaultSessionID is used when the caller does not supply a session ID
	DefaultSessionID = "default"
)

// ChatRequest represents an incoming chat request. The message is not
// validated: an empty or missing message still gets an answer through the
// general path, only malformed JSON fails the request.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// FeedbackRequest represents an incoming feedback submission
type FeedbackRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
	Response  string `json:"response" binding:"required"`
	Rating    string `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}

// Server wires the chatbot and its supporting services behind the HTTP API
type Server struct {
	config        *config.Config
	logger        *zap.Logger
	bot           *chatbot.Chatbot
	healthManager *health.Manager
	feedbackStore *feedback.Store
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "chatbot",
		Short: "Spec3 racing chatbot service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", serviceName, version)
		},
	})

	return rootCmd
}

func runServer(configPath string) error {
	// Local development keeps credentials in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting chatbot service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("provider", cfg.Provider.Name),
		zap.Int("port", cfg.Server.Port),
	)
	logger.Info("Loaded configuration", zap.Any("config", cfg.MaskSensitiveValues()))

	// Hot reload only logs the new configuration; provider clients are
	// constructed once and keep their startup settings.
	if err := config.WatchConfig(configPath, func(newCfg *config.Config) {
		logger.Info("Configuration reloaded", zap.Any("config", newCfg.MaskSensitiveValues()))
	}); err != nil {
		logger.Debug("Configuration hot reload disabled", zap.Error(err))
	}

	server, err := buildServer(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to build server", zap.Error(err))
		return err
	}
	defer func() { _ = server.feedbackStore.Close() }()

	router := setupRouter(server)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	if err := router.Run(addr); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		return err
	}
	return nil
}

// initializeLogger builds a zap logger from the logging configuration
func initializeLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "text" {
		zapCfg.Encoding = "console"
	}
	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}

	return zapCfg.Build()
}

// buildServer constructs the provider clients, queriers, and chatbot from the
// configuration.
func buildServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	queryTimeout := time.Duration(cfg.Timeouts.QuerySeconds) * time.Second

	var invoker querier.ModelInvoker
	var kb querier.KnowledgeBase

	switch cfg.Provider.Name {
	case "openai":
		client, err := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		invoker = client
	default:
		client, err := bedrock.NewClient(ctx, cfg.Bedrock.Region, cfg.Bedrock.ModelARN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Bedrock client: %w", err)
		}
		invoker = client

		if cfg.Bedrock.KnowledgeBaseID != "" {
			knowledgeBase, err := bedrock.NewKnowledgeBase(ctx, cfg.Bedrock.Region, cfg.Bedrock.KnowledgeBaseID, cfg.Bedrock.ModelARN, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create knowledge base client: %w", err)
			}
			kb = knowledgeBase
		} else {
			logger.Warn("No knowledge base configured, rules queries use direct model invocation")
		}
	}

	rules := querier.NewRulesQuerier(invoker, kb, queryTimeout, logger)
	dynamic := querier.NewDynamicQuerier(cfg.MCP.ServerURL, queryTimeout, logger)
	general := querier.NewGeneralQuerier(invoker, queryTimeout, logger)

	synthesizer := synth.New(rules, dynamic, general, logger)
	bot := chatbot.New(synthesizer, logger)

	feedbackStore, err := feedback.NewStore(feedback.Config{
		StorageType: cfg.Feedback.StorageType,
		FilePath:    cfg.Feedback.FilePath,
		DBPath:      cfg.Feedback.DBPath,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback store: %w", err)
	}

	healthManager := health.NewManager(serviceName, version, logger)
	if cfg.MCP.ServerURL != "" {
		healthManager.AddChecker("mcp", health.HTTPHealthChecker(cfg.MCP.ServerURL+"/health", nil))
	}
	healthManager.AddChecker("feedback", health.DatabaseHealthChecker("feedback", feedbackStore.Ping))

	return &Server{
		config:        cfg,
		logger:        logger,
		bot:           bot,
		healthManager: healthManager,
		feedbackStore: feedbackStore,
	}, nil
}

// setupRouter configures the Gin router and routes
func setupRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())

	// The browser chat page is optional; the JSON API works without the
	// template and static assets.
	if _, err := os.Stat("templates"); err == nil {
		router.LoadHTMLGlob("templates/*")
		router.GET("/", s.handleHomePage)
	}
	if _, err := os.Stat("static"); err == nil {
		router.Static("/static", "./static")
	}

	router.GET("/health", s.handleHealth)
	router.POST("/chat", s.handleChat)
	router.POST("/feedback", s.handleFeedback)

	return router
}

// requestIDMiddleware attaches a request ID to every request, generating one
// when the caller did not send X-Request-ID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// handleHomePage serves the chat page
func (s *Server) handleHomePage(c *gin.Context) {
	c.HTML(http.StatusOK, "chat.html", gin.H{
		"title": "Spec3 Racing Chatbot",
	})
}

// handleHealth returns the service health status. Degraded dependencies keep
// a 200 status because every querier has a fallback answer path.
func (s *Server) handleHealth(c *gin.Context) {
	result := s.healthManager.Check(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

// handleChat answers a single chat message
func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	resp := s.bot.Process(c.Request.Context(), req.Message, sessionID)
	c.JSON(http.StatusOK, resp)
}

// handleFeedback records feedback on a previous answer
func (s *Server) handleFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	record, err := s.feedbackStore.Save(feedback.Record{
		SessionID: req.SessionID,
		Message:   req.Message,
		Response:  req.Response,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		s.logger.Error("Failed to save feedback", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": record.ID})
}
