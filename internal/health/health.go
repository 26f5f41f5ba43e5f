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

// Package health reports liveness for the chatbot service and the optional
// dependencies behind it.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// StatusHealthy represents healthy status
	StatusHealthy = "healthy"
	// StatusUnhealthy represents unhealthy status
	StatusUnhealthy = "unhealthy"
	// StatusDegraded represents degraded status
	StatusDegraded = "degraded"
	// DefaultTimeout is the default timeout for health checks
	DefaultTimeout = 5 * time.Second
)

// CheckResult represents the result of a single dependency check
type CheckResult struct {
	Status    string        `json:"status"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Response is the complete health check response. The chatbot stays "healthy"
// as long as the process is up; degraded dependencies are reported but never
// fail the endpoint, because every querier has a degraded answer path.
type Response struct {
	Status       string                 `json:"status"`
	Service      string                 `json:"service"`
	Version      string                 `json:"version"`
	Uptime       time.Duration          `json:"uptime"`
	Dependencies map[string]CheckResult `json:"dependencies,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Checker interface for dependency checks
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc is a function adapter for the Checker interface
type CheckerFunc func(ctx context.Context) CheckResult

// Check implements the Checker interface
func (f CheckerFunc) Check(ctx context.Context) CheckResult {
	return f(ctx)
}

// Manager manages health checks for the chatbot service
type Manager struct {
	serviceName string
	version     string
	startTime   time.Time
	checkers    map[string]Checker
	timeout     time.Duration
	logger      *zap.Logger
}

// NewManager creates a new health check manager
func NewManager(serviceName, version string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		checkers:    make(map[string]Checker),
		timeout:     DefaultTimeout,
		logger:      logger,
	}
}

// SetTimeout sets the timeout for dependency checks
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.timeout = timeout
}

// AddChecker adds a dependency checker
func (m *Manager) AddChecker(name string, checker Checker) {
	m.checkers[name] = checker
}

// AddCheckerFunc adds a dependency checker function
func (m *Manager) AddCheckerFunc(name string, checkFunc func(ctx context.Context) CheckResult) {
	m.checkers[name] = CheckerFunc(checkFunc)
}

// Check runs all dependency checks and returns the service status. An
// unhealthy dependency degrades the service rather than failing it: the
// queriers keep answering with their fallback paths.
func (m *Manager) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	dependencies := make(map[string]CheckResult)
	overallStatus := StatusHealthy

	for name, checker := range m.checkers {
		start := time.Now()
		result := checker.Check(ctx)
		result.Latency = time.Since(start)
		result.Timestamp = time.Now()

		dependencies[name] = result

		if result.Status != StatusHealthy {
			overallStatus = StatusDegraded
			m.logger.Warn("Health check dependency not healthy",
				zap.String("dependency", name),
				zap.String("status", result.Status),
				zap.String("error", result.Error),
			)
		}
	}

	return Response{
		Status:       overallStatus,
		Service:      m.serviceName,
		Version:      m.version,
		Uptime:       time.Since(m.startTime),
		Dependencies: dependencies,
		Timestamp:    time.Now(),
	}
}

// HTTPHealthChecker creates a checker that probes an HTTP endpoint, such as
// the MCP dynamic-data server.
func HTTPHealthChecker(url string, client *http.Client) Checker {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	return CheckerFunc(func(ctx context.Context) CheckResult {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Error:   fmt.Sprintf("failed to create request: %v", err),
				Latency: time.Since(start),
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Error:   fmt.Sprintf("request failed: %v", err),
				Latency: time.Since(start),
			}
		}
		defer func() { _ = resp.Body.Close() }()

		status := StatusHealthy
		if resp.StatusCode >= 400 {
			status = StatusUnhealthy
		}

		return CheckResult{
			Status:  status,
			Latency: time.Since(start),
		}
	})
}

// DatabaseHealthChecker creates a checker over a ping function, used for the
// feedback store.
func DatabaseHealthChecker(name string, pingFunc func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		start := time.Now()

		if err := pingFunc(ctx); err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Error:   fmt.Sprintf("%s ping failed: %v", name, err),
				Latency: time.Since(start),
			}
		}

		return CheckResult{
			Status:  StatusHealthy,
			Latency: time.Since(start),
		}
	})
}
