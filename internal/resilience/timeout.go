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

// Package resilience provides timeout handling for remote provider calls.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single remote provider call.
const DefaultTimeout = 30 * time.Second

// TimeoutError marks an operation that exceeded its deadline.
type TimeoutError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a TimeoutError wrapping the given cause.
func NewTimeoutError(message string, err error) *TimeoutError {
	return &TimeoutError{Message: message, Err: err}
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// TimeoutFunc is a function that can be executed with a timeout.
type TimeoutFunc func(ctx context.Context) error

// WithTimeout executes a function with a timeout. A non-positive timeout
// falls back to DefaultTimeout.
func WithTimeout(ctx context.Context, timeout time.Duration, logger *zap.Logger, fn TimeoutFunc) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Debug("Operation completed with error",
				zap.Error(err),
				zap.Duration("timeout", timeout))
		}
		return err
	case <-timeoutCtx.Done():
		logger.Warn("Operation timed out",
			zap.Duration("timeout", timeout),
			zap.Error(timeoutCtx.Err()))
		return NewTimeoutError("operation timed out", timeoutCtx.Err())
	}
}
