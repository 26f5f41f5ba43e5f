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

package resilience

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestWithTimeout_CompletesInTime(t *testing.T) {
	err := WithTimeout(context.Background(), time.Second, nil, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestWithTimeout_PropagatesError(t *testing.T) {
	wantErr := fmt.Errorf("provider unavailable")
	err := WithTimeout(context.Background(), time.Second, nil, func(ctx context.Context) error {
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestWithTimeout_TimesOut(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, nil, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			// Block past the deadline so the select in WithTimeout fires first.
			time.Sleep(50 * time.Millisecond)
			return ctx.Err()
		}
	})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !IsTimeout(err) {
		t.Errorf("IsTimeout(%v) = false, want true", err)
	}
}

func TestIsTimeout_NonTimeoutError(t *testing.T) {
	if IsTimeout(fmt.Errorf("plain error")) {
		t.Error("plain error should not be a timeout")
	}
	if IsTimeout(nil) {
		t.Error("nil should not be a timeout")
	}
}
