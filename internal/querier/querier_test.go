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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeInvoker struct {
	answer     string
	err        error
	lastPrompt string
	lastTokens int
	calls      int
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt string, maxTokens int) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastTokens = maxTokens
	return f.answer, f.err
}

type fakeKB struct {
	answer  string
	sources []string
	err     error
	calls   int
}

func (f *fakeKB) Query(_ context.Context, _ string) (string, []string, error) {
	f.calls++
	return f.answer, f.sources, f.err
}

func TestRulesQuerier_KnowledgeBasePreferred(t *testing.T) {
	invoker := &fakeInvoker{answer: "direct answer"}
	kb := &fakeKB{answer: "kb answer", sources: []string{"s3://docs/rulebook.pdf"}}
	q := NewRulesQuerier(invoker, kb, time.Second, nil)

	result := q.Query(context.Background(), "What tires are legal?")

	if result.Answer != "kb answer" {
		t.Errorf("answer = %q, want the knowledge base answer", result.Answer)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "s3://docs/rulebook.pdf" {
		t.Errorf("sources = %v", result.Sources)
	}
	if invoker.calls != 0 {
		t.Error("direct model must not be invoked when the knowledge base succeeds")
	}
}

func TestRulesQuerier_KnowledgeBaseWithoutCitations(t *testing.T) {
	kb := &fakeKB{answer: "kb answer"}
	q := NewRulesQuerier(&fakeInvoker{}, kb, time.Second, nil)

	result := q.Query(context.Background(), "What tires are legal?")

	if len(result.Sources) != 1 || result.Sources[0] != RulebookSource {
		t.Errorf("sources = %v, want the constant rulebook label", result.Sources)
	}
}

func TestRulesQuerier_FallsBackToDirectModel(t *testing.T) {
	invoker := &fakeInvoker{answer: "direct answer"}
	kb := &fakeKB{err: fmt.Errorf("kb unavailable")}
	q := NewRulesQuerier(invoker, kb, time.Second, nil)

	result := q.Query(context.Background(), "What is the minimum weight?")

	if result.Answer != "direct answer" {
		t.Errorf("answer = %q, want the direct-model answer", result.Answer)
	}
	if len(result.Sources) != 1 || result.Sources[0] != RulebookSource {
		t.Errorf("sources = %v", result.Sources)
	}
	if !strings.Contains(invoker.lastPrompt, "Spec3 racing rulebook") {
		t.Errorf("prompt missing rulebook instruction: %q", invoker.lastPrompt)
	}
	if !strings.Contains(invoker.lastPrompt, "What is the minimum weight?") {
		t.Errorf("prompt missing the user message: %q", invoker.lastPrompt)
	}
	if invoker.lastTokens != 1000 {
		t.Errorf("max tokens = %d, want 1000", invoker.lastTokens)
	}
}

func TestRulesQuerier_NilKnowledgeBaseUsesDirectModel(t *testing.T) {
	invoker := &fakeInvoker{answer: "direct answer"}
	q := NewRulesQuerier(invoker, nil, time.Second, nil)

	result := q.Query(context.Background(), "anything with rules")

	if result.Answer != "direct answer" {
		t.Errorf("answer = %q", result.Answer)
	}
	if invoker.calls != 1 {
		t.Errorf("invoker calls = %d, want 1", invoker.calls)
	}
}

func TestRulesQuerier_FailureDegradesToApology(t *testing.T) {
	invoker := &fakeInvoker{err: fmt.Errorf("credentials expired")}
	kb := &fakeKB{err: fmt.Errorf("kb unavailable")}
	q := NewRulesQuerier(invoker, kb, time.Second, nil)

	result := q.Query(context.Background(), "What is the rule?")

	if result.Answer == "" {
		t.Fatal("failure must still produce a non-empty answer")
	}
	if !strings.Contains(result.Answer, "Error querying knowledge base") {
		t.Errorf("answer = %q, want an error-describing answer", result.Answer)
	}
	if result.Sources == nil || len(result.Sources) != 0 {
		t.Errorf("sources = %#v, want an empty non-nil slice", result.Sources)
	}
}

func TestGeneralQuerier_Success(t *testing.T) {
	invoker := &fakeInvoker{answer: "Spec3 is a spec racing class."}
	q := NewGeneralQuerier(invoker, time.Second, nil)

	result := q.Query(context.Background(), "What is Spec3?")

	if result.Answer != "Spec3 is a spec racing class." {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.Sources) != 1 || result.Sources[0] != GeneralSource {
		t.Errorf("sources = %v", result.Sources)
	}
	if !strings.Contains(invoker.lastPrompt, "helpful assistant for Spec3 racing") {
		t.Errorf("prompt = %q", invoker.lastPrompt)
	}
	if invoker.lastTokens != 500 {
		t.Errorf("max tokens = %d, want 500", invoker.lastTokens)
	}
}

func TestGeneralQuerier_FailureDegradesToFriendlyAnswer(t *testing.T) {
	invoker := &fakeInvoker{err: fmt.Errorf("model unavailable")}
	q := NewGeneralQuerier(invoker, time.Second, nil)

	result := q.Query(context.Background(), "Hello")

	if result.Answer != generalFallbackAnswer {
		t.Errorf("answer = %q, want the friendly fallback", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Errorf("sources = %v, want empty", result.Sources)
	}
}

func TestDynamicQuerier_PlaceholderWhenUnconfigured(t *testing.T) {
	q := NewDynamicQuerier("", time.Second, nil)

	result := q.Query(context.Background(), "What is the price of brake pads?")

	if !strings.Contains(result.Answer, "What is the price of brake pads?") {
		t.Errorf("placeholder answer must reference the message: %q", result.Answer)
	}
	if len(result.Sources) != 1 || result.Sources[0] != DynamicSource {
		t.Errorf("sources = %v", result.Sources)
	}
}

func TestDynamicQuerier_ServerAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %q, want /query", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"Brake pads are $120.","sources":["parts sheet"]}`))
	}))
	defer server.Close()

	q := NewDynamicQuerier(server.URL, time.Second, nil)
	result := q.Query(context.Background(), "brake pad price")

	if result.Answer != "Brake pads are $120." {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "parts sheet" {
		t.Errorf("sources = %v", result.Sources)
	}
}

func TestDynamicQuerier_ServerFailureUsesPlaceholder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	q := NewDynamicQuerier(server.URL, time.Second, nil)
	result := q.Query(context.Background(), "schedule")

	if !strings.Contains(result.Answer, "placeholder") {
		t.Errorf("answer = %q, want the placeholder", result.Answer)
	}
	if len(result.Sources) != 1 || result.Sources[0] != DynamicSource {
		t.Errorf("sources = %v", result.Sources)
	}
}
