// Copyright 2025 Poiesic Systems
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


package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/poiesic/docindex/ai"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateAnswerFunc is called by GenerateAnswer if set.
	GenerateAnswerFunc func(ctx context.Context, query string, passages []ai.Passage) (string, error)

	// SummarizeFunc is called by Summarize if set.
	SummarizeFunc func(ctx context.Context, passages []ai.Passage) (string, error)

	answerCalls    atomic.Int64
	summarizeCalls atomic.Int64
}

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// GenerateAnswer returns a canned answer naming the query and passage count.
func (m *MockGenerator) GenerateAnswer(ctx context.Context, query string, passages []ai.Passage) (string, error) {
	m.answerCalls.Add(1)

	if m.GenerateAnswerFunc != nil {
		return m.GenerateAnswerFunc(ctx, query, passages)
	}
	return fmt.Sprintf("answer to %q from %d passages", query, len(passages)), nil
}

// Summarize returns a canned summary naming the passage count.
func (m *MockGenerator) Summarize(ctx context.Context, passages []ai.Passage) (string, error) {
	m.summarizeCalls.Add(1)

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, passages)
	}
	return fmt.Sprintf("summary of %d passages", len(passages)), nil
}

// AnswerCalls returns the number of times GenerateAnswer was called.
func (m *MockGenerator) AnswerCalls() int {
	return int(m.answerCalls.Load())
}

// SummarizeCalls returns the number of times Summarize was called.
func (m *MockGenerator) SummarizeCalls() int {
	return int(m.summarizeCalls.Load())
}

// Reset clears the call counts and custom functions.
func (m *MockGenerator) Reset() {
	m.answerCalls.Store(0)
	m.summarizeCalls.Store(0)
	m.GenerateAnswerFunc = nil
	m.SummarizeFunc = nil
}
