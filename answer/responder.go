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


package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

const (
	// DefaultK is the number of chunks retrieved for each question.
	DefaultK = 5

	// NoInformation answers a question when nothing relevant is indexed.
	NoInformation = "I don't have any relevant information in the uploaded documents to answer your question. Please upload some documents first."

	// NoDocuments is the summary of an empty collection.
	NoDocuments = "No documents to summarize."

	fallbackPreamble = "I apologize, but I encountered an error while generating a response. " +
		"However, I found some relevant information in the documents that might help answer your question:\n\n"
	summaryUnavailable = "Error generating summary. The answer service is unavailable."

	fallbackChars = 500
	summaryChunks = 10
	summaryChars  = 500
)

// Retriever returns the chunks closest to a query, closest first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]core.SearchHit, error)
}

// Response is the answer to a question or a collection summary.
type Response struct {
	Text     string
	Sources  []string         // distinct sources of the passages, first-seen order
	Hits     []core.SearchHit // retrieved chunks, empty for summaries
	Degraded bool             // generation failed; Text holds raw context
}

// Responder answers questions from indexed documents.
type Responder struct {
	retriever Retriever
	index     storage.Index
	generator ai.Generator
	k         int
	logger    *slog.Logger
}

// Option configures a Responder.
type Option func(*Responder) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Responder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithK sets how many chunks are retrieved per question.
func WithK(k int) Option {
	return func(r *Responder) error {
		if k < 1 {
			return fmt.Errorf("%w: got %d", core.ErrInvalidK, k)
		}
		r.k = k
		return nil
	}
}

// NewResponder creates a Responder. index supplies chunks for summaries.
func NewResponder(retriever Retriever, index storage.Index, generator ai.Generator, opts ...Option) (*Responder, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	r := &Responder{
		retriever: retriever,
		index:     index,
		generator: generator,
		k:         DefaultK,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "responder")
	return r, nil
}

// Ask answers query from the closest indexed chunks.
func (r *Responder) Ask(ctx context.Context, query string) (*Response, error) {
	return r.AskWithK(ctx, query, r.k)
}

// AskWithK is Ask drawing on k chunks instead of the configured number.
func (r *Responder) AskWithK(ctx context.Context, query string, k int) (*Response, error) {
	hits, err := r.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Response{Text: NoInformation, Hits: hits}, nil
	}

	passages := Passages(hits)
	response := &Response{Sources: ai.Sources(passages), Hits: hits}

	text, err := r.generator.GenerateAnswer(ctx, query, passages)
	if err != nil {
		r.logger.Warn("answer generation failed, returning retrieved context", "err", err)
		response.Text = fallbackPreamble + truncate(ai.FormatContext(passages), fallbackChars) + "..."
		response.Degraded = true
		return response, nil
	}
	response.Text = text
	return response, nil
}

// Summarize describes the first indexed chunks of the collection.
func (r *Responder) Summarize(ctx context.Context) (*Response, error) {
	records, _, err := r.index.Records(ctx, 0, summaryChunks)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Response{Text: NoDocuments}, nil
	}

	passages := make([]ai.Passage, len(records))
	for i, record := range records {
		passages[i] = ai.Passage{
			Content: truncate(record.Chunk.Content, summaryChars),
			Source:  record.Chunk.Source,
		}
	}
	response := &Response{Sources: ai.Sources(passages)}

	text, err := r.generator.Summarize(ctx, passages)
	if err != nil {
		r.logger.Warn("summary generation failed", "err", err)
		response.Text = summaryUnavailable
		response.Degraded = true
		return response, nil
	}
	response.Text = text
	return response, nil
}

// Passages converts search hits into generator passages, preserving order.
func Passages(hits []core.SearchHit) []ai.Passage {
	passages := make([]ai.Passage, len(hits))
	for i, hit := range hits {
		passages[i] = ai.Passage{
			Content:  hit.Record.Chunk.Content,
			Source:   hit.Record.Chunk.Source,
			Distance: hit.Distance,
		}
	}
	return passages
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
