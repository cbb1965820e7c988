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


package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// maxCosineDistance is the largest possible cosine distance; as a ceiling it keeps every hit.
const maxCosineDistance = 2.0

// Searcher retrieves the chunks closest to a free-text query.
// It is safe for concurrent use.
type Searcher struct {
	index       storage.Index
	embedder    ai.Embedder
	pool        *ants.Pool
	maxDistance float32
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPoolSize bounds how many query embeddings run at once.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithMaxDistance drops hits whose cosine distance exceeds d.
// Default keeps every hit.
func WithMaxDistance(d float32) Option {
	return func(s *Searcher) error {
		if d < 0 || d > maxCosineDistance {
			return fmt.Errorf("%w: got %v", ErrInvalidMaxDistance, d)
		}
		s.maxDistance = d
		return nil
	}
}

// NewSearcher creates a new searcher over index.
func NewSearcher(index storage.Index, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		index:       index,
		embedder:    embedder,
		pool:        pool,
		maxDistance: maxCosineDistance,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Retrieve returns up to k chunks closest to query, closest first.
func (s *Searcher) Retrieve(ctx context.Context, query string, k int) ([]core.SearchHit, error) {
	return s.RetrieveWithMonitor(ctx, query, k, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage of the search.
func (s *Searcher) RetrieveWithMonitor(ctx context.Context, query string, k int, monitor SearchMonitor) ([]core.SearchHit, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidK, k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	monitor.Start(query, k)

	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(vector)

	hits, err := s.index.Search(ctx, vector, k)
	if err != nil {
		s.logger.Error("error searching index", "k", k, "err", err)
		return nil, err
	}
	monitor.AfterIndexSearch(hits)

	results := make([]core.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Distance > s.maxDistance {
			monitor.BelowRelevance(hit)
			continue
		}
		results = append(results, hit)
	}

	s.logger.Debug("retrieved chunks", "k", k, "count", len(results))
	monitor.Finish(results)
	return results, nil
}

type embedding struct {
	vector []float32
	err    error
}

// embedQuery embeds query on the worker pool.
func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	done := make(chan embedding, 1)
	err := s.pool.Submit(func() {
		vector, err := s.embedder.EmbedText(context.WithoutCancel(ctx), query)
		done <- embedding{vector: vector, err: err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err == nil && len(out.vector) == 0 {
			out.err = errors.New("empty vector")
		}
		if out.err != nil && !errors.Is(out.err, core.ErrEmbedding) {
			return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, out.err)
		}
		return out.vector, out.err
	}
}

// Release releases the worker pool.
// The searcher should not be used after calling Release.
func (s *Searcher) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}
