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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/chunking"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/loader"
	"github.com/poiesic/docindex/storage"
)

const (
	defaultEmbedBatchSize = 32
	defaultMaxAttempts    = 3
	defaultBaseDelay      = 200 * time.Millisecond
	defaultMaxDelay       = 10 * time.Second
)

// Document is an uploaded file: its declared name and raw bytes.
// The name's extension selects the decoder and the name becomes the chunk source.
type Document struct {
	Name string
	Data []byte
}

// Result describes the outcome of ingesting one document.
type Result struct {
	Source   string
	Chunks   int
	IDs      []core.ID
	Skipped  bool // Reingest found an unchanged document
	Replaced bool // Reingest removed a previous version
}

// Pipeline orchestrates decoding, chunking, embedding and insertion of documents.
// It is safe for concurrent use.
type Pipeline struct {
	index          storage.Index
	embedder       ai.Embedder
	chunker        *chunking.Chunker
	chunkOpts      []chunking.Option
	pool           *ants.Pool
	embedBatchSize int
	backoff        Backoff
	progress       io.Writer
	logger         *slog.Logger
	locks          sourceLocks
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunkOptions configures the chunker used for every document.
func WithChunkOptions(opts ...chunking.Option) Option {
	return func(p *Pipeline) error {
		p.chunkOpts = append(p.chunkOpts, opts...)
		return nil
	}
}

// WithEmbedBatchSize sets how many chunks are sent to the embedder per call.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("embed batch size must be at least 1, got %d", size)
		}
		p.embedBatchSize = size
		return nil
	}
}

// WithRetry sets how often a failed embedding batch is attempted and the
// initial backoff between attempts.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.backoff.MaxAttempts = maxAttempts
		p.backoff.BaseDelay = baseDelay
		return nil
	}
}

// WithProgress reports IngestAll progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline writing to index.
func NewPipeline(index storage.Index, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		index:          index,
		embedder:       embedder,
		pool:           pool,
		embedBatchSize: defaultEmbedBatchSize,
		backoff:        Backoff{MaxAttempts: defaultMaxAttempts, BaseDelay: defaultBaseDelay, MaxDelay: defaultMaxDelay},
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	chunker, err := chunking.NewChunker(p.chunkOpts...)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.chunker = chunker
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// ChunkOptions returns the effective chunking configuration.
func (p *Pipeline) ChunkOptions() chunking.Options {
	return p.chunker.Options()
}

// Ingest decodes, chunks, embeds and indexes doc.
// Failures are returned as *core.IngestError naming the document.
func (p *Pipeline) Ingest(ctx context.Context, doc Document) (*Result, error) {
	return p.dispatch(ctx, doc, p.ingest)
}

// Reingest indexes doc unless an identical version is already indexed.
// A changed document replaces every chunk of its previous version in one
// change; if anything fails the previous version stays. Ingest and Reingest
// calls for the same document run one at a time.
func (p *Pipeline) Reingest(ctx context.Context, doc Document) (*Result, error) {
	return p.dispatch(ctx, doc, p.reingest)
}

// IngestAll ingests docs concurrently. Each document succeeds or fails on its
// own; results[i] is nil when docs[i] failed, and the returned error joins
// every failure.
func (p *Pipeline) IngestAll(ctx context.Context, docs []Document) ([]*Result, error) {
	results := make([]*Result, len(docs))
	errs := make([]error, len(docs))

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, "documents", len(docs), 1)
		tracker.Start()
	}

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.Ingest(ctx, doc)
			switch {
			case tracker == nil:
			case errs[i] != nil:
				tracker.Fail()
			default:
				tracker.Add(1)
			}
		}()
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}
	return results, errors.Join(errs...)
}

type outcome struct {
	result *Result
	err    error
}

// dispatch runs fn on the worker pool detached from ctx cancellation and
// waits for it unless ctx ends first.
func (p *Pipeline) dispatch(ctx context.Context, doc Document, fn func(context.Context, Document) (*Result, error)) (*Result, error) {
	if doc.Name == "" {
		return nil, &core.IngestError{Err: ErrNameRequired}
	}
	if err := ctx.Err(); err != nil {
		return nil, &core.IngestError{Source: doc.Name, Err: err}
	}

	done := make(chan outcome, 1)
	work := context.WithoutCancel(ctx)
	err := p.pool.Submit(func() {
		result, err := fn(work, doc)
		done <- outcome{result: result, err: err}
	})
	if err != nil {
		return nil, &core.IngestError{Source: doc.Name, Err: err}
	}

	select {
	case <-ctx.Done():
		p.logger.Warn("caller stopped waiting, ingest continues", "source", doc.Name)
		return nil, &core.IngestError{Source: doc.Name, Err: ctx.Err()}
	case out := <-done:
		if out.err != nil {
			p.logger.Error("ingest failed", "source", doc.Name, "err", out.err)
			return nil, &core.IngestError{Source: doc.Name, Err: out.err}
		}
		return out.result, nil
	}
}

// prepare decodes and chunks doc and embeds every chunk.
func (p *Pipeline) prepare(ctx context.Context, doc Document) ([]*core.Record, error) {
	decoded, err := loader.Load(ctx, doc.Name, doc.Data)
	if err != nil {
		return nil, err
	}

	chunks, err := p.chunker.Chunk(decoded)
	if err != nil {
		return nil, err
	}

	vectors, err := p.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	records := make([]*core.Record, len(chunks))
	for i := range chunks {
		records[i] = &core.Record{Vector: vectors[i], Chunk: chunks[i]}
	}
	return records, nil
}

func (p *Pipeline) ingest(ctx context.Context, doc Document) (*Result, error) {
	unlock := p.locks.lock(doc.Name)
	defer unlock()

	records, err := p.prepare(ctx, doc)
	if err != nil {
		return nil, err
	}
	ids, err := p.index.Insert(ctx, records...)
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, doc, ids), nil
}

// reingest holds the source lock from the manifest check to the write, so
// concurrent reingests of one source apply one after another.
func (p *Pipeline) reingest(ctx context.Context, doc Document) (*Result, error) {
	unlock := p.locks.lock(doc.Name)
	defer unlock()

	digest := core.DigestContent(doc.Data)
	manifest, err := p.index.Manifest(ctx, doc.Name)
	switch {
	case err == nil && manifest.Digest == digest:
		p.logger.Info("document unchanged, skipping", "source", doc.Name)
		return &Result{Source: doc.Name, Chunks: manifest.Chunks, Skipped: true}, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	records, err := p.prepare(ctx, doc)
	if err != nil {
		return nil, err
	}

	ids, removed, err := p.index.Replace(ctx, doc.Name, records...)
	if err != nil {
		return nil, err
	}
	result := p.finish(ctx, doc, ids)
	result.Replaced = removed > 0
	return result, nil
}

// finish records the manifest of a stored document.
func (p *Pipeline) finish(ctx context.Context, doc Document, ids []core.ID) *Result {
	manifest := &core.SourceManifest{
		Source: doc.Name,
		Digest: core.DigestContent(doc.Data),
		Chunks: len(ids),
	}
	if err := p.index.PutManifest(ctx, manifest); err != nil {
		p.logger.Warn("failed to store manifest", "source", doc.Name, "err", err)
	}

	p.logger.Info("ingested document", "source", doc.Name, "chunks", len(ids))
	return &Result{Source: doc.Name, Chunks: len(ids), IDs: ids}
}

// embed generates vectors for chunks in batches, retrying failed batches.
func (p *Pipeline) embed(ctx context.Context, chunks []core.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += p.embedBatchSize {
		end := min(start+p.embedBatchSize, len(chunks))
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Content
		}

		var batch [][]float32
		err := p.backoff.Retry(ctx, func(ctx context.Context) error {
			var err error
			batch, err = p.embedder.EmbedTexts(ctx, texts)
			return err
		})
		if err != nil {
			if errors.Is(err, core.ErrEmbedding) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d vectors, received %d", core.ErrEmbedding, len(texts), len(batch))
		}

		p.logger.Debug("embedded batch", "count", len(batch))
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
