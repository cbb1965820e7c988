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


package docindex

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/ai/openai"
	"github.com/poiesic/docindex/answer"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/reembed"
	"github.com/poiesic/docindex/search"
	"github.com/poiesic/docindex/storage"
	"github.com/poiesic/docindex/storage/badger"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "documents"

// Database ties one collection to the services that fill and query it.
type Database struct {
	backend   *badger.Backend
	index     storage.Index
	provider  ai.AIProvider
	pipeline  *ingestion.Pipeline
	searcher  *search.Searcher
	responder *answer.Responder
	logger    *slog.Logger
	closed    bool
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig     *ai.Config
	provider     ai.AIProvider
	dimension    int
	collection   string
	inMemory     bool
	logger       *slog.Logger
	pipelineOpts []ingestion.Option
	searchOpts   []search.Option
	answerOpts   []answer.Option
}

// WithAIConfig configures the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider supplies a ready-made provider in place of the OpenAI-compatible one.
// The database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithDimension sets the vector length expected from the provider.
// Without it, a supplied provider's dimension is fixed by the first insert.
func WithDimension(dimension int) DatabaseOption {
	return func(o *databaseOptions) {
		o.dimension = dimension
	}
}

// WithCollection selects the collection to open.
func WithCollection(name string) DatabaseOption {
	return func(o *databaseOptions) {
		o.collection = name
	}
}

// WithInMemory keeps all data in memory; the path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// WithIngestionOptions passes options through to the ingestion pipeline.
func WithIngestionOptions(opts ...ingestion.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithSearchOptions passes options through to the searcher.
func WithSearchOptions(opts ...search.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}

// WithAnswerOptions passes options through to the responder.
func WithAnswerOptions(opts ...answer.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.answerOpts = append(o.answerOpts, opts...)
	}
}

// NewDatabase opens (or creates) the database at filePath and initializes its collection.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig:   ai.DefaultConfig(),
		collection: DefaultCollection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	provider := options.provider
	dimension := options.dimension
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
		if dimension == 0 {
			dimension = options.aiConfig.EmbeddingDimension
		}
	}

	db := &Database{
		provider: provider,
		logger:   options.logger.With("component", "database"),
	}
	if err := db.open(filePath, options, dimension); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) open(filePath string, options *databaseOptions, dimension int) error {
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return err
	}
	db.backend = backend

	spec := core.IndexSpec{Model: db.provider.EmbeddingModel(), Dimension: dimension}
	index, err := badger.NewIndex(backend, options.collection, spec)
	if err != nil {
		return err
	}
	db.index = index
	if err := index.Initialize(context.Background()); err != nil {
		return err
	}

	pipelineOpts := append([]ingestion.Option{ingestion.WithLogger(options.logger)}, options.pipelineOpts...)
	db.pipeline, err = ingestion.NewPipeline(index, db.provider.Embedder(), pipelineOpts...)
	if err != nil {
		return err
	}

	searchOpts := append([]search.Option{search.WithLogger(options.logger)}, options.searchOpts...)
	db.searcher, err = search.NewSearcher(index, db.provider.Embedder(), searchOpts...)
	if err != nil {
		return err
	}

	answerOpts := append([]answer.Option{answer.WithLogger(options.logger)}, options.answerOpts...)
	db.responder, err = answer.NewResponder(db.searcher, index, db.provider.Generator(), answerOpts...)
	return err
}

// Close releases the workers and closes the index, the provider and the storage.
// Calling Close more than once is a no-op.
func (db *Database) Close() error {
	if db.closed {
		return nil
	}
	db.closed = true

	if db.pipeline != nil {
		db.pipeline.Release()
	}
	if db.searcher != nil {
		db.searcher.Release()
	}

	var errs []error
	if db.index != nil {
		if err := db.index.Close(); err != nil {
			db.logger.Error("error closing index", "err", err)
			errs = append(errs, err)
		}
	}
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if db.backend != nil {
		if err := db.backend.Close(); err != nil {
			db.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Index returns the underlying collection.
func (db *Database) Index() storage.Index {
	return db.index
}

// Provider returns the AI provider.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// Ingest decodes, chunks, embeds and stores one document named name.
func (db *Database) Ingest(ctx context.Context, name string, data []byte) (*ingestion.Result, error) {
	return db.pipeline.Ingest(ctx, ingestion.Document{Name: name, Data: data})
}

// IngestFile reads the file at path and ingests it under its base name.
func (db *Database) IngestFile(ctx context.Context, path string) (*ingestion.Result, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return db.pipeline.Ingest(ctx, doc)
}

// Reingest replaces the chunks of a previously ingested document. Unchanged
// documents are skipped.
func (db *Database) Reingest(ctx context.Context, name string, data []byte) (*ingestion.Result, error) {
	return db.pipeline.Reingest(ctx, ingestion.Document{Name: name, Data: data})
}

// ReingestFile is Reingest for the file at path.
func (db *Database) ReingestFile(ctx context.Context, path string) (*ingestion.Result, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return db.pipeline.Reingest(ctx, doc)
}

// IngestAll ingests docs concurrently; see ingestion.Pipeline.IngestAll.
func (db *Database) IngestAll(ctx context.Context, docs []ingestion.Document) ([]*ingestion.Result, error) {
	return db.pipeline.IngestAll(ctx, docs)
}

func readDocument(path string) (ingestion.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingestion.Document{}, err
	}
	return ingestion.Document{Name: filepath.Base(path), Data: data}, nil
}

// Retrieve returns up to k chunks closest to query, closest first.
func (db *Database) Retrieve(ctx context.Context, query string, k int) ([]core.SearchHit, error) {
	return db.searcher.Retrieve(ctx, query, k)
}

// Ask answers query from the indexed documents.
func (db *Database) Ask(ctx context.Context, query string) (*answer.Response, error) {
	return db.responder.Ask(ctx, query)
}

// AskWithK answers query from k chunks instead of the configured number.
func (db *Database) AskWithK(ctx context.Context, query string, k int) (*answer.Response, error) {
	return db.responder.AskWithK(ctx, query, k)
}

// Summarize summarizes the collection.
func (db *Database) Summarize(ctx context.Context) (*answer.Response, error) {
	return db.responder.Summarize(ctx)
}

// Stats reports the collection's chunk count and sources.
func (db *Database) Stats(ctx context.Context) (*core.Stats, error) {
	return db.index.Stats(ctx)
}

// DeleteBySource removes every chunk of source and returns how many were removed.
func (db *Database) DeleteBySource(ctx context.Context, source string) (int, error) {
	return db.index.DeleteBySource(ctx, source)
}

// Clear removes every record and manifest from the collection.
func (db *Database) Clear(ctx context.Context) error {
	return db.index.Clear(ctx)
}

// Migrate copies the collection into the target collection on the same
// storage, embedding every chunk with provider. It returns the number of
// records copied. provider is not closed.
func (db *Database) Migrate(ctx context.Context, target string, provider ai.AIProvider, config *reembed.Config, progress io.Writer) (int, error) {
	targetIndex, err := badger.NewIndex(db.backend, target, core.IndexSpec{Model: provider.EmbeddingModel()})
	if err != nil {
		return 0, err
	}
	defer targetIndex.Close()

	if err := targetIndex.Initialize(ctx); err != nil {
		return 0, err
	}

	migrator, err := reembed.NewMigrator(db.index, targetIndex, provider.Embedder(), config, progress)
	if err != nil {
		return 0, err
	}
	return migrator.Run(ctx)
}
