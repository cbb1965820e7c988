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


package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/storage"
)

// Config holds configuration for the migration.
type Config struct {
	// BatchSize is the number of records to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Migrator copies every record of a source collection into a target
// collection, embedding the content with the target's model.
type Migrator struct {
	source    storage.Index
	target    storage.Index
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *RecordIterator
	logger    *slog.Logger
}

// NewMigrator creates a new migrator. embedder must produce vectors for the
// model named by target's spec.
// progress: where to write progress output (typically os.Stderr)
func NewMigrator(source, target storage.Index, embedder ai.Embedder, config *Config, progress io.Writer) (*Migrator, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if target == nil {
		return nil, ErrTargetRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Migrator{
		source:    source,
		target:    target,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(target, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewRecordIterator(source, config.BatchSize),
		logger:    slog.Default().With("component", "migrator"),
	}, nil
}

// Run executes the migration and returns the number of records copied.
// Source manifests are copied once all records are in place, so the target
// recognizes unchanged documents on reingest. If the migration fails, the
// records already copied are removed so it can be run again.
func (m *Migrator) Run(ctx context.Context) (int, error) {
	targetStats, err := m.target.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read target stats: %w", err)
	}
	if targetStats.TotalChunks > 0 {
		return 0, fmt.Errorf("%w: %d records", ErrTargetNotEmpty, targetStats.TotalChunks)
	}

	sourceStats, err := m.source.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read source stats: %w", err)
	}

	totalRecords := sourceStats.TotalChunks
	if totalRecords == 0 {
		fmt.Fprintf(m.progress, "No records found in collection (0 records)\n")
		return 0, nil
	}

	fmt.Fprintf(m.progress, "Starting migration of %d records to %s (batch size: %d)\n",
		totalRecords, m.target.Spec().Model, m.config.BatchSize)

	tracker := ingestion.NewProgressTracker(m.progress, "records", totalRecords, m.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = m.iterator.ForEach(ctx, func(records []*core.Record) error {
		if _, err := m.processor.Process(ctx, records); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(records)
		tracker.Set(processed)

		return nil
	})

	if err == nil {
		err = m.copyManifests(ctx, sourceStats.Sources)
	}
	if err != nil {
		m.discardTarget(ctx, processed)
		return 0, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(m.progress, "Migration complete. Processed %d records in %v (%.1f records/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/max(elapsed.Seconds(), 1e-9))

	return processed, nil
}

// discardTarget empties the target after a failed run.
func (m *Migrator) discardTarget(ctx context.Context, copied int) {
	if err := m.target.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error("failed to remove partial migration", "records", copied, "err", err)
		return
	}
	if copied > 0 {
		m.logger.Warn("removed partial migration", "records", copied)
	}
}

func (m *Migrator) copyManifests(ctx context.Context, sources []string) error {
	for _, source := range sources {
		manifest, err := m.source.Manifest(ctx, source)
		if errors.Is(err, storage.ErrNotFound) {
			m.logger.Debug("no manifest to copy", "source", source)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read manifest for %s: %w", source, err)
		}
		if err := m.target.PutManifest(ctx, manifest); err != nil {
			return fmt.Errorf("failed to copy manifest for %s: %w", source, err)
		}
	}
	return nil
}
