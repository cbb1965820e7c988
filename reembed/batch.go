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
	"fmt"
	"time"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/storage"
)

// BatchProcessor re-embeds batches of records into a target index.
type BatchProcessor struct {
	target   storage.Index
	embedder ai.Embedder
	backoff  ingestion.Backoff
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(target storage.Index, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		target:   target,
		embedder: embedder,
		backoff:  ingestion.Backoff{MaxAttempts: maxRetries, BaseDelay: retryBaseDelay},
	}
}

// Process embeds the content of records and inserts copies into the target
// index as one batch. The records themselves are not modified.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.Record) ([]core.ID, error) {
	if len(records) == 0 {
		return nil, nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Chunk.Content
	}

	var embeddings [][]float32
	err := bp.backoff.Retry(ctx, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate embeddings after %d attempts: %w", core.ErrEmbedding, bp.backoff.MaxAttempts, err)
	}

	if len(embeddings) != len(records) {
		return nil, fmt.Errorf("%w: embedding count mismatch: expected %d, got %d", core.ErrEmbedding, len(records), len(embeddings))
	}

	copies := make([]*core.Record, len(records))
	for i, record := range records {
		copies[i] = &core.Record{Vector: embeddings[i], Chunk: record.Chunk}
	}

	ids, err := bp.target.Insert(ctx, copies...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert records: %w", err)
	}

	return ids, nil
}
