package reembed

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_MigratedCollectionIsSearchable(t *testing.T) {
	source, target := setupTestIndexes(t)
	ctx := context.Background()

	pipeline, err := ingestion.NewPipeline(source, &mock.MockEmbedder{Dimension: sourceDimension}, ingestion.WithPoolSize(2))
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.IngestAll(ctx, []ingestion.Document{
		{Name: "sales.csv", Data: []byte("name,revenue\nacme,10\nglobex,12\n")},
		{Name: "notes.txt", Data: []byte("The quarterly target is 40 units.")},
	})
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	m, err := NewMigrator(source, target, embedder, &Config{BatchSize: 2, ReportInterval: 1, MaxRetries: 1, RetryDelay: time.Millisecond}, nil)
	require.NoError(t, err)

	copied, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, copied)

	searcher, err := search.NewSearcher(target, embedder)
	require.NoError(t, err)
	defer searcher.Release()

	hits, err := searcher.Retrieve(ctx, "The quarterly target is 40 units.", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "notes.txt", hits[0].Record.Chunk.Source)

	// The migrated collection recognizes unchanged documents.
	reingest, err := ingestion.NewPipeline(target, embedder)
	require.NoError(t, err)
	defer reingest.Release()

	result, err := reingest.Reingest(ctx, ingestion.Document{Name: "notes.txt", Data: []byte("The quarterly target is 40 units.")})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
}
