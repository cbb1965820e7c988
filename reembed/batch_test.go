package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchProcessor_Process(t *testing.T) {
	source, target := setupTestIndexes(t)
	seedRecords(t, source, 3)
	ctx := context.Background()

	records, _, err := source.Records(ctx, 0, 10)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	bp := NewBatchProcessor(target, embedder, 3, time.Millisecond)

	ids, err := bp.Process(ctx, records)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, 1, embedder.CallCount(), "batch should be embedded in one call")

	for i, id := range ids {
		copied, err := target.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, records[i].Chunk, copied.Chunk)
		assert.Len(t, copied.Vector, mock.DefaultDimension)
	}

	// Source records are untouched.
	original, err := source.Get(ctx, records[0].Id)
	require.NoError(t, err)
	assert.Len(t, original.Vector, sourceDimension)
	assert.Equal(t, mock.DefaultDimension, target.Spec().Dimension)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	_, target := setupTestIndexes(t)
	embedder := mock.NewMockEmbedder()

	ids, err := NewBatchProcessor(target, embedder, 3, time.Millisecond).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestBatchProcessor_RetryThenSucceed(t *testing.T) {
	source, target := setupTestIndexes(t)
	seedRecords(t, source, 2)
	ctx := context.Background()
	records, _, err := source.Records(ctx, 0, 10)
	require.NoError(t, err)

	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("temporary error")
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.Vector(text, 16)
		}
		return vectors, nil
	}

	ids, err := NewBatchProcessor(target, embedder, 3, time.Millisecond).Process(ctx, records)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, 3, attempts)
}

func TestBatchProcessor_Failures(t *testing.T) {
	tests := []struct {
		name    string
		vectors func(texts []string) ([][]float32, error)
	}{
		{"embedder error", func(texts []string) ([][]float32, error) {
			return nil, errors.New("persistent error")
		}},
		{"count mismatch", func(texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, target := setupTestIndexes(t)
			seedRecords(t, source, 2)
			ctx := context.Background()
			records, _, err := source.Records(ctx, 0, 10)
			require.NoError(t, err)

			embedder := mock.NewMockEmbedder()
			embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
				return tt.vectors(texts)
			}

			_, err = NewBatchProcessor(target, embedder, 2, time.Millisecond).Process(ctx, records)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrEmbedding)

			stats, err := target.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, stats.TotalChunks, "no partial batch should be written")
		})
	}
}
