package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
	"github.com/poiesic/docindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sourceDimension = 4

// setupTestIndexes opens two collections on one in-memory backend.
func setupTestIndexes(t *testing.T) (source, target storage.Index) {
	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)

	source, err = badger.NewIndex(backend, "old", core.IndexSpec{Model: "old-model"})
	require.NoError(t, err)
	require.NoError(t, source.Initialize(context.Background()))

	target, err = badger.NewIndex(backend, "new", core.IndexSpec{Model: mock.Model})
	require.NoError(t, err)
	require.NoError(t, target.Initialize(context.Background()))

	t.Cleanup(func() {
		target.Close()
		source.Close()
		backend.Close()
	})
	return source, target
}

func seedRecords(t *testing.T, index storage.Index, n int) []core.ID {
	records := make([]*core.Record, n)
	for i := range records {
		content := fmt.Sprintf("chunk number %d", i)
		records[i] = &core.Record{
			Vector: mock.Vector(content, sourceDimension),
			Chunk: core.Chunk{
				Content:    content,
				Source:     fmt.Sprintf("doc%d.pdf", i%2),
				Sequence:   i,
				Provenance: core.Narrative{FirstPage: i + 1, LastPage: i + 1},
			},
		}
	}
	ids, err := index.Insert(context.Background(), records...)
	require.NoError(t, err)
	return ids
}

func TestRecordIterator_Basic(t *testing.T) {
	source, _ := setupTestIndexes(t)
	want := seedRecords(t, source, 5)

	iter := NewRecordIterator(source, 2)
	var batches []int
	var ids []core.ID

	err := iter.ForEach(context.Background(), func(records []*core.Record) error {
		batches = append(batches, len(records))
		for _, r := range records {
			ids = append(ids, r.Id)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, batches)
	assert.Equal(t, want, ids)
}

func TestRecordIterator_ExactMultipleOfBatch(t *testing.T) {
	source, _ := setupTestIndexes(t)
	seedRecords(t, source, 4)

	count := 0
	err := NewRecordIterator(source, 2).ForEach(context.Background(), func(records []*core.Record) error {
		require.NotEmpty(t, records)
		count += len(records)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestRecordIterator_Empty(t *testing.T) {
	source, _ := setupTestIndexes(t)

	called := false
	err := NewRecordIterator(source, 10).ForEach(context.Background(), func(records []*core.Record) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called, "should not call fn for empty index")
}

func TestRecordIterator_StopsOnError(t *testing.T) {
	source, _ := setupTestIndexes(t)
	seedRecords(t, source, 6)

	expected := errors.New("stop")
	calls := 0
	err := NewRecordIterator(source, 2).ForEach(context.Background(), func(records []*core.Record) error {
		calls++
		return expected
	})
	assert.Equal(t, expected, err)
	assert.Equal(t, 1, calls)
}

func TestRecordIterator_ContextCanceled(t *testing.T) {
	source, _ := setupTestIndexes(t)
	seedRecords(t, source, 6)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewRecordIterator(source, 2).ForEach(ctx, func(records []*core.Record) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRecordIterator_DefaultBatchSize(t *testing.T) {
	iter := NewRecordIterator(nil, 0)
	assert.Equal(t, DefaultBatchSize, iter.batchSize)
}
