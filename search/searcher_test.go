package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
	"github.com/poiesic/docindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 8

var testContents = []string{
	"The quarterly target is 40 units.",
	"Revenue grew in every region this year.",
	"The office closes at noon on Fridays.",
}

func setupTestIndex(t *testing.T) storage.Index {
	index, backend, err := badger.NewMemoryIndex("docs", core.IndexSpec{Model: mock.Model})
	require.NoError(t, err)
	t.Cleanup(func() {
		index.Close()
		backend.Close()
	})
	return index
}

func seedIndex(t *testing.T, index storage.Index) []core.ID {
	records := make([]*core.Record, len(testContents))
	for i, content := range testContents {
		records[i] = &core.Record{
			Vector: mock.Vector(content, testDimension),
			Chunk:  core.Chunk{Content: content, Source: "notes.txt", Sequence: i, Provenance: core.Narrative{}},
		}
	}
	ids, err := index.Insert(context.Background(), records...)
	require.NoError(t, err)
	return ids
}

func newTestSearcher(t *testing.T, index storage.Index, opts ...Option) (*Searcher, *mock.MockEmbedder) {
	embedder := &mock.MockEmbedder{Dimension: testDimension}
	s, err := NewSearcher(index, embedder, append([]Option{WithPoolSize(2)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s, embedder
}

// recordingMonitor captures the stages it observes.
type recordingMonitor struct {
	stages  []string
	dropped int
	final   []core.SearchHit
}

func (m *recordingMonitor) Start(_ string, _ int) { m.stages = append(m.stages, "start") }
func (m *recordingMonitor) AfterQueryEmbedding(_ []float32) {
	m.stages = append(m.stages, "embedded")
}
func (m *recordingMonitor) AfterIndexSearch(_ []core.SearchHit) {
	m.stages = append(m.stages, "searched")
}
func (m *recordingMonitor) BelowRelevance(_ core.SearchHit) { m.dropped++ }
func (m *recordingMonitor) Finish(hits []core.SearchHit) {
	m.stages = append(m.stages, "finish")
	m.final = hits
}

func TestNewSearcher(t *testing.T) {
	index := setupTestIndex(t)
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(index, embedder)
		require.NoError(t, err)
		defer s.Release()
		assert.NotNil(t, s)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		s, err := NewSearcher(index, embedder, WithLogger(nil), WithLogger(slog.Default()))
		require.NoError(t, err)
		s.Release()
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewSearcher(nil, embedder)
		assert.Equal(t, ErrIndexRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(index, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	for _, d := range []float32{-0.1, 2.5} {
		_, err := NewSearcher(index, embedder, WithMaxDistance(d))
		assert.ErrorIs(t, err, ErrInvalidMaxDistance)
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	s, _ := newTestSearcher(t, setupTestIndex(t))

	hits, err := s.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestRetrieve_ExactPhraseIsTopHit(t *testing.T) {
	index := setupTestIndex(t)
	ids := seedIndex(t, index)
	s, _ := newTestSearcher(t, index)

	for i, content := range testContents {
		hits, err := s.Retrieve(context.Background(), content, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, ids[i], hits[0].Record.Id)
		assert.Equal(t, "notes.txt", hits[0].Record.Chunk.Source)
		assert.InDelta(t, 0, hits[0].Distance, 1e-5)
	}
}

func TestRetrieve_OrderedAndBounded(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)
	s, _ := newTestSearcher(t, index)

	hits, err := s.Retrieve(context.Background(), "quarterly targets", 10)
	require.NoError(t, err)
	require.Len(t, hits, len(testContents))
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
}

func TestRetrieve_InvalidInput(t *testing.T) {
	s, embedder := newTestSearcher(t, setupTestIndex(t))
	ctx := context.Background()

	_, err := s.Retrieve(ctx, "query", 0)
	assert.ErrorIs(t, err, core.ErrInvalidK)

	_, err = s.Retrieve(ctx, "  \n", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	assert.Equal(t, 0, embedder.CallCount())
}

func TestRetrieve_EmbeddingFailureIsSurfaced(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)
	s, embedder := newTestSearcher(t, index)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model offline")
	}

	_, err := s.Retrieve(context.Background(), "query", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbedding)
}

func TestRetrieve_IndexUnavailable(t *testing.T) {
	index := setupTestIndex(t)
	s, _ := newTestSearcher(t, index)
	require.NoError(t, index.Close())

	_, err := s.Retrieve(context.Background(), "query", 3)
	assert.ErrorIs(t, err, core.ErrIndexUnavailable)
}

func TestRetrieveWithMonitor_MaxDistance(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)
	s, _ := newTestSearcher(t, index, WithMaxDistance(0.01))

	monitor := &recordingMonitor{}
	hits, err := s.RetrieveWithMonitor(context.Background(), testContents[1], 3, monitor)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, testContents[1], hits[0].Record.Chunk.Content)

	assert.Equal(t, []string{"start", "embedded", "searched", "finish"}, monitor.stages)
	assert.Equal(t, 2, monitor.dropped)
	assert.Equal(t, hits, monitor.final)
}

func TestRetrieve_NothingRelevant(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)
	s, _ := newTestSearcher(t, index, WithMaxDistance(0))

	hits, err := s.Retrieve(context.Background(), "something unrelated", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
