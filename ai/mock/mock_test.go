package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	c, err := m.EmbedText(ctx, "goodbye")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimension)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.InDelta(t, 1.0, core.DotProduct(a, a), 1e-4)
	assert.Equal(t, 3, m.CallCount())
}

func TestMockEmbedder_Batch(t *testing.T) {
	m := &MockEmbedder{Dimension: 8}
	vectors, err := m.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, Vector("a", 8), vectors[0])
	assert.Len(t, vectors[1], 8)
}

func TestMockEmbedder_Injection(t *testing.T) {
	m := NewMockEmbedder()
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("offline")
	}

	_, err := m.EmbedTexts(context.Background(), []string{"x"})
	assert.Error(t, err)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	_, err = m.EmbedTexts(context.Background(), []string{"x"})
	assert.NoError(t, err)
}

func TestMockGenerator(t *testing.T) {
	g := NewMockGenerator()
	ctx := context.Background()

	answer, err := g.GenerateAnswer(ctx, "why?", []ai.Passage{{Content: "because"}})
	require.NoError(t, err)
	assert.Equal(t, `answer to "why?" from 1 passages`, answer)

	summary, err := g.Summarize(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "summary of 0 passages", summary)

	assert.Equal(t, 1, g.AnswerCalls())
	assert.Equal(t, 1, g.SummarizeCalls())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	assert.Same(t, p.GetMockGenerator(), p.Generator())
	assert.Equal(t, Model, p.EmbeddingModel())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
