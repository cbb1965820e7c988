package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeEmbeddings struct {
	vectors [][]float32
	err     error
}

func (f *fakeEmbeddings) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return f.vectors, f.err
}

func (f *fakeEmbeddings) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[0], nil
}

type fakeModel struct {
	response *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	return f.response, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func reply(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	ctx := context.Background()

	t.Run("returns vectors", func(t *testing.T) {
		e := &Embedder{embedder: &fakeEmbeddings{vectors: [][]float32{{1, 0}, {0, 1}}}, dimension: 2, logger: slog.Default()}
		got, err := e.EmbedTexts(ctx, []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		e := &Embedder{embedder: &fakeEmbeddings{}, logger: slog.Default()}
		got, err := e.EmbedTexts(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("client error", func(t *testing.T) {
		e := &Embedder{embedder: &fakeEmbeddings{err: errors.New("connection refused")}, logger: slog.Default()}
		_, err := e.EmbedText(ctx, "a")
		assert.True(t, errors.Is(err, core.ErrEmbedding))
	})

	t.Run("wrong vector count", func(t *testing.T) {
		e := &Embedder{embedder: &fakeEmbeddings{vectors: [][]float32{{1, 0}}}, logger: slog.Default()}
		_, err := e.EmbedTexts(ctx, []string{"a", "b"})
		assert.True(t, errors.Is(err, core.ErrEmbedding))
	})

	t.Run("wrong dimension", func(t *testing.T) {
		e := &Embedder{embedder: &fakeEmbeddings{vectors: [][]float32{{1, 0, 0}}}, dimension: 2, logger: slog.Default()}
		_, err := e.EmbedText(ctx, "a")
		assert.True(t, errors.Is(err, core.ErrEmbedding))
		assert.True(t, errors.Is(err, core.ErrDimensionMismatch))
	})

	t.Run("empty vector", func(t *testing.T) {
		e := &Embedder{embedder: &fakeEmbeddings{vectors: [][]float32{{}}}, logger: slog.Default()}
		_, err := e.EmbedText(ctx, "a")
		assert.True(t, errors.Is(err, core.ErrEmbedding))
	})
}

func TestGenerator_GenerateAnswer(t *testing.T) {
	model := &fakeModel{response: reply("```markdown\nRevenue grew 12% (plan.pdf).\n```")}
	g := &Generator{client: model, logger: slog.Default()}

	answer, err := g.GenerateAnswer(context.Background(), "How did revenue change?", []ai.Passage{
		{Content: "Revenue grew 12%.", Source: "plan.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12% (plan.pdf).", answer)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	human := model.messages[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, human, "Document 1 (Source: plan.pdf):\nRevenue grew 12%.")
	assert.Contains(t, human, "USER QUESTION: How did revenue change?")
}

func TestGenerator_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("client error is returned", func(t *testing.T) {
		g := &Generator{client: &fakeModel{err: errors.New("quota exceeded")}, logger: slog.Default()}
		_, err := g.GenerateAnswer(ctx, "q", nil)
		assert.EqualError(t, err, "quota exceeded")
	})

	t.Run("no choices", func(t *testing.T) {
		g := &Generator{client: &fakeModel{response: &llms.ContentResponse{}}, logger: slog.Default()}
		_, err := g.Summarize(ctx, nil)
		assert.True(t, errors.Is(err, ErrEmptyResponse))
	})

	t.Run("blank text", func(t *testing.T) {
		g := &Generator{client: &fakeModel{response: reply("  \n ")}, logger: slog.Default()}
		_, err := g.GenerateAnswer(ctx, "q", nil)
		assert.True(t, errors.Is(err, ErrEmptyResponse))
	})
}

func TestGenerator_Summarize(t *testing.T) {
	model := &fakeModel{response: reply("Two documents about growth.")}
	g := &Generator{client: model, logger: slog.Default()}

	summary, err := g.Summarize(context.Background(), []ai.Passage{
		{Content: "Revenue grew.", Source: "plan.pdf"},
		{Content: "Costs fell.", Source: "plan.pdf"},
		{Content: "Row 1", Source: "sales.csv"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Two documents about growth.", summary)

	require.Len(t, model.messages, 1)
	prompt := model.messages[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, prompt, "Revenue grew.\n\nCosts fell.\n\nRow 1")
	assert.Contains(t, prompt, "SOURCES: plan.pdf, sales.csv")
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain answer \n", "plain answer"},
		{"```\nfenced\n```", "fenced"},
		{"```markdown\n# Title\nbody\n```", "# Title\nbody"},
		{"```not a tag line\n```", "not a tag line"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanResponse(tt.in), "input %q", tt.in)
	}
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(ai.NewConfig(ai.WithEmbeddingModel("nomic-embed-text")))
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.NotNil(t, provider.Generator())
	assert.Equal(t, "nomic-embed-text", provider.EmbeddingModel())

	_, err = NewProvider(&ai.Config{})
	assert.Error(t, err)
}

func TestBuildAnswerPrompt_NoPassages(t *testing.T) {
	prompt := buildAnswerPrompt("anything?", nil)
	assert.True(t, strings.Contains(prompt, ai.NoContext))
}
