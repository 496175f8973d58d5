package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
)

type fakeGenerator struct {
	resp    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.resp, f.err
}

type fakeEmbedder struct {
	model string
	vec   []float32
	err   error
	calls int
	texts []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) (*Embedding, error) {
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return &Embedding{Model: f.model, Vector: f.vec}, nil
}

func (f *fakeEmbedder) ModelName() string {
	return f.model
}

func TestParseTags(t *testing.T) {
	tags, err := parseTags("```json\n[\"Go\", \"go\", \" web \", \"\"]\n```", 7)
	require.NoError(t, err)
	require.Equal(t, []string{"Go", "web"}, tags)

	tags, err = parseTags(`Here you go: ["a","b","c"] done`, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, tags)

	_, err = parseTags("[]", 5)
	require.Error(t, err)

	_, err = parseTags("not json", 5)
	require.Error(t, err)
}

func TestMergeTags(t *testing.T) {
	require.Equal(t, []string{"mine", "Go", "ai"}, MergeTags(0, []string{"mine", "Go"}, []string{"go", "ai", "MINE"}))
	require.Equal(t, []string{"a", "b"}, MergeTags(2, []string{"a"}, []string{"b", "c"}))
	require.Empty(t, MergeTags(5, nil, []string{" "}))
}

func TestManagerSummarize(t *testing.T) {
	gen := &fakeGenerator{resp: "  A short summary.  "}
	m := NewManager(nil, gen, nil, ManagerConfig{Timeout: 5})
	out, err := m.Summarize(context.Background(), "# Title\n\nSome **markdown** body")
	require.NoError(t, err)
	require.Equal(t, "A short summary.", out)
	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "Some markdown body")
	require.NotContains(t, gen.prompts[0], "**")
}

func TestManagerEmptyResponse(t *testing.T) {
	m := NewManager(nil, &fakeGenerator{resp: "   "}, nil, ManagerConfig{})
	_, err := m.Summarize(context.Background(), "text")
	require.Error(t, err)
}

func TestManagerNotConfigured(t *testing.T) {
	m := NewManager(nil, nil, nil, ManagerConfig{})
	_, err := m.Summarize(context.Background(), "text")
	require.True(t, errors.Is(err, appErr.ErrAIUnavailable))
	_, err = m.ExtractTags(context.Background(), "text", 3)
	require.True(t, errors.Is(err, appErr.ErrAIUnavailable))
	_, err = m.Embed(context.Background(), "text", TaskRetrievalQuery)
	require.True(t, errors.Is(err, appErr.ErrAIUnavailable))
	require.Equal(t, "", m.EmbeddingModelName())
}

func TestManagerExtractTagsCapsLimit(t *testing.T) {
	gen := &fakeGenerator{resp: `["x"]`}
	m := NewManager(gen, nil, nil, ManagerConfig{})
	tags, err := m.ExtractTags(context.Background(), "body", 100)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, tags)
	require.Contains(t, gen.prompts[0], "up to 20 concise tags")

	_, err = m.ExtractTags(context.Background(), "body", 0)
	require.NoError(t, err)
	require.Contains(t, gen.prompts[1], "up to 7 concise tags")
}

func TestManagerEmbed(t *testing.T) {
	emb := &fakeEmbedder{model: "p/m", vec: []float32{1, 2}}
	m := NewManager(nil, nil, emb, ManagerConfig{MaxInputTokens: 100})
	res, err := m.Embed(context.Background(), "**hello**", TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, "p/m", res.Model)
	require.Equal(t, []string{"hello"}, emb.texts)
	require.Equal(t, "p/m", m.EmbeddingModelName())

	_, err = m.Embed(context.Background(), "   ", TaskRetrievalDocument)
	require.True(t, errors.Is(err, appErr.ErrInvalid))
}

func TestManagerTruncatesInput(t *testing.T) {
	emb := &fakeEmbedder{model: "p/m", vec: []float32{1}}
	m := NewManager(nil, nil, emb, ManagerConfig{MaxInputTokens: 5})
	_, err := m.Embed(context.Background(), strings.Repeat("word ", 200), TaskRetrievalDocument)
	require.NoError(t, err)
	count, err := CountTokens(emb.texts[0])
	require.NoError(t, err)
	require.LessOrEqual(t, count, 5)
}
