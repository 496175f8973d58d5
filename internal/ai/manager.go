package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
)

const (
	DefaultMaxTags = 7
	MaxTagsLimit   = 20
)

type ManagerConfig struct {
	Timeout        int
	MaxInputChars  int
	MaxInputTokens int
	MaxTags        int
}

type Manager struct {
	tagger     IGenerator
	summarizer IGenerator
	embedder   IEmbedder
	cfg        ManagerConfig
}

func NewManager(
	tagger IGenerator,
	summarizer IGenerator,
	embedder IEmbedder,
	cfg ManagerConfig,
) *Manager {
	if cfg.MaxTags <= 0 {
		cfg.MaxTags = DefaultMaxTags
	}
	return &Manager{
		tagger:     tagger,
		summarizer: summarizer,
		embedder:   embedder,
		cfg:        cfg,
	}
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) (*Embedding, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured: %w", ErrUnavailable)
	}
	input := m.prepareInput(ctx, text)
	if input == "" {
		return nil, fmt.Errorf("nothing to embed: %w", appErr.ErrInvalid)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.embedder.Embed(ctx, input, taskType)
}

func (m *Manager) ExtractTags(ctx context.Context, text string, maxTags int) ([]string, error) {
	if m.tagger == nil {
		return nil, fmt.Errorf("tagger not configured: %w", ErrUnavailable)
	}
	if maxTags <= 0 {
		maxTags = m.cfg.MaxTags
	}
	if maxTags > MaxTagsLimit {
		maxTags = MaxTagsLimit
	}
	prompt := fmt.Sprintf(`You are a tag extraction assistant.
From the text below, extract up to %d concise tags.
- Tags should be short phrases (1-3 words).
- Return a JSON array of strings only. No extra text.
- Use the same language as the content.

CONTENT:
%s`, maxTags, m.prepareInput(ctx, text))
	result, err := m.generateText(ctx, m.tagger, prompt)
	if err != nil {
		return nil, err
	}
	return parseTags(result, maxTags)
}

func (m *Manager) Summarize(ctx context.Context, text string) (string, error) {
	if m.summarizer == nil {
		return "", fmt.Errorf("summarizer not configured: %w", ErrUnavailable)
	}
	prompt := fmt.Sprintf(`You are a helpful assistant.
Summarize the following text into a concise paragraph (2-4 sentences).
- Use the same language as the content.
- Keep factual accuracy and key points.
- Output ONLY the summary text.

CONTENT:
%s`, m.prepareInput(ctx, text))
	return m.generateText(ctx, m.summarizer, prompt)
}

func (m *Manager) generateText(ctx context.Context, gen IGenerator, prompt string) (string, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	resp, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
}

// prepareInput reduces markdown to plain text and bounds it by tokens. If the
// tokenizer is unusable the text is bounded by runes instead.
func (m *Manager) prepareInput(ctx context.Context, text string) string {
	plain := PlainText(text)
	if m.cfg.MaxInputTokens <= 0 {
		return plain
	}
	out, err := TruncateTokens(plain, m.cfg.MaxInputTokens)
	if err != nil {
		logutil.GetLogger(ctx).Warn("token truncation failed, fallback to rune limit", zap.Error(err))
		return truncateRunes(plain, m.cfg.MaxInputTokens*4)
	}
	return out
}

func (m *Manager) MaxInputChars() int {
	return m.cfg.MaxInputChars
}

func (m *Manager) MaxTags() int {
	return m.cfg.MaxTags
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func parseTags(output string, maxTags int) ([]string, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}

	var tags []string
	if err := json.Unmarshal([]byte(clean), &tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	uniq := MergeTags(maxTags, tags)
	if len(uniq) == 0 {
		return nil, fmt.Errorf("no tags found")
	}
	return uniq, nil
}

// MergeTags concatenates tag lists in order, trimming blanks and dropping
// case-insensitive duplicates, and keeps at most limit entries.
func MergeTags(limit int, lists ...[]string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, tag := range list {
			normalized := strings.TrimSpace(tag)
			if normalized == "" {
				continue
			}
			key := strings.ToLower(normalized)
			if _, ok := seen[key]; ok {
				continue
			}
			if limit > 0 && len(out) >= limit {
				return out
			}
			seen[key] = struct{}{}
			out = append(out, normalized)
		}
	}
	return out
}
