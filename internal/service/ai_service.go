package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/model"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
	"github.com/xxxsen/smartnote/internal/similarity"
)

const (
	DefaultSearchThreshold     = float32(0.55)
	DefaultShortQueryThreshold = float32(0.70)
	shortQueryRunes            = 2

	defaultSearchLimit  = 10
	defaultRelatedLimit = 5
	maxSimilarLimit     = 50
)

type AIServiceConfig struct {
	SearchThreshold     float32
	ShortQueryThreshold float32
	RelatedThreshold    float32
}

type AIService struct {
	manager    AIManager
	notes      NoteStore
	embeddings EmbeddingStore
	cfg        AIServiceConfig
	cache      *expirable.LRU[string, string]
}

func NewAIService(manager AIManager, notes NoteStore, embeddings EmbeddingStore, cfg AIServiceConfig) *AIService {
	if cfg.SearchThreshold <= 0 {
		cfg.SearchThreshold = DefaultSearchThreshold
	}
	if cfg.ShortQueryThreshold <= 0 {
		cfg.ShortQueryThreshold = DefaultShortQueryThreshold
	}
	return &AIService{
		manager:    manager,
		notes:      notes,
		embeddings: embeddings,
		cfg:        cfg,
		cache:      expirable.NewLRU[string, string](10000, nil, 2*time.Hour),
	}
}

// SemanticSearch embeds the query and ranks the owner's notes against it.
func (s *AIService) SemanticSearch(ctx context.Context, userID, query string, limit int) ([]model.RelatedNote, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID))
	queryEmb, err := s.manager.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		logger.Error("failed to embed search query", zap.Error(err))
		return nil, asUnavailable(err)
	}
	threshold := s.cfg.SearchThreshold
	if utf8.RuneCountInString(query) <= shortQueryRunes {
		threshold = s.cfg.ShortQueryThreshold
	}
	candidates, err := s.candidates(ctx, userID, queryEmb.Model, "")
	if err != nil {
		return nil, err
	}
	matches := similarity.Rank(queryEmb.Vector, candidates, threshold, clampLimit(limit, defaultSearchLimit))
	logger.Debug("semantic search ranked", zap.Int("candidates", len(candidates)), zap.Int("matches", len(matches)))
	return s.loadRanked(ctx, userID, matches)
}

// RelatedNotes ranks the owner's other notes against the stored embedding of
// noteID. A note without embedding has no related notes yet.
func (s *AIService) RelatedNotes(ctx context.Context, userID, noteID string, limit int) ([]model.RelatedNote, error) {
	if _, err := s.notes.GetByID(ctx, userID, noteID); err != nil {
		return nil, err
	}
	emb, err := s.embeddings.GetByNoteID(ctx, userID, noteID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return []model.RelatedNote{}, nil
		}
		return nil, err
	}
	candidates, err := s.candidates(ctx, userID, emb.ModelName, noteID)
	if err != nil {
		return nil, err
	}
	matches := similarity.Rank(emb.Embedding, candidates, s.cfg.RelatedThreshold, clampLimit(limit, defaultRelatedLimit))
	return s.loadRanked(ctx, userID, matches)
}

func (s *AIService) candidates(ctx context.Context, userID, modelName, excludeID string) ([]similarity.Candidate, error) {
	items, err := s.embeddings.ListByUser(ctx, userID, modelName)
	if err != nil {
		return nil, err
	}
	out := make([]similarity.Candidate, 0, len(items))
	for _, item := range items {
		if item.NoteID == excludeID {
			continue
		}
		out = append(out, similarity.Candidate{ID: item.NoteID, Vector: item.Embedding})
	}
	return out, nil
}

func (s *AIService) loadRanked(ctx context.Context, userID string, matches []similarity.Match) ([]model.RelatedNote, error) {
	if len(matches) == 0 {
		return []model.RelatedNote{}, nil
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	notes, err := s.notes.ListByIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}
	out := make([]model.RelatedNote, 0, len(matches))
	for _, m := range matches {
		n, ok := byID[m.ID]
		if !ok {
			continue
		}
		out = append(out, model.RelatedNote{Note: n, Score: m.Score})
	}
	return out, nil
}

// SyncEmbedding stores the document embedding of note. Unless force is set
// the provider is skipped when the stored vector already matches the text
// and the current model.
func (s *AIService) SyncEmbedding(ctx context.Context, note *model.Note, force bool) error {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", note.UserID), zap.String("note_id", note.ID))
	hash := contentHash(note.Title, note.Content)
	if !force {
		existing, err := s.embeddings.GetByNoteID(ctx, note.UserID, note.ID)
		if err == nil && existing.ContentHash == hash && existing.ModelName == s.manager.EmbeddingModelName() {
			logger.Debug("embedding up to date")
			return nil
		}
		if err != nil && !errors.Is(err, appErr.ErrNotFound) {
			return err
		}
	}
	emb, err := s.manager.Embed(ctx, embedText(note.Title, note.Content), ai.TaskRetrievalDocument)
	if err != nil {
		return err
	}
	if err := s.embeddings.Save(ctx, &model.NoteEmbedding{
		NoteID:      note.ID,
		UserID:      note.UserID,
		ModelName:   emb.Model,
		Embedding:   emb.Vector,
		ContentHash: hash,
		Mtime:       note.Mtime,
	}); err != nil {
		return err
	}
	logger.Info("embedding synced", zap.String("model", emb.Model))
	return nil
}

func (s *AIService) Summarize(ctx context.Context, input string) (string, error) {
	text, err := s.cleanInput(input)
	if err != nil {
		return "", err
	}
	cacheKey := s.cacheKey("summary", text)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}
	res, err := s.manager.Summarize(ctx, text)
	if err != nil {
		return "", asUnavailable(err)
	}
	s.cache.Add(cacheKey, res)
	return res, nil
}

func (s *AIService) ExtractTags(ctx context.Context, input string, maxTags int) ([]string, error) {
	text, err := s.cleanInput(input)
	if err != nil {
		return nil, err
	}
	if maxTags <= 0 {
		maxTags = s.manager.MaxTags()
	}
	if maxTags > ai.MaxTagsLimit {
		maxTags = ai.MaxTagsLimit
	}
	cacheKey := s.cacheKey(fmt.Sprintf("tags:%d", maxTags), text)
	if cached, ok := s.cache.Get(cacheKey); ok {
		var tags []string
		if err := json.Unmarshal([]byte(cached), &tags); err == nil {
			return tags, nil
		}
	}
	res, err := s.manager.ExtractTags(ctx, text, maxTags)
	if err != nil {
		return nil, asUnavailable(err)
	}
	if data, err := json.Marshal(res); err == nil {
		s.cache.Add(cacheKey, string(data))
	}
	return res, nil
}

func (s *AIService) cleanInput(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("text is required: %w", appErr.ErrInvalid)
	}
	max := s.manager.MaxInputChars()
	if max > 0 && utf8.RuneCountInString(trimmed) > max {
		return "", fmt.Errorf("text longer than %d characters: %w", max, appErr.ErrInvalid)
	}
	return trimmed, nil
}

func (s *AIService) cacheKey(feature, text string) string {
	hash := sha256.Sum256([]byte(text))
	return feature + ":" + hex.EncodeToString(hash[:])
}

// asUnavailable maps provider failures onto ErrAIUnavailable, keeping
// validation errors as they are.
func asUnavailable(err error) error {
	if errors.Is(err, appErr.ErrInvalid) || errors.Is(err, appErr.ErrAIUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", appErr.ErrAIUnavailable, err)
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxSimilarLimit {
		return maxSimilarLimit
	}
	return limit
}

func embedText(title, content string) string {
	return title + "\n" + content
}

func contentHash(title, content string) string {
	hash := sha256.Sum256([]byte(embedText(title, content)))
	return hex.EncodeToString(hash[:])
}
