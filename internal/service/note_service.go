package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/model"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
	"github.com/xxxsen/smartnote/internal/pkg/timeutil"
	"github.com/xxxsen/smartnote/internal/repo"
)

const (
	maxTitleRunes   = 200
	maxTagRunes     = 64
	MaxNoteTags     = 20
	defaultPageSize = 20
	maxPageSize     = 100
)

type NoteInput struct {
	Title   string
	Content string
	// Tags nil means "leave unchanged" on update.
	Tags []string
}

type NoteListQuery struct {
	Query  string
	Tag    string
	Limit  int
	Offset int
}

type NoteList struct {
	Items []model.Note `json:"items"`
	Total int          `json:"total"`
}

type NoteService struct {
	notes      NoteStore
	embeddings EmbeddingStore
}

func NewNoteService(notes NoteStore, embeddings EmbeddingStore) *NoteService {
	return &NoteService{notes: notes, embeddings: embeddings}
}

func (s *NoteService) Create(ctx context.Context, userID string, input NoteInput) (*model.Note, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	tags, err := normalizeTags(input.Tags)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	note := &model.Note{
		ID:       newID(),
		UserID:   userID,
		Title:    title,
		Content:  input.Content,
		Tags:     tags,
		UserTags: tags,
		State:    repo.NoteStateNormal,
		Ctime:    now,
		Mtime:    now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("note created", zap.String("user_id", userID), zap.String("note_id", note.ID))
	return note, nil
}

func (s *NoteService) Get(ctx context.Context, userID, noteID string) (*model.Note, error) {
	return s.notes.GetByID(ctx, userID, noteID)
}

// Update replaces title and content. A note whose text is unchanged keeps
// its enrichment state, an edited note becomes pending again.
func (s *NoteService) Update(ctx context.Context, userID, noteID string, input NoteInput) (*model.Note, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	existing, err := s.notes.GetByID(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	var tags, userTags []string
	if input.Tags != nil {
		if userTags, err = normalizeTags(input.Tags); err != nil {
			return nil, err
		}
		tags = ai.MergeTags(MaxNoteTags, userTags, enrichedTags(existing))
	}
	mtime := nextMtime(existing.Mtime)
	enrichTime := existing.EnrichTime
	textChanged := contentHash(title, input.Content) != contentHash(existing.Title, existing.Content)
	if !textChanged && existing.EnrichTime >= existing.Mtime {
		enrichTime = mtime
	}
	note := &model.Note{
		ID:         existing.ID,
		UserID:     userID,
		Title:      title,
		Content:    input.Content,
		Tags:       tags,
		UserTags:   userTags,
		Summary:    existing.Summary,
		State:      existing.State,
		Ctime:      existing.Ctime,
		Mtime:      mtime,
		EnrichTime: enrichTime,
	}
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, err
	}
	if note.Tags == nil {
		note.Tags = existing.Tags
		note.UserTags = existing.UserTags
	}
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	if err := s.notes.Delete(ctx, userID, noteID, timeutil.NowUnix()); err != nil {
		return err
	}
	if s.embeddings != nil {
		if err := s.embeddings.DeleteByNote(ctx, userID, noteID); err != nil {
			logutil.GetLogger(ctx).Error("failed to delete note embedding",
				zap.String("user_id", userID), zap.String("note_id", noteID), zap.Error(err))
		}
	}
	return nil
}

func (s *NoteService) List(ctx context.Context, userID string, query NoteListQuery) (*NoteList, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}
	filter := repo.NoteFilter{
		Query:  strings.TrimSpace(query.Query),
		Tag:    strings.TrimSpace(query.Tag),
		Limit:  uint(limit),
		Offset: uint(offset),
	}
	items, err := s.notes.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.notes.Count(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return &NoteList{Items: items, Total: total}, nil
}

func (s *NoteService) Tags(ctx context.Context, userID string) ([]model.TagCount, error) {
	return s.notes.TagCounts(ctx, userID)
}

// enrichedTags returns the tags the last enrichment added on top of the
// owner's tags.
func enrichedTags(note *model.Note) []string {
	own := make(map[string]struct{}, len(note.UserTags))
	for _, tag := range note.UserTags {
		own[strings.ToLower(tag)] = struct{}{}
	}
	out := make([]string, 0, len(note.Tags))
	for _, tag := range note.Tags {
		if _, ok := own[strings.ToLower(tag)]; !ok {
			out = append(out, tag)
		}
	}
	return out
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("title is required: %w", appErr.ErrInvalid)
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return "", fmt.Errorf("title longer than %d characters: %w", maxTitleRunes, appErr.ErrInvalid)
	}
	return title, nil
}

// normalizeTags trims, drops duplicates case-insensitively and keeps the
// first MaxNoteTags entries. The result is never nil.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > maxTagRunes {
			return nil, fmt.Errorf("tag longer than %d characters: %w", maxTagRunes, appErr.ErrInvalid)
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
		if len(out) >= MaxNoteTags {
			break
		}
	}
	return out, nil
}

// nextMtime keeps mtime strictly increasing so an edit inside the same
// second as the previous write is still seen by the enrichment guard.
func nextMtime(prev int64) int64 {
	now := timeutil.NowUnix()
	if now <= prev {
		return prev + 1
	}
	return now
}
