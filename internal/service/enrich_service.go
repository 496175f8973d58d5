package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/model"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
	"github.com/xxxsen/smartnote/internal/pkg/timeutil"
)

const (
	minSummaryChars    = 100
	pendingBatchSize   = 50
	resyncPageSize     = 100
	rateLimitCooldown  = 10 * time.Second
	pendingItemSpacing = 100 * time.Millisecond
)

type EnrichService struct {
	notes   NoteStore
	manager AIManager
	ai      *AIService

	cooldown time.Duration
	spacing  time.Duration
}

func NewEnrichService(notes NoteStore, manager AIManager, aiService *AIService) *EnrichService {
	return &EnrichService{
		notes:    notes,
		manager:  manager,
		ai:       aiService,
		cooldown: rateLimitCooldown,
		spacing:  pendingItemSpacing,
	}
}

type enrichOutcome struct {
	rateLimited bool
	summary     string
	tags        []string
}

// Enrich refreshes summary, tags and embedding of one note on demand and
// returns the stored result.
func (s *EnrichService) Enrich(ctx context.Context, userID, noteID string) (*model.Note, error) {
	note, err := s.notes.GetByID(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	out := s.compute(ctx, note)
	if err := s.notes.UpdateEnrichment(ctx, userID, noteID, out.summary, out.tags, note.Mtime); err != nil {
		return nil, err
	}
	note.Summary = out.summary
	note.Tags = out.tags
	note.EnrichTime = note.Mtime
	return note, nil
}

// compute runs the three enrichment steps independently. A failing step is
// logged and its previous value is kept.
func (s *EnrichService) compute(ctx context.Context, note *model.Note) enrichOutcome {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", note.UserID), zap.String("note_id", note.ID))
	out := enrichOutcome{summary: note.Summary, tags: note.Tags}
	if out.tags == nil {
		out.tags = []string{}
	}
	observe := func(step string, err error) {
		if ai.IsRateLimited(err) {
			out.rateLimited = true
		}
		logger.Warn("note enrichment step failed", zap.String("step", step), zap.Error(err))
	}

	text := embedText(note.Title, note.Content)
	if utf8.RuneCountInString(ai.PlainText(note.Content)) < minSummaryChars {
		out.summary = ""
	} else if summary, err := s.manager.Summarize(ctx, text); err != nil {
		observe("summary", err)
	} else {
		out.summary = summary
	}

	if tags, err := s.manager.ExtractTags(ctx, text, s.manager.MaxTags()); err != nil {
		observe("tags", err)
	} else {
		out.tags = ai.MergeTags(MaxNoteTags, note.UserTags, tags)
	}

	if s.ai != nil {
		if err := s.ai.SyncEmbedding(ctx, note, false); err != nil {
			observe("embedding", err)
		}
	}
	return out
}

// ProcessPending enriches notes edited more than delay ago. A rate limited
// note stays pending for the next run and the batch pauses before going on.
func (s *EnrichService) ProcessPending(ctx context.Context, delay time.Duration) (int, error) {
	logger := logutil.GetLogger(ctx)
	if delay < 0 {
		delay = 0
	}
	cutoff := timeutil.NowUnix() - int64(delay/time.Second)
	notes, err := s.notes.ListPendingEnrich(ctx, pendingBatchSize, cutoff)
	if err != nil {
		logger.Error("failed to list pending notes", zap.Error(err))
		return 0, err
	}
	if len(notes) == 0 {
		return 0, nil
	}
	logger.Info("processing pending notes", zap.Int("count", len(notes)))
	processed := 0
	for i := range notes {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		note := &notes[i]
		out := s.compute(ctx, note)
		if out.rateLimited {
			logger.Warn("ai rate limit triggered, cooling down", zap.String("note_id", note.ID))
			if err := sleepCtx(ctx, s.cooldown); err != nil {
				return processed, err
			}
			continue
		}
		err := s.notes.UpdateEnrichment(ctx, note.UserID, note.ID, out.summary, out.tags, note.Mtime)
		switch {
		case errors.Is(err, appErr.ErrConflict):
			logger.Info("note changed during enrichment, keep pending", zap.String("note_id", note.ID))
		case err != nil:
			logger.Error("failed to save enrichment", zap.String("note_id", note.ID), zap.Error(err))
		default:
			processed++
		}
		if err := sleepCtx(ctx, s.spacing); err != nil {
			return processed, err
		}
	}
	return processed, nil
}

// ResyncEmbeddings recomputes the embedding of every live note. It keeps
// going on per note failures and returns how many notes were embedded.
func (s *EnrichService) ResyncEmbeddings(ctx context.Context, force bool) (int, error) {
	logger := logutil.GetLogger(ctx)
	if s.ai == nil {
		return 0, ai.ErrUnavailable
	}
	synced, failed := 0, 0
	afterID := ""
	for {
		notes, err := s.notes.ListActiveAfter(ctx, afterID, resyncPageSize)
		if err != nil {
			return synced, err
		}
		if len(notes) == 0 {
			break
		}
		for i := range notes {
			if err := ctx.Err(); err != nil {
				return synced, err
			}
			note := &notes[i]
			if err := s.ai.SyncEmbedding(ctx, note, force); err != nil {
				failed++
				logger.Error("failed to resync embedding", zap.String("note_id", note.ID), zap.Error(err))
				if ai.IsRateLimited(err) {
					if err := sleepCtx(ctx, s.cooldown); err != nil {
						return synced, err
					}
				}
				continue
			}
			synced++
		}
		afterID = notes[len(notes)-1].ID
	}
	logger.Info("embedding resync finished", zap.Int("synced", synced), zap.Int("failed", failed))
	return synced, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
