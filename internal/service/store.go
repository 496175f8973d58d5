package service

import (
	"context"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/model"
	"github.com/xxxsen/smartnote/internal/repo"
)

// The interfaces below are implemented by the repo package and by the
// in-memory fakes used in tests.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
}

type NoteStore interface {
	Create(ctx context.Context, note *model.Note) error
	Update(ctx context.Context, note *model.Note) error
	UpdateEnrichment(ctx context.Context, userID, noteID, summary string, tags []string, enrichTime int64) error
	Delete(ctx context.Context, userID, noteID string, mtime int64) error
	GetByID(ctx context.Context, userID, noteID string) (*model.Note, error)
	List(ctx context.Context, userID string, filter repo.NoteFilter) ([]model.Note, error)
	Count(ctx context.Context, userID string, filter repo.NoteFilter) (int, error)
	ListByIDs(ctx context.Context, userID string, noteIDs []string) ([]model.Note, error)
	ListPendingEnrich(ctx context.Context, limit int, cutoff int64) ([]model.Note, error)
	ListActiveAfter(ctx context.Context, afterID string, limit int) ([]model.Note, error)
	ListByUserAfter(ctx context.Context, userID, afterID string, limit int) ([]model.Note, error)
	TagCounts(ctx context.Context, userID string) ([]model.TagCount, error)
}

type EmbeddingStore interface {
	Save(ctx context.Context, emb *model.NoteEmbedding) error
	GetByNoteID(ctx context.Context, userID, noteID string) (*model.NoteEmbedding, error)
	ListByUser(ctx context.Context, userID, modelName string) ([]model.NoteEmbedding, error)
	DeleteByNote(ctx context.Context, userID, noteID string) error
}

// AIManager is the subset of *ai.Manager the services call.
type AIManager interface {
	Summarize(ctx context.Context, text string) (string, error)
	ExtractTags(ctx context.Context, text string, maxTags int) ([]string, error)
	Embed(ctx context.Context, text string, taskType string) (*ai.Embedding, error)
	EmbeddingModelName() string
	MaxInputChars() int
	MaxTags() int
}

var (
	_ UserStore      = (*repo.UserRepo)(nil)
	_ NoteStore      = (*repo.NoteRepo)(nil)
	_ EmbeddingStore = (*repo.NoteEmbeddingRepo)(nil)
	_ AIManager      = (*ai.Manager)(nil)
)
