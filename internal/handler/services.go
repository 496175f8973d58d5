package handler

import (
	"context"
	"io"

	"github.com/xxxsen/smartnote/internal/model"
	"github.com/xxxsen/smartnote/internal/service"
)

type authAPI interface {
	Register(ctx context.Context, email, password string) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
}

type noteAPI interface {
	Create(ctx context.Context, userID string, input service.NoteInput) (*model.Note, error)
	Get(ctx context.Context, userID, noteID string) (*model.Note, error)
	Update(ctx context.Context, userID, noteID string, input service.NoteInput) (*model.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
	List(ctx context.Context, userID string, query service.NoteListQuery) (*service.NoteList, error)
	Tags(ctx context.Context, userID string) ([]model.TagCount, error)
}

type aiAPI interface {
	SemanticSearch(ctx context.Context, userID, query string, limit int) ([]model.RelatedNote, error)
	RelatedNotes(ctx context.Context, userID, noteID string, limit int) ([]model.RelatedNote, error)
	Summarize(ctx context.Context, input string) (string, error)
	ExtractTags(ctx context.Context, input string, maxTags int) ([]string, error)
}

type enrichAPI interface {
	Enrich(ctx context.Context, userID, noteID string) (*model.Note, error)
}

type exportAPI interface {
	Export(ctx context.Context, userID string) (*service.ExportResult, error)
	Open(ctx context.Context, userID, key string) (io.ReadCloser, error)
}

var (
	_ authAPI   = (*service.AuthService)(nil)
	_ noteAPI   = (*service.NoteService)(nil)
	_ aiAPI     = (*service.AIService)(nil)
	_ enrichAPI = (*service.EnrichService)(nil)
	_ exportAPI = (*service.ExportService)(nil)
)
