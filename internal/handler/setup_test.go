package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/smartnote/internal/model"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
	"github.com/xxxsen/smartnote/internal/pkg/jwt"
	"github.com/xxxsen/smartnote/internal/service"
)

var testSecret = []byte("test-secret")

type stubAuth struct {
	registerErr error
}

func (s *stubAuth) Register(ctx context.Context, email, password string) (*model.User, string, error) {
	if s.registerErr != nil {
		return nil, "", s.registerErr
	}
	return &model.User{ID: "u1", Email: email}, "token-" + email, nil
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	if password != "secret" {
		return nil, "", appErr.ErrUnauthorized
	}
	return &model.User{ID: "u1", Email: email}, "token-" + email, nil
}

type stubNotes struct {
	notes     map[string]*model.Note
	lastInput service.NoteInput
	lastQuery service.NoteListQuery
}

func newStubNotes() *stubNotes {
	return &stubNotes{notes: map[string]*model.Note{}}
}

func (s *stubNotes) Create(ctx context.Context, userID string, input service.NoteInput) (*model.Note, error) {
	s.lastInput = input
	note := &model.Note{ID: "n" + string(rune('0'+len(s.notes))), UserID: userID, Title: input.Title, Content: input.Content, Tags: input.Tags}
	s.notes[note.ID] = note
	return note, nil
}

func (s *stubNotes) Get(ctx context.Context, userID, noteID string) (*model.Note, error) {
	note, ok := s.notes[noteID]
	if !ok || note.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	return note, nil
}

func (s *stubNotes) Update(ctx context.Context, userID, noteID string, input service.NoteInput) (*model.Note, error) {
	s.lastInput = input
	note, err := s.Get(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	note.Title = input.Title
	note.Content = input.Content
	return note, nil
}

func (s *stubNotes) Delete(ctx context.Context, userID, noteID string) error {
	if _, err := s.Get(ctx, userID, noteID); err != nil {
		return err
	}
	delete(s.notes, noteID)
	return nil
}

func (s *stubNotes) List(ctx context.Context, userID string, query service.NoteListQuery) (*service.NoteList, error) {
	s.lastQuery = query
	items := make([]model.Note, 0)
	for _, note := range s.notes {
		if note.UserID == userID {
			items = append(items, *note)
		}
	}
	return &service.NoteList{Items: items, Total: len(items)}, nil
}

func (s *stubNotes) Tags(ctx context.Context, userID string) ([]model.TagCount, error) {
	return []model.TagCount{{Name: "go", Count: 2}}, nil
}

type stubAI struct {
	err       error
	lastLimit int
}

func (s *stubAI) SemanticSearch(ctx context.Context, userID, query string, limit int) ([]model.RelatedNote, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return []model.RelatedNote{{Note: model.Note{ID: "n1", Title: query}, Score: 0.9}}, nil
}

func (s *stubAI) RelatedNotes(ctx context.Context, userID, noteID string, limit int) ([]model.RelatedNote, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return []model.RelatedNote{}, nil
}

func (s *stubAI) Summarize(ctx context.Context, input string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "summary of " + input, nil
}

func (s *stubAI) ExtractTags(ctx context.Context, input string, maxTags int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []string{"a", "b"}, nil
}

type stubEnrich struct{}

func (stubEnrich) Enrich(ctx context.Context, userID, noteID string) (*model.Note, error) {
	return &model.Note{ID: noteID, UserID: userID, Summary: "s"}, nil
}

type stubExport struct{}

func (stubExport) Export(ctx context.Context, userID string) (*service.ExportResult, error) {
	return &service.ExportResult{Key: "export-" + userID + "-x.zip", Count: 1, Size: 3}, nil
}

func (stubExport) Open(ctx context.Context, userID, key string) (io.ReadCloser, error) {
	if !strings.HasPrefix(key, "export-"+userID+"-") {
		return nil, appErr.ErrNotFound
	}
	return io.NopCloser(strings.NewReader("zip")), nil
}

type testEnv struct {
	router http.Handler
	auth   *stubAuth
	notes  *stubNotes
	ai     *stubAI
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := &testEnv{auth: &stubAuth{}, notes: newStubNotes(), ai: &stubAI{}}
	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1"), RouterDeps{
		Auth:        NewAuthHandler(env.auth),
		Notes:       NewNoteHandler(env.notes),
		AI:          NewAIHandler(env.ai, stubEnrich{}),
		Export:      NewExportHandler(stubExport{}),
		Health:      NewHealthHandler(nil),
		Properties:  NewPropertiesHandler(Properties{EnableUserRegister: true}),
		JWTSecret:   testSecret,
		AIRateLimit: time.Minute,
	})
	env.router = engine
	return env
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func tokenFor(t *testing.T, userID string) string {
	token, err := jwt.GenerateToken(userID, "", testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}
