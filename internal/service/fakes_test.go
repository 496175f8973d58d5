package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/smartnote/internal/ai"
	"github.com/xxxsen/smartnote/internal/model"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
	"github.com/xxxsen/smartnote/internal/repo"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*model.User{}}
}

func (m *memUserStore) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return appErr.ErrConflict
		}
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *memUserStore) GetByID(ctx context.Context, userID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, appErr.ErrNotFound
}

type memNoteStore struct {
	mu    sync.Mutex
	notes map[string]*model.Note
}

func newMemNoteStore() *memNoteStore {
	return &memNoteStore{notes: map[string]*model.Note{}}
}

func cloneNote(n *model.Note) model.Note {
	out := *n
	out.Tags = append([]string{}, n.Tags...)
	out.UserTags = append([]string{}, n.UserTags...)
	return out
}

func (m *memNoteStore) put(note model.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if note.State == 0 {
		note.State = repo.NoteStateNormal
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	if note.UserTags == nil {
		note.UserTags = []string{}
	}
	m.notes[note.ID] = &note
}

func (m *memNoteStore) live(userID, noteID string) (*model.Note, bool) {
	n, ok := m.notes[noteID]
	if !ok || n.UserID != userID || n.State != repo.NoteStateNormal {
		return nil, false
	}
	return n, true
}

func (m *memNoteStore) Create(ctx context.Context, note *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[note.ID]; ok {
		return appErr.ErrConflict
	}
	clone := cloneNote(note)
	m.notes[note.ID] = &clone
	return nil
}

func (m *memNoteStore) Update(ctx context.Context, note *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.live(note.UserID, note.ID)
	if !ok {
		return appErr.ErrNotFound
	}
	n.Title = note.Title
	n.Content = note.Content
	n.Mtime = note.Mtime
	n.EnrichTime = note.EnrichTime
	if note.Tags != nil {
		n.Tags = append([]string{}, note.Tags...)
		n.UserTags = append([]string{}, note.UserTags...)
	}
	return nil
}

func (m *memNoteStore) UpdateEnrichment(ctx context.Context, userID, noteID, summary string, tags []string, enrichTime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.live(userID, noteID)
	if !ok || n.Mtime != enrichTime {
		return appErr.ErrConflict
	}
	n.Summary = summary
	n.Tags = append([]string{}, tags...)
	n.EnrichTime = enrichTime
	return nil
}

func (m *memNoteStore) Delete(ctx context.Context, userID, noteID string, mtime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.live(userID, noteID)
	if !ok {
		return appErr.ErrNotFound
	}
	n.State = repo.NoteStateDeleted
	n.Mtime = mtime
	return nil
}

func (m *memNoteStore) GetByID(ctx context.Context, userID, noteID string) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.live(userID, noteID)
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := cloneNote(n)
	return &clone, nil
}

func (m *memNoteStore) filtered(userID string, filter repo.NoteFilter) []model.Note {
	out := make([]model.Note, 0)
	q := strings.ToLower(filter.Query)
	for _, n := range m.notes {
		if n.UserID != userID || n.State != repo.NoteStateNormal {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Title), q) && !strings.Contains(strings.ToLower(n.Content), q) {
			continue
		}
		if filter.Tag != "" {
			found := false
			for _, t := range n.Tags {
				if t == filter.Tag {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, cloneNote(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mtime != out[j].Mtime {
			return out[i].Mtime > out[j].Mtime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memNoteStore) List(ctx context.Context, userID string, filter repo.NoteFilter) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.filtered(userID, filter)
	start := int(filter.Offset)
	if start > len(all) {
		return []model.Note{}, nil
	}
	end := len(all)
	if filter.Limit > 0 && start+int(filter.Limit) < end {
		end = start + int(filter.Limit)
	}
	return all[start:end], nil
}

func (m *memNoteStore) Count(ctx context.Context, userID string, filter repo.NoteFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filtered(userID, filter)), nil
}

func (m *memNoteStore) ListByIDs(ctx context.Context, userID string, noteIDs []string) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Note, 0, len(noteIDs))
	for _, id := range noteIDs {
		if n, ok := m.live(userID, id); ok {
			out = append(out, cloneNote(n))
		}
	}
	return out, nil
}

func (m *memNoteStore) ListPendingEnrich(ctx context.Context, limit int, cutoff int64) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Note, 0)
	for _, n := range m.notes {
		if n.State == repo.NoteStateNormal && n.EnrichTime < n.Mtime && n.Mtime < cutoff {
			out = append(out, cloneNote(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mtime < out[j].Mtime })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNoteStore) ListActiveAfter(ctx context.Context, afterID string, limit int) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Note, 0)
	for _, n := range m.notes {
		if n.State == repo.NoteStateNormal && n.ID > afterID {
			out = append(out, cloneNote(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNoteStore) ListByUserAfter(ctx context.Context, userID, afterID string, limit int) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Note, 0)
	for _, n := range m.notes {
		if n.UserID == userID && n.State == repo.NoteStateNormal && n.ID > afterID {
			out = append(out, cloneNote(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNoteStore) TagCounts(ctx context.Context, userID string) ([]model.TagCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, n := range m.notes {
		if n.UserID != userID || n.State != repo.NoteStateNormal {
			continue
		}
		for _, t := range n.Tags {
			counts[t]++
		}
	}
	out := make([]model.TagCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, model.TagCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type memEmbeddingStore struct {
	mu    sync.Mutex
	items map[string]*model.NoteEmbedding
	notes *memNoteStore
	saves int
}

func newMemEmbeddingStore(notes *memNoteStore) *memEmbeddingStore {
	return &memEmbeddingStore{items: map[string]*model.NoteEmbedding{}, notes: notes}
}

func (m *memEmbeddingStore) Save(ctx context.Context, emb *model.NoteEmbedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *emb
	m.items[emb.NoteID] = &clone
	m.saves++
	return nil
}

func (m *memEmbeddingStore) GetByNoteID(ctx context.Context, userID, noteID string) (*model.NoteEmbedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[noteID]
	if !ok || e.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (m *memEmbeddingStore) ListByUser(ctx context.Context, userID, modelName string) ([]model.NoteEmbedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.NoteEmbedding, 0)
	for _, e := range m.items {
		if e.UserID != userID || e.ModelName != modelName {
			continue
		}
		if m.notes != nil {
			if _, err := m.notes.GetByID(ctx, userID, e.NoteID); err != nil {
				continue
			}
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memEmbeddingStore) DeleteByNote(ctx context.Context, userID, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[noteID]; ok && e.UserID == userID {
		delete(m.items, noteID)
	}
	return nil
}

// fakeManager answers from fixed tables; vectors are keyed by exact input.
type fakeManager struct {
	mu         sync.Mutex
	model      string
	summary    string
	summaryErr error
	tags       []string
	tagsErr    error
	vectors    map[string][]float32
	embedErr   error
	maxChars   int

	summaryCalls int
	tagCalls     int
	embedCalls   int
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		model:   "fake/embed",
		summary: "generated summary",
		tags:    []string{"ai-tag"},
		vectors: map[string][]float32{},
	}
}

func (f *fakeManager) Summarize(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	return f.summary, f.summaryErr
}

func (f *fakeManager) ExtractTags(ctx context.Context, text string, maxTags int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagCalls++
	if f.tagsErr != nil {
		return nil, f.tagsErr
	}
	return append([]string{}, f.tags...), nil
}

func (f *fakeManager) Embed(ctx context.Context, text string, taskType string) (*ai.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	vec, ok := f.vectors[text]
	if !ok {
		vec = []float32{1, 0, 0}
	}
	return &ai.Embedding{Model: f.model, Vector: vec}, nil
}

func (f *fakeManager) EmbeddingModelName() string {
	return f.model
}

func (f *fakeManager) MaxInputChars() int {
	return f.maxChars
}

func (f *fakeManager) MaxTags() int {
	return ai.DefaultMaxTags
}
