package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/lib/pq"

	"github.com/xxxsen/smartnote/internal/model"
	"github.com/xxxsen/smartnote/internal/pkg/dbutil"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
)

const (
	NoteStateNormal  = 1
	NoteStateDeleted = 2
)

var noteFields = []string{"id", "user_id", "title", "content", "summary", "tags", "user_tags", "state", "ctime", "mtime", "enrich_time"}

// NoteFilter narrows List and Count. Zero values mean "no filter".
type NoteFilter struct {
	Query  string
	Tag    string
	Limit  uint
	Offset uint
}

type NoteRepo struct {
	db *sql.DB
}

func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

func (r *NoteRepo) Create(ctx context.Context, note *model.Note) error {
	data := map[string]interface{}{
		"id":          note.ID,
		"user_id":     note.UserID,
		"title":       note.Title,
		"content":     note.Content,
		"summary":     note.Summary,
		"tags":        pq.Array(nonNilTags(note.Tags)),
		"user_tags":   pq.Array(nonNilTags(note.UserTags)),
		"state":       note.State,
		"ctime":       note.Ctime,
		"mtime":       note.Mtime,
		"enrich_time": note.EnrichTime,
	}
	sqlStr, args, err := builder.BuildInsert("notes", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

// Update writes the user editable fields and the enrichment marker. When
// Tags is nil both tag columns are kept.
func (r *NoteRepo) Update(ctx context.Context, note *model.Note) error {
	where := map[string]interface{}{
		"id":      note.ID,
		"user_id": note.UserID,
		"state":   NoteStateNormal,
	}
	update := map[string]interface{}{
		"title":       note.Title,
		"content":     note.Content,
		"mtime":       note.Mtime,
		"enrich_time": note.EnrichTime,
	}
	if note.Tags != nil {
		update["tags"] = pq.Array(note.Tags)
		update["user_tags"] = pq.Array(nonNilTags(note.UserTags))
	}
	return r.execUpdate(ctx, where, update)
}

// UpdateEnrichment stores AI derived fields. It only applies while the note
// still has mtime == enrichTime, so an edit racing with enrichment wins and
// the note stays pending.
func (r *NoteRepo) UpdateEnrichment(ctx context.Context, userID, noteID, summary string, tags []string, enrichTime int64) error {
	where := map[string]interface{}{
		"id":      noteID,
		"user_id": userID,
		"state":   NoteStateNormal,
		"mtime":   enrichTime,
	}
	update := map[string]interface{}{
		"summary":     summary,
		"tags":        pq.Array(nonNilTags(tags)),
		"enrich_time": enrichTime,
	}
	err := r.execUpdate(ctx, where, update)
	if err == appErr.ErrNotFound {
		return appErr.ErrConflict
	}
	return err
}

func (r *NoteRepo) Delete(ctx context.Context, userID, noteID string, mtime int64) error {
	where := map[string]interface{}{
		"id":      noteID,
		"user_id": userID,
		"state":   NoteStateNormal,
	}
	update := map[string]interface{}{
		"state": NoteStateDeleted,
		"mtime": mtime,
	}
	return r.execUpdate(ctx, where, update)
}

func (r *NoteRepo) execUpdate(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("notes", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *NoteRepo) GetByID(ctx context.Context, userID, noteID string) (*model.Note, error) {
	where := map[string]interface{}{
		"id":      noteID,
		"user_id": userID,
		"state":   NoteStateNormal,
	}
	notes, err := r.query(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &notes[0], nil
}

func (r *NoteRepo) List(ctx context.Context, userID string, filter NoteFilter) ([]model.Note, error) {
	where := filterWhere(userID, filter)
	where["_orderby"] = "mtime desc, id asc"
	if filter.Limit > 0 {
		where["_limit"] = []uint{filter.Offset, filter.Limit}
	}
	return r.query(ctx, where)
}

func (r *NoteRepo) Count(ctx context.Context, userID string, filter NoteFilter) (int, error) {
	sqlStr, args, err := builder.BuildSelect("notes", filterWhere(userID, filter), []string{"COUNT(1)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *NoteRepo) ListByIDs(ctx context.Context, userID string, noteIDs []string) ([]model.Note, error) {
	if len(noteIDs) == 0 {
		return []model.Note{}, nil
	}
	ids := make([]interface{}, 0, len(noteIDs))
	for _, id := range noteIDs {
		ids = append(ids, id)
	}
	where := map[string]interface{}{
		"user_id": userID,
		"state":   NoteStateNormal,
		"id in":   ids,
	}
	return r.query(ctx, where)
}

// ListPendingEnrich returns live notes edited since their last enrichment
// and last touched before cutoff, oldest first.
func (r *NoteRepo) ListPendingEnrich(ctx context.Context, limit int, cutoff int64) ([]model.Note, error) {
	const query = `
		SELECT id, user_id, title, content, summary, tags, user_tags, state, ctime, mtime, enrich_time
		FROM notes
		WHERE state = $1 AND enrich_time < mtime AND mtime < $2
		ORDER BY mtime ASC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, NoteStateNormal, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return scanNotes(rows)
}

// ListActiveAfter pages over every live note ordered by id.
func (r *NoteRepo) ListActiveAfter(ctx context.Context, afterID string, limit int) ([]model.Note, error) {
	const query = `
		SELECT id, user_id, title, content, summary, tags, user_tags, state, ctime, mtime, enrich_time
		FROM notes
		WHERE state = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, NoteStateNormal, afterID, limit)
	if err != nil {
		return nil, err
	}
	return scanNotes(rows)
}

// ListByUserAfter pages over one owner's live notes ordered by id.
func (r *NoteRepo) ListByUserAfter(ctx context.Context, userID, afterID string, limit int) ([]model.Note, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"state":    NoteStateNormal,
		"id >":     afterID,
		"_orderby": "id asc",
		"_limit":   []uint{0, uint(limit)},
	}
	return r.query(ctx, where)
}

func (r *NoteRepo) TagCounts(ctx context.Context, userID string) ([]model.TagCount, error) {
	const query = `
		SELECT tag, COUNT(1) AS cnt
		FROM notes, unnest(tags) AS tag
		WHERE user_id = $1 AND state = $2
		GROUP BY tag
		ORDER BY cnt DESC, tag ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, NoteStateNormal)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.TagCount, 0)
	for rows.Next() {
		var item model.TagCount
		if err := rows.Scan(&item.Name, &item.Count); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *NoteRepo) query(ctx context.Context, where map[string]interface{}) ([]model.Note, error) {
	sqlStr, args, err := builder.BuildSelect("notes", where, noteFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return scanNotes(rows)
}

func scanNotes(rows *sql.Rows) ([]model.Note, error) {
	defer func() { _ = rows.Close() }()
	notes := make([]model.Note, 0)
	for rows.Next() {
		var note model.Note
		if err := rows.Scan(&note.ID, &note.UserID, &note.Title, &note.Content, &note.Summary, pq.Array(&note.Tags), pq.Array(&note.UserTags),
			&note.State, &note.Ctime, &note.Mtime, &note.EnrichTime); err != nil {
			return nil, err
		}
		note.Tags = nonNilTags(note.Tags)
		note.UserTags = nonNilTags(note.UserTags)
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func filterWhere(userID string, filter NoteFilter) map[string]interface{} {
	where := map[string]interface{}{
		"user_id": userID,
		"state":   NoteStateNormal,
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		where["_custom_search"] = builder.Custom("(title ILIKE ? OR content ILIKE ?)", like, like)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		where["_custom_tag"] = builder.Custom("? = ANY(tags)", tag)
	}
	return where
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
