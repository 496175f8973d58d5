package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/smartnote/internal/model"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
)

type NoteEmbeddingRepo struct {
	db *sql.DB
}

func NewNoteEmbeddingRepo(db *sql.DB) *NoteEmbeddingRepo {
	return &NoteEmbeddingRepo{db: db}
}

func (r *NoteEmbeddingRepo) Save(ctx context.Context, emb *model.NoteEmbedding) error {
	const query = `
		INSERT INTO note_embeddings (note_id, user_id, model_name, embedding, content_hash, mtime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (note_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			model_name = EXCLUDED.model_name,
			embedding = EXCLUDED.embedding,
			content_hash = EXCLUDED.content_hash,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query,
		emb.NoteID,
		emb.UserID,
		emb.ModelName,
		pgvector.NewVector(emb.Embedding),
		emb.ContentHash,
		emb.Mtime,
	)
	return err
}

func (r *NoteEmbeddingRepo) GetByNoteID(ctx context.Context, userID, noteID string) (*model.NoteEmbedding, error) {
	const query = `
		SELECT note_id, user_id, model_name, embedding, content_hash, mtime
		FROM note_embeddings
		WHERE note_id = $1 AND user_id = $2
	`
	var item model.NoteEmbedding
	var vec pgvector.Vector
	err := r.db.QueryRowContext(ctx, query, noteID, userID).
		Scan(&item.NoteID, &item.UserID, &item.ModelName, &vec, &item.ContentHash, &item.Mtime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	item.Embedding = vec.Slice()
	return &item, nil
}

// ListByUser returns the embeddings of the user's live notes produced by
// modelName. Vectors from other models are not comparable and are skipped.
func (r *NoteEmbeddingRepo) ListByUser(ctx context.Context, userID, modelName string) ([]model.NoteEmbedding, error) {
	const query = `
		SELECT e.note_id, e.user_id, e.model_name, e.embedding, e.content_hash, e.mtime
		FROM note_embeddings e
		JOIN notes n ON n.id = e.note_id AND n.user_id = e.user_id
		WHERE e.user_id = $1 AND e.model_name = $2 AND n.state = $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, modelName, NoteStateNormal)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	results := make([]model.NoteEmbedding, 0)
	for rows.Next() {
		var item model.NoteEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&item.NoteID, &item.UserID, &item.ModelName, &vec, &item.ContentHash, &item.Mtime); err != nil {
			return nil, err
		}
		item.Embedding = vec.Slice()
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *NoteEmbeddingRepo) DeleteByNote(ctx context.Context, userID, noteID string) error {
	const query = `DELETE FROM note_embeddings WHERE note_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, noteID, userID)
	return err
}
