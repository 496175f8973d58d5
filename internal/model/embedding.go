package model

// NoteEmbedding is the stored vector of a note's title and content.
type NoteEmbedding struct {
	NoteID      string    `json:"note_id"`
	UserID      string    `json:"user_id"`
	ModelName   string    `json:"model_name"`
	Embedding   []float32 `json:"embedding"`
	ContentHash string    `json:"content_hash"`
	Mtime       int64     `json:"mtime"`
}

// EmbeddingCache is a provider response keyed by model, task type and text hash.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
