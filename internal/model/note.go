package model

// Note is a user owned markdown note. UserTags are the tags the owner set;
// Tags is UserTags followed by the tags of the last enrichment.
type Note struct {
	ID         string   `json:"id"`
	UserID     string   `json:"user_id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	UserTags   []string `json:"user_tags"`
	State      int      `json:"state"`
	Ctime      int64    `json:"ctime"`
	Mtime      int64    `json:"mtime"`
	EnrichTime int64    `json:"enrich_time"`
}

type RelatedNote struct {
	Note  Note    `json:"note"`
	Score float32 `json:"score"`
}
