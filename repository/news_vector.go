package repository

import (
	"context"
)

// NewsVectorRepo is the vector-index surface the pipelines depend on.
type NewsVectorRepo interface {
	EnsureCollection(ctx context.Context) error
	ResetCollection(ctx context.Context) error
	Upsert(ctx context.Context, doc *NewsDoc) error
	Search(ctx context.Context, vector []float32, limit int) ([]ScoredDoc, error)
	Count(ctx context.Context) (uint64, error)
}

// NewsDoc is one indexed article. IDs are assigned monotonically within
// an ingestion run and are not stable across runs.
type NewsDoc struct {
	ID      uint64
	Vector  []float32
	Payload NewsPayload
}

type NewsPayload struct {
	Text      string `json:"text"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Published string `json:"published"`
	Source    string `json:"source"`
	Category  string `json:"category"`
	IndexedAt int64  `json:"indexed_at"`
}

// ScoredDoc is a search hit with its similarity score.
type ScoredDoc struct {
	Text    string
	Score   float32
	Payload NewsPayload
}
