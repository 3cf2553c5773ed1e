package qdrantdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"newsrag/repository"
)

const (
	NewsCollectionName = "news_articles"
	VectorSize         = 768
)

// EnsureCollection creates the news collection if it is absent. A
// concurrent "already exists" from the create call is treated as success.
func (c *NewsClient) EnsureCollection(ctx context.Context) error {
	exists, err := c.Client.CollectionExists(ctx, NewsCollectionName)
	if err != nil {
		return fmt.Errorf("err check news collection: %w", err)
	}
	if exists {
		return nil
	}

	err = c.Client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: NewsCollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("err create news collection: %w", err)
	}
	return nil
}

// ResetCollection drops the news collection if present and recreates it.
// Used in the development configuration to guarantee a clean slate.
func (c *NewsClient) ResetCollection(ctx context.Context) error {
	exists, err := c.Client.CollectionExists(ctx, NewsCollectionName)
	if err != nil {
		return fmt.Errorf("err check news collection: %w", err)
	}
	if exists {
		if err := c.Client.DeleteCollection(ctx, NewsCollectionName); err != nil {
			return fmt.Errorf("err delete news collection: %w", err)
		}
	}

	err = c.Client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: NewsCollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("err create news collection: %w", err)
	}
	return nil
}

func (c *NewsClient) Upsert(ctx context.Context, doc *repository.NewsDoc) error {
	if len(doc.Vector) != VectorSize {
		return fmt.Errorf("vector size %d does not match collection size %d", len(doc.Vector), VectorSize)
	}

	md := map[string]any{
		"text":       doc.Payload.Text,
		"title":      doc.Payload.Title,
		"url":        doc.Payload.URL,
		"published":  doc.Payload.Published,
		"source":     doc.Payload.Source,
		"category":   doc.Payload.Category,
		"indexed_at": doc.Payload.IndexedAt,
	}
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(doc.ID),
		Vectors: qdrant.NewVectorsDense(doc.Vector),
		Payload: qdrant.NewValueMap(md),
	}

	_, err := c.Client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: NewsCollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("err upsert point %d: %w", doc.ID, err)
	}
	return nil
}

func (c *NewsClient) Search(ctx context.Context, vector []float32, limit int) ([]repository.ScoredDoc, error) {
	points, err := c.Client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: NewsCollectionName,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("err search news collection: %w", err)
	}

	docs := make([]repository.ScoredDoc, 0, len(points))
	for _, point := range points {
		payload := repository.NewsPayload{
			Text:      point.Payload["text"].GetStringValue(),
			Title:     point.Payload["title"].GetStringValue(),
			URL:       point.Payload["url"].GetStringValue(),
			Published: point.Payload["published"].GetStringValue(),
			Source:    point.Payload["source"].GetStringValue(),
			Category:  point.Payload["category"].GetStringValue(),
			IndexedAt: point.Payload["indexed_at"].GetIntegerValue(),
		}
		docs = append(docs, repository.ScoredDoc{
			Text:    payload.Text,
			Score:   point.Score,
			Payload: payload,
		})
	}
	return docs, nil
}

func (c *NewsClient) Count(ctx context.Context) (uint64, error) {
	count, err := c.Client.Count(ctx, &qdrant.CountPoints{
		CollectionName: NewsCollectionName,
	})
	if err != nil {
		return 0, fmt.Errorf("err count news collection: %w", err)
	}
	return count, nil
}
