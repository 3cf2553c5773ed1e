package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"newsrag/embedding"
	"newsrag/generation"
	"newsrag/repository"
)

const (
	// InsufficientInfoMessage is returned without touching the embedding
	// or generation services when the index holds no documents.
	InsufficientInfoMessage = "I don't have enough information to answer that question. Please try asking about recent news topics."

	// ApologyMessage replaces any pipeline failure. Users never see a raw
	// error from a degraded remote dependency.
	ApologyMessage = "I'm sorry, I encountered an error while processing your question. Please try again."

	DefaultTopK = 3
)

const promptTemplate = `Context from news articles:
%s

Question: %s

Based on the provided news context, please provide a comprehensive and accurate answer. If the context doesn't contain enough information to fully answer the question, please say so.

Answer:`

// Answer is a single bot response.
type Answer struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type Pipeline struct {
	embedder  embedding.Client
	vectors   repository.NewsVectorRepo
	generator generation.Client
	topK      int
	logger    *zap.Logger
}

func NewPipeline(embedder embedding.Client, vectors repository.NewsVectorRepo, generator generation.Client, topK int, logger *zap.Logger) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Pipeline{
		embedder:  embedder,
		vectors:   vectors,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// Answer resolves a user question against the index. It never returns an
// error: remote failures degrade to a fixed apology message.
func (p *Pipeline) Answer(ctx context.Context, query string) Answer {
	count, err := p.vectors.Count(ctx)
	if err != nil {
		p.logger.Error("Failed to check index count", zap.Error(err))
		return newAnswer(ApologyMessage)
	}
	if count == 0 {
		p.logger.Info("Index is empty, returning canned response")
		return newAnswer(InsufficientInfoMessage)
	}

	docs, err := p.retrieve(ctx, query)
	if err != nil {
		p.logger.Error("Retrieval failed", zap.Error(err))
		return newAnswer(ApologyMessage)
	}
	if len(docs) == 0 {
		return newAnswer(InsufficientInfoMessage)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	contextBlock := strings.Join(texts, "\n\n")

	prompt := fmt.Sprintf(promptTemplate, contextBlock, query)
	message, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		p.logger.Error("Generation failed", zap.Error(err))
		return newAnswer(ApologyMessage)
	}

	return newAnswer(message)
}

func (p *Pipeline) retrieve(ctx context.Context, query string) ([]repository.ScoredDoc, error) {
	embeddings, err := p.embedder.GetEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("err embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding service returned no vector")
	}

	docs, err := p.vectors.Search(ctx, embeddings[0], p.topK)
	if err != nil {
		return nil, fmt.Errorf("err search index: %w", err)
	}
	return docs, nil
}

func newAnswer(message string) Answer {
	now := time.Now().UnixMilli()
	return Answer{
		ID:        fmt.Sprintf("msg_%d", now),
		Message:   message,
		Timestamp: now,
	}
}
