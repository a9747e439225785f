package rag

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"secureauthhub/internal/model"
	"secureauthhub/internal/repository"
)

// Indexer chunks document text, embeds the chunks and stores them.
type Indexer struct {
	chunkRepo   *repository.DocumentChunkRepository
	embedder    Embedder
	concurrency int
}

func NewIndexer(chunkRepo *repository.DocumentChunkRepository, embedder Embedder) *Indexer {
	return &Indexer{
		chunkRepo:   chunkRepo,
		embedder:    embedder,
		concurrency: 4,
	}
}

// IndexDocument replaces any existing chunks of docID and returns how many
// chunks were written.
func (i *Indexer) IndexDocument(ctx context.Context, docID uint, text string) (int, error) {
	chunks := chunkText(text, defaultChunkSize, defaultChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	embeddings := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for start := 0; start < len(chunks); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(chunks))
		g.Go(func() error {
			batch, err := i.embedder.EmbedBatch(gctx, chunks[start:end])
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d failed: %w", start, end, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embedding count mismatch: got %d, want %d", len(batch), end-start)
			}
			copy(embeddings[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	records := make([]model.DocumentChunk, len(chunks))
	for n := range chunks {
		records[n] = model.DocumentChunk{
			DocumentID: docID,
			Ordinal:    n,
			Content:    chunks[n],
		}
		records[n].SetEmbedding(embeddings[n])
	}

	if err := i.chunkRepo.DeleteByDocumentID(docID); err != nil {
		return 0, err
	}
	if err := i.chunkRepo.CreateBatch(records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// RemoveDocument drops every chunk of docID.
func (i *Indexer) RemoveDocument(docID uint) error {
	return i.chunkRepo.DeleteByDocumentID(docID)
}
