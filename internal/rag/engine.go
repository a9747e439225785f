package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"secureauthhub/internal/repository"
)

const systemPrompt = "You are a helpful assistant. Answer the user's question based only on the following context. " +
	"If the context does not contain enough information, say so. Do not make up facts."

type QueryInput struct {
	OwnerID     uint
	Question    string
	DocumentIDs []uint // empty = all of the owner's documents
	TopK        int
}

type Source struct {
	DocumentID uint    `json:"document_id"`
	ChunkID    uint    `json:"chunk_id"`
	Ordinal    int     `json:"ordinal"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

type QueryResult struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

// Engine answers questions over one owner's indexed documents.
type Engine struct {
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.DocumentChunkRepository
	embedder  Embedder
	llm       Generator
	topK      int
}

func NewEngine(
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.DocumentChunkRepository,
	embedder Embedder,
	llm Generator,
	topK int,
) *Engine {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Engine{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		llm:       llm,
		topK:      topK,
	}
}

// Retrieve returns the top-k chunks most similar to the question.
func (e *Engine) Retrieve(ctx context.Context, input QueryInput) ([]Source, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrEmptyQuery
	}
	k := input.TopK
	if k <= 0 {
		k = e.topK
	}

	var (
		docIDs []uint
		err    error
	)
	if len(input.DocumentIDs) > 0 {
		docIDs, err = e.docRepo.FilterOwnedIDs(input.OwnerID, input.DocumentIDs)
	} else {
		docIDs, err = e.docRepo.ListIDsByOwnerID(input.OwnerID)
	}
	if err != nil {
		return nil, err
	}
	if len(docIDs) == 0 {
		return nil, ErrNoDocuments
	}

	chunks, err := e.chunkRepo.ListByDocumentIDs(docIDs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	queryVec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question failed: %w", err)
	}

	sources := make([]Source, len(chunks))
	for i := range chunks {
		sources[i] = Source{
			DocumentID: chunks[i].DocumentID,
			ChunkID:    chunks[i].ID,
			Ordinal:    chunks[i].Ordinal,
			Content:    chunks[i].Content,
			Score:      cosineSimilarity(queryVec, chunks[i].EmbeddingVector()),
		}
	}
	return topK(sources, k), nil
}

// Query retrieves the best chunks and asks the chat model to answer from them.
func (e *Engine) Query(ctx context.Context, input QueryInput) (*QueryResult, error) {
	sources, err := e.Retrieve(ctx, input)
	if err != nil {
		return nil, err
	}

	var contextBlock strings.Builder
	for _, s := range sources {
		contextBlock.WriteString("\n---\n")
		contextBlock.WriteString(s.Content)
	}
	contextBlock.WriteString("\n---")

	resp, err := e.llm.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("Context:" + contextBlock.String() + "\n\nQuestion: " + strings.TrimSpace(input.Question) + "\n\nAnswer:"),
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer failed: %w", err)
	}

	return &QueryResult{
		Response: strings.TrimSpace(resp.Content),
		Sources:  sources,
	}, nil
}
