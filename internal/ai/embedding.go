package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// EmbeddingClient binds an OpenAICompatibleClient to one embedding model.
type EmbeddingClient struct {
	client *OpenAICompatibleClient
	cfg    EmbeddingConfig
}

func NewEmbeddingClient(client *OpenAICompatibleClient, cfg EmbeddingConfig) *EmbeddingClient {
	if client == nil {
		client = NewOpenAICompatibleClient()
	}
	return &EmbeddingClient{client: client, cfg: cfg}
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text.
func (e *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embedding input is empty")
	}

	var parsed embeddingResponse
	err := e.client.postJSON(ctx, e.cfg.BaseURL, e.cfg.APIKey, "/embeddings", map[string]any{
		"model": e.cfg.Model,
		"input": text,
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, errors.New("empty embedding in response")
	}
	return parsed.Data[0].Embedding, nil
}

// EmbedBatch returns one embedding per input text, in input order. Blank
// texts are rejected so the result always lines up with the input.
func (e *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding input %d is empty", i)
		}
	}

	var parsed embeddingResponse
	err := e.client.postJSON(ctx, e.cfg.BaseURL, e.cfg.APIKey, "/embeddings", map[string]any{
		"model": e.cfg.Model,
		"input": texts,
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("embedding batch request failed: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding batch returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	result := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding batch returned out-of-range index %d", d.Index)
		}
		if result[d.Index] != nil {
			return nil, fmt.Errorf("embedding batch returned index %d twice", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embedding batch returned an empty vector for input %d", d.Index)
		}
		result[d.Index] = d.Embedding
	}
	return result, nil
}
