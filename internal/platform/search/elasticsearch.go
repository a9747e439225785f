package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"secureauthhub/internal/config"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "owner_id":       {"type": "long"},
      "filename":       {"type": "text", "fields": {"keyword": {"type": "keyword", "ignore_above": 256}}},
      "s3_url":         {"type": "keyword", "index": false},
      "extracted_text": {"type": "text"},
      "uploaded_at":    {"type": "date"}
    }
  }
}`

// Document is the metadata written to the search index for each upload.
type Document struct {
	ID            uint      `json:"-"`
	OwnerID       uint      `json:"owner_id"`
	Filename      string    `json:"filename"`
	S3URL         string    `json:"s3_url"`
	ExtractedText string    `json:"extracted_text"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

type Hit struct {
	ID       uint    `json:"id"`
	Filename string  `json:"filename"`
	S3URL    string  `json:"s3_url"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet,omitempty"`
}

type Result struct {
	Total int64 `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Client is a thin wrapper over the Elasticsearch typed-less API bound to one index.
type Client struct {
	es    *elasticsearch.Client
	index string
}

func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	addresses := cfg.ElasticsearchAddresses()
	if len(addresses) == 0 {
		return nil, errors.New("search host is not configured")
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  cfg.Search.Username,
		Password:  cfg.Search.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client failed: %w", err)
	}

	c := &Client{es: es, index: cfg.Search.Index}
	if err := c.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s failed: %w", c.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index %s failed: %s", c.index, res.Status())
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s failed: %w", c.index, err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(readBody(res), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s failed: %s", c.index, res.Status())
	}
	return nil
}

func (c *Client) IndexDocument(ctx context.Context, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal search document failed: %w", err)
	}
	res, err := c.es.Index(
		c.index,
		bytes.NewReader(payload),
		c.es.Index.WithDocumentID(strconv.FormatUint(uint64(doc.ID), 10)),
		c.es.Index.WithRefresh("wait_for"),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index document %d failed: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index document %d failed: %s", doc.ID, readBody(res))
	}
	return nil
}

func (c *Client) DeleteDocument(ctx context.Context, id uint) error {
	res, err := c.es.Delete(
		c.index,
		strconv.FormatUint(uint64(id), 10),
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete search document %d failed: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete search document %d failed: %s", id, readBody(res))
	}
	return nil
}

// Search runs a match query on extracted_text restricted to ownerID.
func (c *Client) Search(ctx context.Context, ownerID uint, query string, size int) (*Result, error) {
	body, err := json.Marshal(BuildQuery(ownerID, query, size))
	if err != nil {
		return nil, fmt.Errorf("marshal search query failed: %w", err)
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search documents failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search documents failed: %s", readBody(res))
	}
	return decodeResult(res.Body)
}

func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping elasticsearch failed: %s", res.Status())
	}
	return nil
}

// BuildQuery returns the request body for an owner-scoped full-text search.
func BuildQuery(ownerID uint, query string, size int) map[string]any {
	return map[string]any{
		"size":    size,
		"_source": []string{"filename", "s3_url"},
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"match": map[string]any{"extracted_text": query}},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"owner_id": ownerID}},
				},
			},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"extracted_text": map[string]any{"fragment_size": 160, "number_of_fragments": 1},
			},
		},
	}
}

func decodeResult(r io.Reader) (*Result, error) {
	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID        string   `json:"_id"`
				Score     float64  `json:"_score"`
				Source    Document `json:"_source"`
				Highlight struct {
					ExtractedText []string `json:"extracted_text"`
				} `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response failed: %w", err)
	}

	result := &Result{Total: parsed.Hits.Total.Value, Hits: make([]Hit, 0, len(parsed.Hits.Hits))}
	for _, h := range parsed.Hits.Hits {
		id, _ := strconv.ParseUint(h.ID, 10, 64)
		hit := Hit{
			ID:       uint(id),
			Filename: h.Source.Filename,
			S3URL:    h.Source.S3URL,
			Score:    h.Score,
		}
		if len(h.Highlight.ExtractedText) > 0 {
			hit.Snippet = h.Highlight.ExtractedText[0]
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

func readBody(res *esapi.Response) string {
	raw, err := io.ReadAll(res.Body)
	if err != nil || len(raw) == 0 {
		return res.Status()
	}
	return string(raw)
}
