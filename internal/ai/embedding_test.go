package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newEmbeddingServer(t *testing.T, handler func(input any) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body struct {
			Model string `json:"model"`
			Input any    `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Model != "embed-small" {
			t.Errorf("unexpected model %q", body.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handler(body.Input))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbeddingClient(baseURL string) *EmbeddingClient {
	return NewEmbeddingClient(nil, EmbeddingConfig{
		BaseURL: baseURL + "/v1/",
		APIKey:  "sk-test",
		Model:   "embed-small",
	})
}

func TestEmbed(t *testing.T) {
	srv := newEmbeddingServer(t, func(any) any {
		return map[string]any{"data": []map[string]any{{"index": 0, "embedding": []float32{0.1, 0.2}}}}
	})
	vec, err := newTestEmbeddingClient(srv.URL).Embed(context.Background(), "  hello ")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 || vec[1] != 0.2 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestEmbedRejectsBlank(t *testing.T) {
	if _, err := newTestEmbeddingClient("http://unused").Embed(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank input")
	}
}

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	srv := newEmbeddingServer(t, func(input any) any {
		items, _ := input.([]any)
		if len(items) != 2 {
			t.Errorf("unexpected input %v", input)
		}
		return map[string]any{"data": []map[string]any{
			{"index": 1, "embedding": []float32{2}},
			{"index": 0, "embedding": []float32{1}},
		}}
	})
	vecs, err := newTestEmbeddingClient(srv.URL).EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Fatalf("unexpected order %v", vecs)
	}
}

func TestEmbedBatchRejectsIncompleteIndexes(t *testing.T) {
	cases := map[string][]map[string]any{
		"duplicate": {
			{"index": 0, "embedding": []float32{1}},
			{"index": 0, "embedding": []float32{2}},
		},
		"out of range": {
			{"index": 0, "embedding": []float32{1}},
			{"index": 5, "embedding": []float32{2}},
		},
		"empty vector": {
			{"index": 0, "embedding": []float32{1}},
			{"index": 1, "embedding": []float32{}},
		},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newEmbeddingServer(t, func(any) any {
				return map[string]any{"data": data}
			})
			vecs, err := newTestEmbeddingClient(srv.URL).EmbedBatch(context.Background(), []string{"a", "b"})
			if err == nil {
				t.Fatalf("expected error, got %v", vecs)
			}
		})
	}
}

func TestEmbedBatchReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	if _, err := newTestEmbeddingClient(srv.URL).EmbedBatch(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestNewChatModelRejectsUnknownProvider(t *testing.T) {
	if _, err := NewChatModel(context.Background(), ChatModelConfig{Provider: "mistral"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
