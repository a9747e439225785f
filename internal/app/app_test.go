package app

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"gorm.io/gorm"

	"secureauthhub/internal/model"
	"secureauthhub/internal/platform/database"
	"secureauthhub/internal/platform/search"
	"secureauthhub/internal/rag"
	"secureauthhub/internal/repository"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return "https://bucket.example/" + key, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fileExtractor struct {
	err error
}

func (e fileExtractor) Extract(_ context.Context, path string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

type fakeIndexer struct {
	count   int
	err     error
	indexed map[uint]string
	removed []uint
}

func (f *fakeIndexer) IndexDocument(_ context.Context, docID uint, text string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.indexed == nil {
		f.indexed = map[uint]string{}
	}
	f.indexed[docID] = text
	return f.count, nil
}

func (f *fakeIndexer) RemoveDocument(docID uint) error {
	f.removed = append(f.removed, docID)
	return nil
}

type fakeSearch struct {
	indexErr error
	docs     map[uint]search.Document
	deleted  []uint
	lastSize int
	result   *search.Result
}

func (f *fakeSearch) IndexDocument(_ context.Context, doc search.Document) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	if f.docs == nil {
		f.docs = map[uint]search.Document{}
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeSearch) DeleteDocument(_ context.Context, id uint) error {
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSearch) Search(_ context.Context, _ uint, _ string, size int) (*search.Result, error) {
	f.lastSize = size
	if f.result == nil {
		return &search.Result{Hits: []search.Hit{}}, nil
	}
	return f.result, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []model.ChatMessage
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, msg model.ChatMessage) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

type memoryHistoryCache struct {
	history map[uint][]model.ChatMessage
	dirty   map[uint]bool
	gets    int
}

func newMemoryHistoryCache() *memoryHistoryCache {
	return &memoryHistoryCache{history: map[uint][]model.ChatMessage{}, dirty: map[uint]bool{}}
}

func (c *memoryHistoryCache) GetHistory(_ context.Context, id uint) ([]model.ChatMessage, bool, error) {
	c.gets++
	h, ok := c.history[id]
	return h, ok, nil
}

func (c *memoryHistoryCache) SetHistory(_ context.Context, id uint, msgs []model.ChatMessage) error {
	c.history[id] = msgs
	return nil
}

func (c *memoryHistoryCache) DeleteHistory(_ context.Context, id uint) error {
	delete(c.history, id)
	return nil
}

func (c *memoryHistoryCache) Invalidate(ctx context.Context, id uint) error {
	delete(c.history, id)
	c.dirty[id] = true
	return nil
}

func (c *memoryHistoryCache) IsDirty(_ context.Context, id uint) (bool, error) {
	return c.dirty[id], nil
}

type fakeRetriever struct {
	result *rag.QueryResult
	err    error
	input  rag.QueryInput
}

func (f *fakeRetriever) Query(_ context.Context, input rag.QueryInput) (*rag.QueryResult, error) {
	f.input = input
	return f.result, f.err
}

type fakeAgent struct {
	retrieved string
	answer    string
	err       error
}

func (a *fakeAgent) Run(_ context.Context, _ uint, _ string, retrieved string) (string, error) {
	a.retrieved = retrieved
	return a.answer, a.err
}

func newUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := repository.NewUserRepository(db).Create(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

var errBoom = errors.New("boom")

func testDB(t *testing.T) *gorm.DB {
	return database.NewTestDB(t)
}
