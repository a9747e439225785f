package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"secureauthhub/internal/app"
	"secureauthhub/internal/bootstrap"
	"secureauthhub/internal/config"
	"secureauthhub/internal/model"
	"secureauthhub/internal/platform/database"
	"secureauthhub/internal/platform/search"
	"secureauthhub/internal/rag"
	"secureauthhub/internal/repository"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string]int
}

func (s *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = int(n)
	return "https://bucket.s3.us-east-1.amazonaws.com/" + key, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type readFileExtractor struct{}

func (readFileExtractor) Extract(_ context.Context, path string) (string, error) {
	b, err := os.ReadFile(path)
	return string(b), err
}

type countingIndexer struct{}

func (countingIndexer) IndexDocument(_ context.Context, _ uint, text string) (int, error) {
	return len(text)/512 + 1, nil
}

func (countingIndexer) RemoveDocument(uint) error { return nil }

type memSearch struct {
	mu   sync.Mutex
	docs map[uint]search.Document
}

func (s *memSearch) IndexDocument(_ context.Context, doc search.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *memSearch) DeleteDocument(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *memSearch) Search(_ context.Context, ownerID uint, query string, size int) (*search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &search.Result{Hits: []search.Hit{}}
	for id, d := range s.docs {
		if d.OwnerID == ownerID && strings.Contains(d.ExtractedText, query) && len(res.Hits) < size {
			res.Hits = append(res.Hits, search.Hit{ID: id, Filename: d.Filename, S3URL: d.S3URL, Score: 1})
		}
	}
	res.Total = int64(len(res.Hits))
	return res, nil
}

type persistingPublisher struct {
	repo *repository.ChatMessageRepository
}

func (p persistingPublisher) Publish(_ context.Context, msg model.ChatMessage) error {
	return p.repo.Create(&msg)
}

type echoRetriever struct{}

func (echoRetriever) Query(_ context.Context, input rag.QueryInput) (*rag.QueryResult, error) {
	return &rag.QueryResult{Response: "context for " + input.Question, Sources: []rag.Source{}}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db := database.NewTestDB(t)
	cfg := &config.Config{
		App:  config.AppConfig{Name: "secureauthhub", Env: "test", GinMode: gin.TestMode},
		Auth: config.AuthConfig{JWTSecret: "test-secret", JWTExpireMinute: 30},
		Upload: config.UploadConfig{
			TempDir:           t.TempDir(),
			MaxBytes:          1 << 20,
			AllowedExtensions: []string{".txt", ".md"},
		},
	}
	idx := &memSearch{docs: map[uint]search.Document{}}
	messageRepo := repository.NewChatMessageRepository(db)

	a := &bootstrap.App{
		Config: cfg,
		DB:     db,
		Items:  app.NewItemService(repository.NewItemRepository(db)),
		Auth:   app.NewAuthService(repository.NewUserRepository(db), cfg.Auth.JWTSecret, cfg.JWTExpiration()),
		Documents: app.NewDocumentService(
			repository.NewDocumentRepository(db),
			&memStore{objects: map[string]int{}},
			readFileExtractor{},
			countingIndexer{},
			idx,
			cfg.Upload,
			"documents",
		),
		Chat: app.NewChatService(
			repository.NewChatSessionRepository(db),
			messageRepo,
			persistingPublisher{repo: messageRepo},
			nil,
			echoRetriever{},
			nil,
		),
		Searcher:  app.NewSearchService(idx),
		StartedAt: time.Now(),
	}
	return NewRouter(a)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func jsonRequest(method, target, token string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func registerAndLogin(t *testing.T, r http.Handler, username string) string {
	t.Helper()
	rec, _ := do(t, r, jsonRequest(http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "s3cret-pass",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", rec.Code, rec.Body)
	}

	form := url.Values{"username": {username}, "password": {"s3cret-pass"}, "grant_type": {"password"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("token status %d: %s", rec.Code, rec.Body)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatal(err)
	}
	if tok.TokenType != "bearer" || tok.AccessToken == "" || tok.ExpiresIn != 1800 {
		t.Fatalf("unexpected token response %+v", tok)
	}
	return tok.AccessToken
}

func TestRootAndHealth(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Welcome to SecureAuthHub API") {
		t.Fatalf("root: %d %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body)
	}
	var health struct {
		Dependencies map[string]struct {
			OK bool `json:"ok"`
		} `json:"dependencies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if !health.Dependencies["database"].OK {
		t.Fatalf("database not healthy: %s", rec.Body)
	}
}

func TestAuthFlow(t *testing.T) {
	r := newTestRouter(t)
	token := registerAndLogin(t, r, "alice")

	rec, env := do(t, r, jsonRequest(http.MethodPost, "/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "s3cret-pass",
	}))
	if rec.Code != http.StatusBadRequest || env.Message != "Username already registered" {
		t.Fatalf("duplicate register: %d %+v", rec.Code, env)
	}

	form := url.Values{"username": {"alice"}, "password": {"wrong-pass"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, _ = do(t, r, req)
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("bad login: %d %v", rec.Code, rec.Header())
	}

	rec, env = do(t, r, jsonRequest(http.MethodGet, "/users/me", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body)
	}
	var me map[string]any
	_ = json.Unmarshal(env.Data, &me)
	if me["username"] != "alice" {
		t.Fatalf("me data %v", me)
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Fatal("password hash leaked")
	}

	rec, _ = do(t, r, jsonRequest(http.MethodGet, "/users/me", "", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous me: %d", rec.Code)
	}
}

func TestItemEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec, env := do(t, r, jsonRequest(http.MethodPost, "/items", "", map[string]any{"name": "widget", "description": "blue"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var item model.Item
	_ = json.Unmarshal(env.Data, &item)

	rec, _ = do(t, r, jsonRequest(http.MethodPut, "/items/"+itoa(item.ID), "", map[string]any{"name": "gadget"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body)
	}
	rec, env = do(t, r, jsonRequest(http.MethodGet, "/items?skip=0&limit=5", "", nil))
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), "gadget") {
		t.Fatalf("list: %d %s", rec.Code, rec.Body)
	}

	rec, env = do(t, r, jsonRequest(http.MethodDelete, "/items/"+itoa(item.ID), "", nil))
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), "Item deleted successfully") {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body)
	}
	rec, env = do(t, r, jsonRequest(http.MethodGet, "/items/"+itoa(item.ID), "", nil))
	if rec.Code != http.StatusNotFound || env.Message != "Item not found" {
		t.Fatalf("get deleted: %d %+v", rec.Code, env)
	}
	rec, _ = do(t, r, jsonRequest(http.MethodGet, "/items/abc", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
	rec, _ = do(t, r, jsonRequest(http.MethodPost, "/items", "", map[string]any{"description": "no name"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name: %d", rec.Code)
	}
}

func uploadRequest(t *testing.T, token, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte(content))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestDocumentSearchAndChat(t *testing.T) {
	r := newTestRouter(t)
	alice := registerAndLogin(t, r, "alice")
	bob := registerAndLogin(t, r, "bob")

	rec, _ := do(t, r, uploadRequest(t, "", "notes.txt", "hello"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous upload: %d", rec.Code)
	}
	rec, _ = do(t, r, uploadRequest(t, alice, "tool.exe", "MZ"))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("exe upload: %d %s", rec.Code, rec.Body)
	}

	rec, env := do(t, r, uploadRequest(t, alice, "notes.txt", "goroutines are lightweight threads"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body)
	}
	var uploaded struct {
		ID            uint   `json:"id"`
		S3URL         string `json:"s3_url"`
		ExtractedText string `json:"extracted_text"`
		ChunkCount    int    `json:"chunk_count"`
	}
	_ = json.Unmarshal(env.Data, &uploaded)
	if uploaded.ID == 0 || uploaded.ChunkCount != 1 || !strings.Contains(uploaded.S3URL, "documents/") {
		t.Fatalf("upload data %+v", uploaded)
	}

	rec, _ = do(t, r, jsonRequest(http.MethodGet, "/documents/"+itoa(uploaded.ID), bob, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign document: %d", rec.Code)
	}
	rec, env = do(t, r, jsonRequest(http.MethodGet, "/documents", alice, nil))
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), "notes.txt") {
		t.Fatalf("list documents: %d %s", rec.Code, rec.Body)
	}

	rec, env = do(t, r, jsonRequest(http.MethodGet, "/search?q=goroutines", alice, nil))
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), "notes.txt") {
		t.Fatalf("search: %d %s", rec.Code, rec.Body)
	}
	rec, env = do(t, r, jsonRequest(http.MethodGet, "/search?q=goroutines", bob, nil))
	if rec.Code != http.StatusOK || strings.Contains(string(env.Data), "notes.txt") {
		t.Fatalf("search leaked across owners: %s", rec.Body)
	}
	rec, _ = do(t, r, jsonRequest(http.MethodGet, "/search", alice, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("search without q: %d", rec.Code)
	}

	rec, env = do(t, r, jsonRequest(http.MethodPost, "/chat/query", alice, map[string]any{"query": "what are goroutines?"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: %d %s", rec.Code, rec.Body)
	}
	var chat app.ChatQueryResult
	_ = json.Unmarshal(env.Data, &chat)
	if chat.SessionID == 0 || chat.Answer != "context for what are goroutines?" {
		t.Fatalf("chat result %+v", chat)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat/query?query=again", nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	rec, _ = do(t, r, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query-string chat: %d %s", rec.Code, rec.Body)
	}

	rec, _ = do(t, r, jsonRequest(http.MethodPost, "/chat/query", alice, map[string]any{"query": "  "}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty chat: %d", rec.Code)
	}
	rec, _ = do(t, r, jsonRequest(http.MethodPost, "/chat/query", bob, map[string]any{"query": "hi", "session_id": chat.SessionID}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign session: %d", rec.Code)
	}

	rec, env = do(t, r, jsonRequest(http.MethodGet, "/chat/sessions/"+itoa(chat.SessionID)+"/messages", alice, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d %s", rec.Code, rec.Body)
	}
	var history []model.ChatMessage
	_ = json.Unmarshal(env.Data, &history)
	if len(history) != 2 || history[0].Sender != model.SenderUser || history[1].Sender != model.SenderAssistant {
		t.Fatalf("history %+v", history)
	}

	rec, _ = do(t, r, jsonRequest(http.MethodDelete, "/documents/"+itoa(uploaded.ID), alice, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete document: %d %s", rec.Code, rec.Body)
	}
	rec, _ = do(t, r, jsonRequest(http.MethodDelete, "/chat/sessions/"+itoa(chat.SessionID), alice, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete session: %d %s", rec.Code, rec.Body)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
