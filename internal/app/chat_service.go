package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"secureauthhub/internal/model"
	"secureauthhub/internal/rag"
	"secureauthhub/internal/repository"
)

const noContextAnswer = "No relevant context was found in your documents."

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrMessageEnqueue  = errors.New("message enqueue failed")
)

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.ChatMessage) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.ChatMessage, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.ChatMessage) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	Invalidate(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

type Retriever interface {
	Query(ctx context.Context, input rag.QueryInput) (*rag.QueryResult, error)
}

type Agent interface {
	Run(ctx context.Context, ownerID uint, query, retrieved string) (string, error)
}

type ChatService struct {
	sessionRepo  *repository.ChatSessionRepository
	messageRepo  *repository.ChatMessageRepository
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	retriever    Retriever
	agent        Agent
}

type ChatQueryInput struct {
	UserID      uint
	SessionID   uint // 0 starts a new session
	Query       string
	DocumentIDs []uint
	TopK        int
}

type ChatQueryResult struct {
	SessionID uint         `json:"session_id"`
	Answer    string       `json:"answer"`
	Context   string       `json:"context"`
	Sources   []rag.Source `json:"sources"`
}

// NewChatService wires the chat flow. agent and historyCache may be nil.
func NewChatService(
	sessionRepo *repository.ChatSessionRepository,
	messageRepo *repository.ChatMessageRepository,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	retriever Retriever,
	agent Agent,
) *ChatService {
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		publisher:    publisher,
		historyCache: historyCache,
		retriever:    retriever,
		agent:        agent,
	}
}

func (s *ChatService) Query(ctx context.Context, input ChatQueryInput) (*ChatQueryResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrMessageEmpty
	}
	if s.publisher == nil {
		return nil, ErrMessageEnqueue
	}

	session, err := s.resolveSession(input.UserID, input.SessionID)
	if err != nil {
		return nil, err
	}

	var (
		retrieved string
		sources   []rag.Source
		found     bool
	)
	res, err := s.retriever.Query(ctx, rag.QueryInput{
		OwnerID:     input.UserID,
		Question:    query,
		DocumentIDs: input.DocumentIDs,
		TopK:        input.TopK,
	})
	if err != nil {
		slog.Warn("chat retrieval failed", "user_id", input.UserID, "error", err)
		retrieved = "retrieval failed: " + err.Error()
	} else {
		retrieved = res.Response
		sources = res.Sources
		found = true
	}

	s.invalidateHistory(ctx, session.ID)
	if err := s.publish(ctx, session.ID, model.SenderUser, query); err != nil {
		return nil, err
	}

	var answer string
	switch {
	case s.agent != nil:
		answer, err = s.agent.Run(ctx, input.UserID, query, retrieved)
		if err != nil {
			return nil, err
		}
	case found:
		answer = retrieved
	default:
		answer = noContextAnswer
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}

	if err := s.publish(ctx, session.ID, model.SenderAssistant, answer); err != nil {
		return nil, err
	}

	if sources == nil {
		sources = []rag.Source{}
	}
	return &ChatQueryResult{
		SessionID: session.ID,
		Answer:    answer,
		Context:   retrieved,
		Sources:   sources,
	}, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.ChatSession, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID)
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.messageRepo.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByIDAndUserID(sessionID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}
	return nil
}

// GetHistory serves from the cache unless the session has a pending write.
func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID uint, limit int) ([]model.ChatMessage, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID, 0)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return trimMessages(messages, limit), nil
}

func (s *ChatService) resolveSession(userID, sessionID uint) (*model.ChatSession, error) {
	if sessionID != 0 {
		session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, ErrSessionNotFound
		}
		return session, nil
	}
	session := &model.ChatSession{UserID: userID}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) publish(ctx context.Context, sessionID uint, sender, content string) error {
	msg := model.ChatMessage{
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		slog.Error("publish chat message failed", "session_id", sessionID, "sender", sender, "error", err)
		return ErrMessageEnqueue
	}
	return nil
}

func (s *ChatService) invalidateHistory(ctx context.Context, sessionID uint) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.Invalidate(ctx, sessionID); err != nil {
		slog.Warn("invalidate history cache failed", "session_id", sessionID, "error", err)
	}
}

func trimMessages(messages []model.ChatMessage, limit int) []model.ChatMessage {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
