package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"secureauthhub/internal/app"
	"secureauthhub/internal/transport/http/response"
)

const maxHistoryLimit = 100

type ChatHandler struct {
	chatService *app.ChatService
}

type ChatQueryRequest struct {
	Query       string `json:"query"`
	SessionID   uint   `json:"session_id"`
	DocumentIDs []uint `json:"document_ids"`
	TopK        int    `json:"top_k" binding:"gte=0,lte=50"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Query accepts a JSON body or, for compatibility, ?query= alone.
func (h *ChatHandler) Query(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req ChatQueryRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
	}
	if req.Query == "" {
		req.Query = c.Query("query")
	}

	result, err := h.chatService.Query(c.Request.Context(), app.ChatQueryInput{
		UserID:      userID,
		SessionID:   req.SessionID,
		Query:       req.Query,
		DocumentIDs: req.DocumentIDs,
		TopK:        req.TopK,
	})
	if err != nil {
		h.writeError(c, err, "chat query failed")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, response.CodeUnauthorized, "invalid token payload")
		return
	}
	sessions, err := h.chatService.ListSessions(userID)
	if err != nil {
		h.writeError(c, err, "list sessions failed")
		return
	}
	response.OK(c, sessions)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, response.CodeUnauthorized, "invalid token payload")
		return
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok || limit < 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	messages, err := h.chatService.GetHistory(c.Request.Context(), userID, sessionID, limit)
	if err != nil {
		h.writeError(c, err, "get history failed")
		return
	}
	response.OK(c, messages)
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, response.CodeUnauthorized, "invalid token payload")
		return
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}
	if err := h.chatService.DeleteSession(c.Request.Context(), userID, sessionID); err != nil {
		h.writeError(c, err, "delete session failed")
		return
	}
	response.OK(c, gin.H{"message": "Session deleted successfully"})
}

func (h *ChatHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrMessageEnqueue):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
