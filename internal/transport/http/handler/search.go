package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"secureauthhub/internal/app"
	"secureauthhub/internal/transport/http/response"
)

type SearchHandler struct {
	searchService *app.SearchService
}

func NewSearchHandler(searchService *app.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

func (h *SearchHandler) Search(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, response.CodeUnauthorized, "invalid token payload")
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "query parameter q is required")
		return
	}
	size, ok := queryInt(c, "size", 10)
	if !ok || size < 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid size")
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), userID, q, size)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		return
	}
	response.OK(c, result)
}
