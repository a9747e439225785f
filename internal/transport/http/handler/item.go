package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"secureauthhub/internal/app"
	"secureauthhub/internal/transport/http/response"
)

type ItemHandler struct {
	itemService *app.ItemService
}

type ItemRequest struct {
	Name        string  `json:"name" binding:"required,max=128"`
	Description *string `json:"description"`
}

func NewItemHandler(itemService *app.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

func (h *ItemHandler) List(c *gin.Context) {
	skip, ok := queryInt(c, "skip", 0)
	if !ok || skip < 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid skip")
		return
	}
	limit, ok := queryInt(c, "limit", 10)
	if !ok || limit < 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
		return
	}

	items, err := h.itemService.List(skip, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list items failed")
		return
	}
	response.OK(c, items)
}

func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid item id")
		return
	}
	item, err := h.itemService.Get(id)
	if err != nil {
		h.writeError(c, err, "get item failed")
		return
	}
	response.OK(c, item)
}

func (h *ItemHandler) Create(c *gin.Context) {
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	item, err := h.itemService.Create(app.ItemInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.writeError(c, err, "create item failed")
		return
	}
	response.Created(c, item)
}

func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid item id")
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	item, err := h.itemService.Update(id, app.ItemInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.writeError(c, err, "update item failed")
		return
	}
	response.OK(c, item)
}

func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid item id")
		return
	}
	if err := h.itemService.Delete(id); err != nil {
		h.writeError(c, err, "delete item failed")
		return
	}
	response.OK(c, gin.H{"message": "Item deleted successfully"})
}

func (h *ItemHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrItemNotFound):
		response.Error(c, http.StatusNotFound, response.CodeItemNotFound, "Item not found")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
