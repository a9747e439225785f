package app

import (
	"context"
	"strings"

	"secureauthhub/internal/platform/search"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

type SearchService struct {
	index SearchIndex
}

func NewSearchService(index SearchIndex) *SearchService {
	return &SearchService{index: index}
}

// Search runs a full-text query over the caller's documents.
func (s *SearchService) Search(ctx context.Context, ownerID uint, q string, size int) (*search.Result, error) {
	q = strings.TrimSpace(q)
	if ownerID == 0 || q == "" {
		return nil, ErrInvalidInput
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	return s.index.Search(ctx, ownerID, q, size)
}
