package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"secureauthhub/internal/platform/search"
)

const (
	defaultSearchSize = 5
	maxSearchSize     = 20
)

type DocumentSearcher interface {
	Search(ctx context.Context, ownerID uint, query string, size int) (*search.Result, error)
}

type ownerKey struct{}

// WithOwner scopes tool calls made under ctx to ownerID.
func WithOwner(ctx context.Context, ownerID uint) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

func OwnerFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(ownerKey{}).(uint)
	return id, ok && id != 0
}

type searchDocumentsTool struct {
	searcher DocumentSearcher
}

type searchDocumentsParams struct {
	Query string `json:"query"`
	Size  int    `json:"size,omitempty"`
}

func NewSearchDocumentsTool(searcher DocumentSearcher) tool.InvokableTool {
	t := &searchDocumentsTool{searcher: searcher}
	info := &schema.ToolInfo{
		Name: "search_documents",
		Desc: "Full-text search over the current user's uploaded documents. Returns matching filenames, URLs and snippets.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Desc:     "Keywords or a phrase to look for",
				Type:     schema.String,
				Required: true,
			},
			"size": {
				Desc:     "Maximum number of hits, default 5, max 20",
				Type:     schema.Integer,
				Required: false,
			},
		}),
	}
	return utils.NewTool(info, t.run)
}

func (t *searchDocumentsTool) run(ctx context.Context, params *searchDocumentsParams) (string, error) {
	if params == nil {
		return "", errors.New("missing search parameters")
	}
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return "", errors.New("query must not be empty")
	}
	ownerID, ok := OwnerFromContext(ctx)
	if !ok {
		return "", errors.New("search_documents called without an owner")
	}
	size := params.Size
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	result, err := t.searcher.Search(ctx, ownerID, query, size)
	if err != nil {
		return "", fmt.Errorf("search documents: %w", err)
	}
	if len(result.Hits) == 0 {
		return "No matching documents.", nil
	}
	out, err := json.Marshal(result.Hits)
	if err != nil {
		return "", fmt.Errorf("marshal search hits: %w", err)
	}
	return string(out), nil
}
