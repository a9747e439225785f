// Package agent runs a ReAct agent that can search the caller's documents and,
// optionally, the web.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
)

const systemPrompt = "You are a research assistant for the user's uploaded documents. " +
	"Use the search_documents tool to look things up in those documents before answering. " +
	"Cite the filenames you relied on. If nothing relevant is found, say so."

type Config struct {
	WebSearch bool
	MaxSteps  int
}

type Agent struct {
	agent *react.Agent
}

func New(ctx context.Context, chatModel model.ToolCallingChatModel, searcher DocumentSearcher, cfg Config) (*Agent, error) {
	tools := []tool.BaseTool{NewSearchDocumentsTool(searcher)}
	if cfg.WebSearch {
		ddg, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
			ToolName:   "web_search",
			ToolDesc:   "Search the public web with DuckDuckGo when the documents do not cover the question",
			MaxResults: 3,
			Region:     duckduckgo.RegionWT,
			Timeout:    10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("init duckduckgo tool failed: %w", err)
		}
		tools = append(tools, ddg)
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 8
	}
	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: tools,
		},
		MaxStep: maxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("init react agent: %w", err)
	}
	return &Agent{agent: reactAgent}, nil
}

// Run answers query on behalf of ownerID. retrieved is the context already
// gathered by the retrieval engine and may be empty.
func (a *Agent) Run(ctx context.Context, ownerID uint, query, retrieved string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("query is empty")
	}

	prompt := query
	if retrieved = strings.TrimSpace(retrieved); retrieved != "" {
		prompt = "Retrieved context:\n" + retrieved + "\n\nQuestion: " + query
	}
	resp, err := a.agent.Generate(WithOwner(ctx, ownerID), []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	})
	if err != nil {
		return "", fmt.Errorf("agent generate failed: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
