// Package docparse turns uploaded files into plain text using the eino file
// loader and a per-extension parser table.
package docparse

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
)

type Parser struct {
	loader *file.FileLoader
}

func New(ctx context.Context) (*Parser, error) {
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers: map[string]parser.Parser{
			".pdf":  PDFParser{},
			".html": HTMLParser{},
			".htm":  HTMLParser{},
		},
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("create ext parser failed: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return nil, fmt.Errorf("create file loader failed: %w", err)
	}
	return &Parser{loader: loader}, nil
}

// Extract loads the file at path and returns its text. The parser is chosen by
// the path's extension, so temp files must keep the original extension.
func (p *Parser) Extract(ctx context.Context, path string) (string, error) {
	docs, err := p.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", fmt.Errorf("load document failed: %w", err)
	}
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if content := strings.TrimSpace(doc.Content); content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n"), nil
}
