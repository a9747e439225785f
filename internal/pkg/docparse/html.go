package docparse

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/net/html"
)

// HTMLParser keeps the visible text of an HTML document, one block per line.
type HTMLParser struct{}

func (HTMLParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	options := parser.GetCommonOptions(&parser.Options{}, opts...)
	root, err := html.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html failed: %w", err)
	}
	var lines []string
	collectText(root, &lines)
	return []*schema.Document{{
		ID:       options.URI,
		Content:  strings.Join(lines, "\n"),
		MetaData: options.ExtraMeta,
	}}, nil
}

func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "head":
			return
		}
	}
	if n.Type == html.TextNode {
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			*lines = append(*lines, text)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}
