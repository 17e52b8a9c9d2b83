// Package render turns assistant replies into HTML for the chat widget.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Renderer formats message content for display. Implementations must accept any text.
type Renderer interface {
	Render(content string) (template.HTML, error)
}

// Format names a Renderer.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatMarkdown Format = "markdown"
)

// New returns the renderer for format. highlightStyle is the chroma style used for fenced
// code in Markdown; empty disables highlighting.
func New(format Format, highlightStyle string) (Renderer, error) {
	switch format {
	case FormatPlain:
		return Plain{}, nil
	case FormatMarkdown, "":
		return NewMarkdown(highlightStyle), nil
	default:
		return nil, fmt.Errorf("unknown render format: %s", format)
	}
}

// Plain escapes content and keeps its line breaks.
type Plain struct{}

// Render implements Renderer.
func (Plain) Render(content string) (template.HTML, error) {
	escaped := html.EscapeString(content)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n")), nil
}

// Markdown renders GitHub flavored Markdown with hard line breaks. Raw HTML in the
// content is not passed through.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a Markdown renderer.
func NewMarkdown(highlightStyle string) Markdown {
	exts := []goldmark.Extender{extension.GFM}
	if highlightStyle != "" {
		exts = append(exts, highlighting.NewHighlighting(highlighting.WithStyle(highlightStyle)))
	}

	return Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithParserOptions(
				parser.WithASTTransformers(util.Prioritized(widgetTransformer{}, 100)),
			),
			goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
		),
	}
}

// Render implements Renderer.
func (m Markdown) Render(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// pointPattern matches paragraphs written as lettered or numbered points, like "a. ...".
var pointPattern = regexp.MustCompile(`(?i)^[a-z0-9]+\.\s`)

// widgetTransformer decorates nodes with the classes the chat bubble styles expect.
type widgetTransformer struct{}

func (widgetTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Paragraph:
			if node.Lines().Len() > 0 {
				first := node.Lines().At(0)
				if pointPattern.Match(first.Value(source)) {
					node.SetAttributeString("class", []byte("point"))
				}
			}
		case *ast.Emphasis:
			if node.Level == 2 {
				node.SetAttributeString("class", []byte("highlight"))
			}
		case *ast.Link:
			node.SetAttributeString("target", []byte("_blank"))
			node.SetAttributeString("rel", []byte("noopener noreferrer"))
		case *ast.AutoLink:
			node.SetAttributeString("target", []byte("_blank"))
			node.SetAttributeString("rel", []byte("noopener noreferrer"))
		}
		return ast.WalkContinue, nil
	})
}
