package export

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownRenderer converts Markdown rich text to HTML before extraction.
// A single engine is safe for concurrent use.
type MarkdownRenderer struct {
	engine goldmark.Markdown
}

// NewMarkdownRenderer builds a GFM renderer that keeps raw HTML so inline
// markup is stripped along with the generated tags.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

func (r *MarkdownRenderer) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}
