package export

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/goliatone/go-cms-replace/content"
)

// StripTags returns the text nodes of an HTML fragment with whitespace
// collapsed. Script and style bodies are dropped.
func StripTags(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF ends the fragment; malformed input keeps what was read.
			return collapse(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isRawText(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isRawText(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

func isRawText(name []byte) bool {
	tag := string(name)
	return tag == "script" || tag == "style"
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Extract turns a field value into plain text. Markdown is rendered first so
// its markup does not leak into the extract. Plain text is only collapsed.
func (w *Writer) Extract(kind content.FieldKind, format, text string) string {
	if kind != content.FieldRichText {
		return collapse(text)
	}
	if format == content.FormatMarkdown && w.markdown != nil {
		if rendered, err := w.markdown.Render([]byte(text)); err == nil {
			text = string(rendered)
		} else {
			w.logger.Warn("export.markdown.failed", "error", err)
		}
	}
	return StripTags(text)
}
