package matcher

import "unicode/utf8"

const (
	DefaultContextWidth   = 100
	DefaultHighlightOpen  = "<strong>"
	DefaultHighlightClose = "</strong>"
	Ellipsis              = "…"
)

// ContextOptions controls how snippets around a match are rendered.
type ContextOptions struct {
	Width int
	Open  string
	Close string
}

// DefaultContextOptions uses a 100 rune window and <strong> delimiters.
func DefaultContextOptions() ContextOptions {
	return ContextOptions{Width: DefaultContextWidth, Open: DefaultHighlightOpen, Close: DefaultHighlightClose}
}

// Context renders up to Width runes on each side of span, marks truncation
// with an ellipsis and wraps the matched text in the highlight delimiters.
// The result is for display only.
func Context(text string, span Span, opts ContextOptions) string {
	if opts.Width <= 0 {
		opts.Width = DefaultContextWidth
	}
	if span.Start < 0 || span.End() > len(text) {
		return ""
	}

	before := text[:span.Start]
	after := text[span.End():]

	leadStart := len(before)
	for n := 0; n < opts.Width && leadStart > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(before[:leadStart])
		leadStart -= size
	}
	trailEnd := 0
	for n := 0; n < opts.Width && trailEnd < len(after); n++ {
		_, size := utf8.DecodeRuneInString(after[trailEnd:])
		trailEnd += size
	}

	out := make([]byte, 0, len(before)-leadStart+span.Length+trailEnd+len(opts.Open)+len(opts.Close)+2*len(Ellipsis))
	if leadStart > 0 {
		out = append(out, Ellipsis...)
	}
	out = append(out, before[leadStart:]...)
	out = append(out, opts.Open...)
	out = append(out, text[span.Start:span.End()]...)
	out = append(out, opts.Close...)
	out = append(out, after[:trailEnd]...)
	if trailEnd < len(after) {
		out = append(out, Ellipsis...)
	}
	return string(out)
}
