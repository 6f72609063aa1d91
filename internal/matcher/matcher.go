package matcher

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Span is one match inside a text. Offsets are byte offsets into the scanned
// string. Spans are ephemeral and only valid for the text they came from.
type Span struct {
	Start  int
	Length int
	Text   string

	groups []string
	names  map[string]int
}

// End returns the byte offset just past the match.
func (s Span) End() int {
	return s.Start + s.Length
}

// Options tune pattern compilation.
type Options struct {
	IsRegex       bool
	CaseSensitive bool
	// MatchTimeout bounds a single regex evaluation. Zero disables the limit.
	MatchTimeout time.Duration
}

// Pattern is a compiled search term. A Pattern is safe for concurrent use.
type Pattern struct {
	source  string
	options Options
	re      *regexp2.Regexp
	folded  []rune
}

// dangerous matches recursion and subroutine calls: (?R), (?0), (?1), (?-1),
// (?+2), (?&name), (?P>name) and \g<name>.
var dangerous = regexp2.MustCompile(`\(\?(?:R|[+-]?\d+|&\w+|P>\w+)\)|\\g<[+-]?\w+>`, regexp2.None)

// Compile validates and prepares the pattern. Empty terms fail with
// ErrInvalidPattern in both modes.
func Compile(pattern string, opts Options) (*Pattern, error) {
	if pattern == "" {
		return nil, invalid(pattern, "empty pattern")
	}
	p := &Pattern{source: pattern, options: opts}

	if !opts.IsRegex {
		if !opts.CaseSensitive {
			p.folded = foldRunes(pattern)
		}
		return p, nil
	}

	if hit, _ := dangerous.MatchString(pattern); hit {
		return nil, &PatternError{Pattern: pattern, Reason: "recursive subpattern", Err: ErrDangerousPattern}
	}

	flags := regexp2.None
	if !opts.CaseSensitive {
		flags |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, flags)
	if err != nil {
		return nil, invalid(pattern, err.Error())
	}
	if opts.MatchTimeout > 0 {
		re.MatchTimeout = opts.MatchTimeout
	}
	p.re = re
	return p, nil
}

// Source returns the original pattern string.
func (p *Pattern) Source() string {
	return p.source
}

// IsRegex reports whether the pattern is evaluated as a regular expression.
func (p *Pattern) IsRegex() bool {
	return p.options.IsRegex
}

// CaseSensitive reports the comparison mode.
func (p *Pattern) CaseSensitive() bool {
	return p.options.CaseSensitive
}

// FindMatches returns every non-overlapping match in order. After a match at
// p with length L the scan resumes at p+L; empty regex matches advance by one
// rune.
func (p *Pattern) FindMatches(text string) ([]Span, error) {
	if text == "" && !p.options.IsRegex {
		return nil, nil
	}
	if p.re != nil {
		return p.findRegex(text)
	}
	if p.options.CaseSensitive {
		return findExact(text, p.source), nil
	}
	return findFolded(text, p.folded), nil
}

// CountMatches is the number of spans FindMatches reports.
func (p *Pattern) CountMatches(text string) (int, error) {
	spans, err := p.FindMatches(text)
	if err != nil {
		return 0, err
	}
	return len(spans), nil
}

// Replace substitutes every match and returns the new text with the number of
// substitutions. In regex mode the replacement may reference groups with $1,
// ${1}, ${name}; $$ is a literal dollar. Literal mode inserts the replacement
// verbatim.
func (p *Pattern) Replace(text, replacement string) (string, int, error) {
	spans, err := p.FindMatches(text)
	if err != nil {
		return text, 0, err
	}
	return Apply(text, spans, replacement, p.options.IsRegex), len(spans), nil
}

// Apply rewrites text using spans previously produced by FindMatches on the
// same text.
func Apply(text string, spans []Span, replacement string, expand bool) string {
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(spans)*len(replacement))
	cursor := 0
	for _, span := range spans {
		b.WriteString(text[cursor:span.Start])
		if expand {
			b.WriteString(span.expand(replacement))
		} else {
			b.WriteString(replacement)
		}
		cursor = span.End()
	}
	b.WriteString(text[cursor:])
	return b.String()
}

func (p *Pattern) findRegex(text string) ([]Span, error) {
	m, err := p.re.FindStringMatch(text)
	if err != nil {
		return nil, fmt.Errorf("matcher: evaluate %q: %w", p.source, err)
	}
	if m == nil {
		return nil, nil
	}

	offsets := runeOffsets(text)
	names := p.groupNames()

	var spans []Span
	for m != nil {
		start := offsets[m.Index]
		end := offsets[m.Index+m.Length]
		groups := m.Groups()
		captured := make([]string, len(groups))
		for i, g := range groups {
			if len(g.Captures) > 0 {
				captured[i] = g.String()
			}
		}
		spans = append(spans, Span{
			Start:  start,
			Length: end - start,
			Text:   text[start:end],
			groups: captured,
			names:  names,
		})
		m, err = p.re.FindNextMatch(m)
		if err != nil {
			return nil, fmt.Errorf("matcher: evaluate %q: %w", p.source, err)
		}
	}
	return spans, nil
}

func (p *Pattern) groupNames() map[string]int {
	names := p.re.GetGroupNames()
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]int, len(names))
	for _, name := range names {
		out[name] = p.re.GroupNumberFromName(name)
	}
	return out
}

// runeOffsets maps rune indexes to byte offsets, with a trailing entry for len(text).
func runeOffsets(text string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
