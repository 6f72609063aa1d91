package matcher

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

func findExact(text, term string) []Span {
	var spans []Span
	for offset := 0; offset <= len(text)-len(term); {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			break
		}
		start := offset + idx
		spans = append(spans, Span{Start: start, Length: len(term), Text: term})
		offset = start + len(term)
	}
	return spans
}

// findFolded compares rune by rune under simple Unicode case folding so that
// byte offsets always point into the original text.
func findFolded(text string, term []rune) []Span {
	if len(term) == 0 {
		return nil
	}
	var spans []Span
	offset := 0
	for offset < len(text) {
		end, ok := matchFoldedAt(text, offset, term)
		if ok {
			spans = append(spans, Span{Start: offset, Length: end - offset, Text: text[offset:end]})
			offset = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return spans
}

func matchFoldedAt(text string, offset int, term []rune) (int, bool) {
	pos := offset
	for _, want := range term {
		if pos >= len(text) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(text[pos:])
		if canonical(r) != want {
			return 0, false
		}
		pos += size
	}
	return pos, true
}

func foldRunes(term string) []rune {
	out := make([]rune, 0, len(term))
	for _, r := range term {
		out = append(out, canonical(r))
	}
	return out
}

// canonical returns the smallest rune in r's simple case folding orbit.
func canonical(r rune) rune {
	lowest := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lowest {
			lowest = f
		}
	}
	return lowest
}

// expand resolves group references in template against the span captures.
// Unknown references are kept verbatim.
func (s Span) expand(template string) string {
	if !strings.Contains(template, "$") {
		return template
	}
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			b.WriteByte(c)
			continue
		}
		next := template[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '{':
			closing := strings.IndexByte(template[i+2:], '}')
			if closing < 0 {
				b.WriteByte(c)
				continue
			}
			ref := template[i+2 : i+2+closing]
			if value, ok := s.group(ref); ok {
				b.WriteString(value)
			} else {
				b.WriteString(template[i : i+3+closing])
			}
			i += 2 + closing
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(template) && template[j] >= '0' && template[j] <= '9' {
				j++
			}
			if value, ok := s.group(template[i+1 : j]); ok {
				b.WriteString(value)
			} else {
				b.WriteString(template[i:j])
			}
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (s Span) group(ref string) (string, bool) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n == 0 {
			return s.Text, true
		}
		if n > 0 && n < len(s.groups) {
			return s.groups[n], true
		}
		return "", false
	}
	if idx, ok := s.names[ref]; ok && idx >= 0 && idx < len(s.groups) {
		return s.groups[idx], true
	}
	return "", false
}
