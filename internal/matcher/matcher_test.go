package matcher_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-cms-replace/internal/matcher"
)

func mustCompile(t *testing.T, pattern string, opts matcher.Options) *matcher.Pattern {
	t.Helper()
	p, err := matcher.Compile(pattern, opts)
	if err != nil {
		t.Fatalf("compile %q: %v", pattern, err)
	}
	return p
}

func TestCaseSensitivityControlsLiteralMatches(t *testing.T) {
	text := "Hello world, hello, HELLO"

	insensitive := mustCompile(t, "hello", matcher.Options{})
	if n, _ := insensitive.CountMatches(text); n != 3 {
		t.Fatalf("expected 3 case-insensitive matches, got %d", n)
	}

	sensitive := mustCompile(t, "hello", matcher.Options{CaseSensitive: true})
	if n, _ := sensitive.CountMatches(text); n != 1 {
		t.Fatalf("expected 1 case-sensitive match, got %d", n)
	}

	regex := mustCompile(t, "hel+o", matcher.Options{IsRegex: true})
	if n, _ := regex.CountMatches(text); n != 3 {
		t.Fatalf("expected ignore-case regex to find 3, got %d", n)
	}
}

func TestCountEqualsFindLength(t *testing.T) {
	cases := []struct {
		text    string
		pattern string
		opts    matcher.Options
		want    int
	}{
		{text: "aaaa", pattern: "aa", opts: matcher.Options{CaseSensitive: true}, want: 2},
		{text: "aaa", pattern: "aa", opts: matcher.Options{}, want: 1},
		{text: "abcabc", pattern: "c", opts: matcher.Options{}, want: 2},
		{text: "", pattern: "x", opts: matcher.Options{}, want: 0},
		{text: "ab", pattern: "x*", opts: matcher.Options{IsRegex: true}, want: 3},
		{text: "a1b22c333", pattern: `\d+`, opts: matcher.Options{IsRegex: true}, want: 3},
	}
	for _, tc := range cases {
		p := mustCompile(t, tc.pattern, tc.opts)
		spans, err := p.FindMatches(tc.text)
		if err != nil {
			t.Fatalf("find %q: %v", tc.pattern, err)
		}
		count, err := p.CountMatches(tc.text)
		if err != nil {
			t.Fatalf("count %q: %v", tc.pattern, err)
		}
		if count != len(spans) || count != tc.want {
			t.Fatalf("%q in %q: count=%d spans=%d want=%d", tc.pattern, tc.text, count, len(spans), tc.want)
		}
	}
}

func TestFoldedSpansPointIntoOriginalText(t *testing.T) {
	text := "ÉCOLE et école"
	p := mustCompile(t, "école", matcher.Options{})

	spans, err := p.FindMatches(text)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if got := text[spans[0].Start:spans[0].End()]; got != "ÉCOLE" {
		t.Fatalf("unexpected first span %q", got)
	}
	if spans[1].Text != "école" {
		t.Fatalf("unexpected second span %q", spans[1].Text)
	}
}

func TestRegexReplaceRedactsPhoneNumber(t *testing.T) {
	p := mustCompile(t, `\d{3}-\d{3}-\d{4}`, matcher.Options{IsRegex: true})
	out, count, err := p.Replace("Call 123-456-7890 now", "REDACTED")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if out != "Call REDACTED now" || count != 1 {
		t.Fatalf("unexpected result %q (%d)", out, count)
	}
}

func TestRegexReplaceExpandsGroups(t *testing.T) {
	p := mustCompile(t, `(\w+)@(?<host>\w+)`, matcher.Options{IsRegex: true})
	out, count, err := p.Replace("mail ana@example or bo@test", "${host}:$1 <${2}> $$ $9")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	want := "mail example:ana <example> $ $9 or test:bo <test> $ $9"
	if out != want || count != 2 {
		t.Fatalf("unexpected expansion\nwant %q\ngot  %q (%d)", want, out, count)
	}
}

func TestLiteralReplaceIsVerbatimAndNonRecursive(t *testing.T) {
	p := mustCompile(t, "cat", matcher.Options{})
	out, count, err := p.Replace("Cat catalog $1", "cats $1")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if out != "cats $1 cats $1alog $1" || count != 2 {
		t.Fatalf("unexpected literal replace %q (%d)", out, count)
	}
}

func TestCompileRejectsInvalidPatterns(t *testing.T) {
	cases := []struct {
		pattern string
		opts    matcher.Options
		want    error
	}{
		{pattern: "", opts: matcher.Options{}, want: matcher.ErrInvalidPattern},
		{pattern: "", opts: matcher.Options{IsRegex: true}, want: matcher.ErrInvalidPattern},
		{pattern: "(unclosed", opts: matcher.Options{IsRegex: true}, want: matcher.ErrInvalidPattern},
		{pattern: `a(?R)?b`, opts: matcher.Options{IsRegex: true}, want: matcher.ErrDangerousPattern},
		{pattern: `(x)(?1)`, opts: matcher.Options{IsRegex: true}, want: matcher.ErrDangerousPattern},
		{pattern: `(?<n>a)(?&n)`, opts: matcher.Options{IsRegex: true}, want: matcher.ErrDangerousPattern},
		{pattern: `(?P<n>a)(?P>n)`, opts: matcher.Options{IsRegex: true}, want: matcher.ErrDangerousPattern},
	}
	for _, tc := range cases {
		_, err := matcher.Compile(tc.pattern, tc.opts)
		if !errors.Is(err, tc.want) {
			t.Fatalf("pattern %q: expected %v, got %v", tc.pattern, tc.want, err)
		}
		var patternErr *matcher.PatternError
		if !errors.As(err, &patternErr) || patternErr.Pattern != tc.pattern {
			t.Fatalf("pattern %q: expected PatternError, got %T", tc.pattern, err)
		}
	}
}

func TestLiteralModeAcceptsRegexMetacharacters(t *testing.T) {
	p := mustCompile(t, "(?R)", matcher.Options{})
	if n, _ := p.CountMatches("x (?R) y"); n != 1 {
		t.Fatalf("expected literal match of metacharacters, got %d", n)
	}
}

func TestContextTruncatesAndHighlights(t *testing.T) {
	text := strings.Repeat("a", 10) + "needle" + strings.Repeat("b", 10)
	p := mustCompile(t, "needle", matcher.Options{})
	spans, _ := p.FindMatches(text)

	got := matcher.Context(text, spans[0], matcher.ContextOptions{Width: 3, Open: "[", Close: "]"})
	if got != "…aaa[needle]bbb…" {
		t.Fatalf("unexpected context %q", got)
	}

	full := matcher.Context(text, spans[0], matcher.DefaultContextOptions())
	if full != strings.Repeat("a", 10)+"<strong>needle</strong>"+strings.Repeat("b", 10) {
		t.Fatalf("unexpected untruncated context %q", full)
	}
}

func TestContextCountsRunesNotBytes(t *testing.T) {
	text := "ééé X ééé"
	p := mustCompile(t, "X", matcher.Options{CaseSensitive: true})
	spans, _ := p.FindMatches(text)

	got := matcher.Context(text, spans[0], matcher.ContextOptions{Width: 2, Open: "<", Close: ">"})
	if got != "…é <X> é…" {
		t.Fatalf("unexpected context %q", got)
	}
}
