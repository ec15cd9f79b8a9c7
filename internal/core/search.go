package core

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// SearchTimeout bounds a single match attempt of a user supplied pattern.
const SearchTimeout = 250 * time.Millisecond

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// CompileSearch compiles a user search pattern. It returns nil for an empty or
// invalid pattern.
func CompileSearch(pattern string, caseSensitive bool) *regexp2.Regexp {
	if pattern == "" {
		return nil
	}
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	if !caseSensitive {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil
	}
	re.MatchTimeout = SearchTimeout
	return re
}

// LiteralSearch compiles pattern as a plain substring.
func LiteralSearch(pattern string, caseSensitive bool) *regexp2.Regexp {
	return CompileSearch(regexp2.Escape(pattern), caseSensitive)
}

// EscapeHTML escapes the five characters significant in HTML text and attributes.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Highlight returns text HTML-escaped with every match of re wrapped in <mark>.
// A nil re only escapes.
func Highlight(text string, re *regexp2.Regexp) string {
	if re == nil || text == "" {
		return EscapeHTML(text)
	}
	runes := []rune(text)
	var b strings.Builder
	last := 0
	start := 0
	for start <= len(runes) {
		m, err := re.FindRunesMatchStartingAt(runes, start)
		if err != nil || m == nil {
			break
		}
		b.WriteString(EscapeHTML(string(runes[last:m.Index])))
		b.WriteString("<mark>")
		b.WriteString(EscapeHTML(string(runes[m.Index : m.Index+m.Length])))
		b.WriteString("</mark>")
		last = m.Index + m.Length
		start = last
		if m.Length == 0 {
			start++
		}
	}
	b.WriteString(EscapeHTML(string(runes[last:])))
	return b.String()
}
