// Package tagscan implements the tag-aware text primitives used to pull
// character sheets out of pseudo-XML system prompts. It is not an XML
// parser: tag names are matched case-insensitively, may contain spaces,
// attributes are skipped but never interpreted, and an unclosed tag
// simply extends to the end of the document.
package tagscan

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// token is one <...> span found in a document. inner is the raw text
// between the angle brackets and never contains '<' or '>'.
type token struct {
	start int
	end   int
	inner string
}

func (t token) closing() bool {
	return strings.HasPrefix(t.inner, "/")
}

// tokenize walks the document once and returns every <...> span in
// order. A '<' with no following '>' produces no token; a '<' nested
// before the next '>' restarts the scan at the inner '<'.
func tokenize(doc string) []token {
	var toks []token
	i := 0
	for {
		open := strings.IndexByte(doc[i:], '<')
		if open < 0 {
			return toks
		}
		start := i + open
		rest := doc[start+1:]
		close := strings.IndexByte(rest, '>')
		if close < 0 {
			return toks
		}
		if inner := strings.IndexByte(rest[:close], '<'); inner >= 0 {
			i = start + 1 + inner
			continue
		}
		toks = append(toks, token{start: start, end: start + close + 2, inner: rest[:close]})
		i = start + close + 2
	}
}

// Matcher recognizes the opening and closing markers of a single tag
// name. Matching is case-insensitive and tolerates whitespace after '<'
// and attributes before '>'. An empty name matches nothing.
type Matcher struct {
	name string
}

// NewMatcher builds a Matcher for name. Construction never fails.
func NewMatcher(name string) Matcher {
	return Matcher{name: name}
}

// MatchesOpen reports whether tok is an opening marker of the matcher's
// tag: '<', optional whitespace, the literal name, a word boundary,
// then anything up to '>'.
func (m Matcher) matchesOpen(tok token) bool {
	if m.name == "" || tok.closing() {
		return false
	}
	s := strings.TrimLeft(tok.inner, " \t\r\n")
	if len(s) < len(m.name) || !strings.EqualFold(s[:len(m.name)], m.name) {
		return false
	}
	return boundaryAfter(m.name, s[len(m.name):])
}

// MatchesClose reports whether tok is a closing marker: "</", optional
// whitespace, the literal name, optional whitespace, '>'.
func (m Matcher) matchesClose(tok token) bool {
	if m.name == "" || !tok.closing() {
		return false
	}
	s := strings.TrimSpace(tok.inner[1:])
	return strings.EqualFold(s, m.name)
}

// boundaryAfter implements the word-boundary check between the matched
// name and the remainder of the marker (attributes or nothing). The
// position after the name must sit on a word/non-word transition, as a
// regex \b would require; ">" counts as the following character when
// the remainder is empty.
func boundaryAfter(name, rest string) bool {
	prev, _ := utf8.DecodeLastRuneInString(name)
	next := '>'
	if rest != "" {
		next, _ = utf8.DecodeRuneInString(rest)
	}
	return isWordRune(prev) != isWordRune(next)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// genericName returns the tag name of a generic opening marker: the
// trimmed inner text, which must be non-empty and contain no '/'.
// Closing and self-closing markers, and markers whose attributes carry
// a slash, yield ok=false.
func genericName(tok token) (string, bool) {
	if strings.ContainsRune(tok.inner, '/') {
		return "", false
	}
	name := strings.TrimSpace(tok.inner)
	if name == "" {
		return "", false
	}
	return name, true
}

// Block describes a located tag block. ContentEnd equals BlockEnd when
// the tag never closes and the block runs to the end of the document.
type Block struct {
	Name       string
	OpenStart  int
	OpenEnd    int
	ContentEnd int
	BlockEnd   int
}

// FindBlockEnd walks forward from just after an already-matched opening
// marker, tracking nesting depth of the same tag name, and returns the
// offsets where the block's content and the whole block end. An
// unclosed block reports both offsets as len(doc); that is defined
// behavior, not an error.
func FindBlockEnd(doc, name string, openEnd int) (contentEnd, blockEnd int) {
	m := NewMatcher(name)
	toks := tokenize(doc)
	return scanBlockEnd(doc, m, toks, firstTokenAt(toks, openEnd))
}

// scanBlockEnd is the depth-counter core shared by the exported
// helpers. ti indexes the first token at or after the scan start.
func scanBlockEnd(doc string, m Matcher, toks []token, ti int) (contentEnd, blockEnd int) {
	depth := 1
	contentEnd = len(doc)
	blockEnd = len(doc)
	for ; ti < len(toks); ti++ {
		tok := toks[ti]
		switch {
		case m.matchesOpen(tok):
			depth++
		case m.matchesClose(tok):
			depth--
			if depth == 0 {
				return tok.start, tok.end
			}
		}
	}
	return contentEnd, blockEnd
}

func firstTokenAt(toks []token, pos int) int {
	for i, tok := range toks {
		if tok.start >= pos {
			return i
		}
	}
	return len(toks)
}

// Extract returns the inner text of the block whose opening marker ends
// at openEnd, plus the offset just past the whole block.
func Extract(doc, name string, openEnd int) (inner string, blockEnd int) {
	contentEnd, blockEnd := FindBlockEnd(doc, name, openEnd)
	return doc[openEnd:contentEnd], blockEnd
}

// RemoveBlocks deletes every <name>...</name> block from doc, nesting
// included. Each block is removed as one indivisible unit; same-name
// children inside a removed block are never re-matched on their own.
func RemoveBlocks(doc, name string) string {
	m := NewMatcher(name)
	toks := tokenize(doc)
	var b strings.Builder
	keepFrom := 0
	for ti := 0; ti < len(toks); ti++ {
		tok := toks[ti]
		if !m.matchesOpen(tok) {
			continue
		}
		_, blockEnd := scanBlockEnd(doc, m, toks, ti+1)
		b.WriteString(doc[keepFrom:tok.start])
		keepFrom = blockEnd
		for ti+1 < len(toks) && toks[ti+1].start < blockEnd {
			ti++
		}
	}
	if keepFrom == 0 {
		return doc
	}
	b.WriteString(doc[keepFrom:])
	return b.String()
}

// ExtractAll returns the inner text of every <name> block in doc.
//
// When resumeAfterBlock is true the search continues past each matched
// block, yielding disjoint occurrences only. When false it resumes just
// after the opening marker, which re-enters the block and also yields
// nested or immediately trailing same-name occurrences, matching the
// behavior of the tooling this replaces. Callers pick explicitly.
func ExtractAll(doc, name string, resumeAfterBlock bool) []string {
	m := NewMatcher(name)
	toks := tokenize(doc)
	var inners []string
	for ti := 0; ti < len(toks); ti++ {
		tok := toks[ti]
		if !m.matchesOpen(tok) {
			continue
		}
		contentEnd, blockEnd := scanBlockEnd(doc, m, toks, ti+1)
		inners = append(inners, doc[tok.end:contentEnd])
		if resumeAfterBlock {
			for ti+1 < len(toks) && toks[ti+1].start < blockEnd {
				ti++
			}
		}
	}
	return inners
}

// FindOpen returns the span of the first opening marker of name at or
// after pos, or ok=false if none remains.
func FindOpen(doc, name string, pos int) (start, end int, ok bool) {
	m := NewMatcher(name)
	for _, tok := range tokenize(doc) {
		if tok.start >= pos && m.matchesOpen(tok) {
			return tok.start, tok.end, true
		}
	}
	return 0, 0, false
}

// Locate scans generic opening markers in document order and returns
// the first whose lower-cased name is absent from skip. This is how the
// character tag is told apart from decoy wrapper tags.
func Locate(doc string, skip map[string]bool) (name string, start, end int, ok bool) {
	for _, tok := range tokenize(doc) {
		n, generic := genericName(tok)
		if !generic {
			continue
		}
		if skip[strings.ToLower(n)] {
			continue
		}
		return n, tok.start, tok.end, true
	}
	return "", 0, 0, false
}

// PresentNames returns the lower-cased first-word name of every generic
// opening marker in doc, deduplicated, in order of first appearance.
func PresentNames(doc string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, tok := range tokenize(doc) {
		n, generic := genericName(tok)
		if !generic {
			continue
		}
		first := strings.ToLower(strings.Fields(n)[0])
		if first == "" || seen[first] {
			continue
		}
		seen[first] = true
		names = append(names, first)
	}
	return names
}

// StripMarkers deletes the opening and closing markers of name wherever
// they occur in doc, leaving the enclosed text in place (the "unwrap"
// transformation).
func StripMarkers(doc, name string) string {
	m := NewMatcher(name)
	var b strings.Builder
	keepFrom := 0
	for _, tok := range tokenize(doc) {
		if !m.matchesOpen(tok) && !m.matchesClose(tok) {
			continue
		}
		b.WriteString(doc[keepFrom:tok.start])
		keepFrom = tok.end
	}
	if keepFrom == 0 {
		return doc
	}
	b.WriteString(doc[keepFrom:])
	return b.String()
}

// StripGenericMarkers removes any leftover bare markers of the shape
// <name...> or </name...>, covering orphaned or malformed markers left
// behind after block removal.
func StripGenericMarkers(doc string) string {
	var b strings.Builder
	keepFrom := 0
	for _, tok := range tokenize(doc) {
		inner := strings.TrimPrefix(tok.inner, "/")
		if inner == "" || strings.HasPrefix(inner, "/") {
			continue
		}
		b.WriteString(doc[keepFrom:tok.start])
		keepFrom = tok.end
	}
	if keepFrom == 0 {
		return doc
	}
	b.WriteString(doc[keepFrom:])
	return b.String()
}
