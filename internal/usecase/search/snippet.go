package search

import (
	"context"
	"strings"

	"github.com/lexhaven/lexsearch/internal/domain"
)

const (
	snippetContext     = 100 // bytes of context kept on each side of a match
	snippetFallbackLen = 200
)

// buildSnippet loads the case text and extracts a window around the first
// occurrence of the query, with highlight spans relative to the snippet.
// Any failure yields an empty snippet; snippets are best-effort.
func (s *Service) buildSnippet(
	ctx context.Context,
	ref domain.DocRef,
	query string,
	kind domain.HighlightKind,
) (string, []domain.Highlight) {
	text, err := s.cases.GetText(ctx, ref.CaseID)
	if err != nil || text == "" {
		return "", nil
	}
	return extractSnippet(text, query, kind)
}

// extractSnippet finds the query (case-insensitive) in the text and returns
// a surrounding window. Without a match it falls back to the opening of the
// text with no highlights.
func extractSnippet(text, query string, kind domain.HighlightKind) (string, []domain.Highlight) {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		return headOfText(text, snippetFallbackLen), nil
	}

	start := idx - snippetContext
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + snippetContext
	if end > len(text) {
		end = len(text)
	}

	// Align to rune boundaries so the window never splits a character.
	for start > 0 && !isRuneStart(text[start]) {
		start--
	}
	for end < len(text) && !isRuneStart(text[end]) {
		end++
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
		idx += 3
	}
	if end < len(text) {
		snippet += "..."
	}

	return snippet, []domain.Highlight{{
		Start: idx - start,
		End:   idx - start + len(query),
		Kind:  kind,
	}}
}

func headOfText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	end := limit
	for end > 0 && !isRuneStart(text[end]) {
		end--
	}
	return text[:end] + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
