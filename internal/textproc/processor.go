// Package textproc prepares legal text for indexing: normalization,
// tokenization, sentence splitting and citation extraction.
package textproc

import (
	"regexp"
	"sort"
	"strings"
)

// Token is a single word with its normalized form and byte position.
type Token struct {
	Text       string
	Normalized string
	Position   int
	IsStopword bool
}

// Citation is a legal citation found in the text.
type Citation struct {
	FullText   string
	Normalized string
	Position   int
}

// ProcessedText is the output of one Process call.
type ProcessedText struct {
	Normalized string
	Tokens     []Token
	Sentences  []string
	Citations  []Citation
}

var (
	wordRE       = regexp.MustCompile(`\b\w+\b`)
	sentenceRE   = regexp.MustCompile(`[.!?]+\s+`)
	whitespaceRE = regexp.MustCompile(`\s+`)

	// Reporter citation formats seen in US case law.
	citationREs = []*regexp.Regexp{
		regexp.MustCompile(`\d+\s+U\.S\.\s+\d+(?:\s*\(\d{4}\))?`),
		regexp.MustCompile(`\d+\s+S\.\s*Ct\.\s+\d+(?:\s*\(\d{4}\))?`),
		regexp.MustCompile(`\d+\s+F\.\s*(?:2d|3d)\s+\d+\s*\([^)]*\d{4}\)`),
		regexp.MustCompile(`\d+\s+[A-Z][a-z]*\.?\s*(?:2d|3d)?\s+\d+\s*\([^)]*\d{4}\)`),
	}
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"a an and are as at be by for from has he in is it its of on that the " +
			"to was will with this but they have had what said each which she do " +
			"how their if up out many then them these so some her would make like " +
			"into him than first been who now did may") {
		stopwords[w] = struct{}{}
	}
}

// Processor tokenizes and annotates legal text. Safe for concurrent use.
type Processor struct{}

// NewProcessor creates a Processor.
func NewProcessor() *Processor { return &Processor{} }

// Process normalizes the text and extracts tokens, sentences and citations.
func (p *Processor) Process(text string) ProcessedText {
	normalized := Normalize(text)
	return ProcessedText{
		Normalized: normalized,
		Tokens:     p.Tokenize(normalized),
		Sentences:  p.Sentences(normalized),
		Citations:  p.Citations(normalized),
	}
}

// Tokenize splits text into word tokens with byte positions.
func (p *Processor) Tokenize(text string) []Token {
	idxs := wordRE.FindAllStringIndex(text, -1)
	tokens := make([]Token, 0, len(idxs))
	for _, loc := range idxs {
		word := text[loc[0]:loc[1]]
		norm := strings.ToLower(word)
		_, stop := stopwords[norm]
		tokens = append(tokens, Token{
			Text:       word,
			Normalized: norm,
			Position:   loc[0],
			IsStopword: stop,
		})
	}
	return tokens
}

// Sentences splits text on terminal punctuation followed by whitespace.
func (p *Processor) Sentences(text string) []string {
	parts := sentenceRE.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, s := range parts {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Citations extracts legal citations, deduplicated by normalized form and
// ordered by position in the text.
func (p *Processor) Citations(text string) []Citation {
	var citations []Citation
	for _, re := range citationREs {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			full := text[loc[0]:loc[1]]
			citations = append(citations, Citation{
				FullText:   full,
				Normalized: normalizeCitation(full),
				Position:   loc[0],
			})
		}
	}

	sort.SliceStable(citations, func(a, b int) bool {
		return citations[a].Position < citations[b].Position
	})

	seen := make(map[string]struct{}, len(citations))
	out := citations[:0]
	for _, c := range citations {
		if _, dup := seen[c.Normalized]; dup {
			continue
		}
		seen[c.Normalized] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Normalize collapses whitespace, straightens curly quotes and strips
// control characters.
func Normalize(text string) string {
	s := whitespaceRE.ReplaceAllString(text, " ")
	s = strings.NewReplacer(
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	).Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// TokenTexts returns the normalized token strings in order. Stopwords are
// kept so indexed token runs line up with whitespace-tokenized queries.
func TokenTexts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Normalized
	}
	return out
}

func normalizeCitation(c string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(c), " ")
}
