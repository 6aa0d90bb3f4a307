// Package trie implements the lexical side of the search engine: three
// prefix tries over case names, citations and content tokens. Nodes live
// in a flat arena addressed by integer index instead of nested pointers,
// which keeps traversal allocation-free and snapshots cheap.
package trie

import (
	"strings"
	"sync"

	"github.com/lexhaven/lexsearch/internal/domain"
)

// completionLimit caps the number of prefix completions returned per search.
const completionLimit = 10

// Result holds the outcome of a lexical lookup.
type Result struct {
	ExactMatches      []domain.DocRef
	PrefixCompletions []string
	TotalMatches      int
}

type node struct {
	children  map[string]int32
	terminal  bool
	refs      []domain.DocRef
	frequency int
}

// arena is a slab of trie nodes. Index 0 is always the root.
type arena struct {
	nodes []node
}

func newArena() *arena {
	a := &arena{}
	a.alloc()
	return a
}

func (a *arena) alloc() int32 {
	a.nodes = append(a.nodes, node{children: make(map[string]int32)})
	return int32(len(a.nodes) - 1)
}

func (a *arena) insert(tokens []string, ref domain.DocRef) {
	if len(tokens) == 0 {
		return
	}

	cur := int32(0)
	for _, tok := range tokens {
		next, ok := a.nodes[cur].children[tok]
		if !ok {
			next = a.alloc()
			a.nodes[cur].children[tok] = next
		}
		cur = next
	}

	n := &a.nodes[cur]
	n.terminal = true
	n.refs = append(n.refs, ref)
	n.frequency++
}

func (a *arena) search(tokens []string, limit int) Result {
	cur := int32(0)
	for _, tok := range tokens {
		next, ok := a.nodes[cur].children[tok]
		if !ok {
			return Result{}
		}
		cur = next
	}

	var exact []domain.DocRef
	if a.nodes[cur].terminal {
		exact = make([]domain.DocRef, len(a.nodes[cur].refs))
		copy(exact, a.nodes[cur].refs)
	}

	completions := a.collectCompletions(cur, tokens, limit)

	return Result{
		ExactMatches:      exact,
		PrefixCompletions: completions,
		TotalMatches:      len(exact) + len(completions),
	}
}

// collectCompletions walks terminal descendants of start depth-first.
// Child visit order follows map iteration, so completion order across
// ties is unspecified.
func (a *arena) collectCompletions(start int32, prefix []string, limit int) []string {
	type frame struct {
		id   int32
		path []string
	}

	completions := make([]string, 0, limit)
	stack := []frame{{id: start, path: prefix}}

	for len(stack) > 0 {
		if len(completions) >= limit {
			break
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &a.nodes[top.id]
		if n.terminal && len(top.path) > len(prefix) {
			completions = append(completions, strings.Join(top.path, " "))
		}

		for tok, child := range n.children {
			path := make([]string, len(top.path), len(top.path)+1)
			copy(path, top.path)
			stack = append(stack, frame{id: child, path: append(path, tok)})
		}
	}

	return completions
}

// Index is the top-level lexical index: a case-name trie, a citation trie
// and a content-token trie. Reads proceed concurrently; insertion takes
// the exclusive lock.
type Index struct {
	mu       sync.RWMutex
	limit    int
	caseName *arena
	citation *arena
	content  *arena
}

// NewIndex creates an empty lexical index with the default completion limit.
func NewIndex() *Index {
	return NewIndexWithLimit(completionLimit)
}

// NewIndexWithLimit caps prefix completions per lookup at limit.
// A non-positive limit falls back to the default.
func NewIndexWithLimit(limit int) *Index {
	if limit <= 0 {
		limit = completionLimit
	}
	return &Index{
		limit:    limit,
		caseName: newArena(),
		citation: newArena(),
		content:  newArena(),
	}
}

// InsertCaseName indexes a case name. Tokens are lowercased, so lookup is
// case-insensitive. The DocRef points at paragraph 0 of the case.
func (i *Index) InsertCaseName(caseName string, caseID domain.CaseID) {
	tokens := lowerFields(caseName)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.caseName.insert(tokens, domain.NewDocRef(caseID, 0))
}

// InsertContent indexes a run of content tokens at the given location.
// Tokens are lowercased before insertion.
func (i *Index) InsertContent(tokens []string, ref domain.DocRef) {
	normalized := make([]string, len(tokens))
	for n, tok := range tokens {
		normalized[n] = strings.ToLower(tok)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.content.insert(normalized, ref)
}

// InsertCitation indexes a citation string. Casing is preserved: legal
// citations are case-sensitive ("410 U.S. 113" vs "410 u.s. 113").
func (i *Index) InsertCitation(citation string, ref domain.DocRef) {
	tokens := strings.Fields(citation)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.citation.insert(tokens, ref)
}

// Search runs the query against the case-name trie first, then citations,
// returning the first result with exact matches; otherwise it falls back
// to the content trie. A path miss yields an empty Result, never an error.
func (i *Index) Search(query string) Result {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if res := i.caseName.search(lowerFields(query), i.limit); len(res.ExactMatches) > 0 {
		return res
	}
	if res := i.citation.search(strings.Fields(query), i.limit); len(res.ExactMatches) > 0 {
		return res
	}
	return i.content.search(lowerFields(query), i.limit)
}

// NodeCount reports the total node count across all three tries.
func (i *Index) NodeCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.caseName.nodes) + len(i.citation.nodes) + len(i.content.nodes)
}

func lowerFields(s string) []string {
	fields := strings.Fields(s)
	for n, f := range fields {
		fields[n] = strings.ToLower(f)
	}
	return fields
}
