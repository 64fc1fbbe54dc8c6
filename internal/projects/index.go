// Package projects resolves remote projects and keeps a TTL-bounded cache
// of project lookups and per-connection search indexes.
package projects

import (
	"sort"
	"strings"

	"sonarbind/internal/serverapi"
)

// SearchIndex is a fuzzy-searchable index over the key and name of every
// project in one connection's catalog. Search is a pure function of the
// indexed contents and the query.
type SearchIndex struct {
	docs []indexedProject
}

type indexedProject struct {
	project serverapi.ServerProject
	tokens  map[string]bool
}

// ScoredProject is one search result with its relevance score.
type ScoredProject struct {
	Project serverapi.ServerProject
	Score   float64
}

// NewSearchIndex creates an empty index.
func NewSearchIndex() *SearchIndex {
	return &SearchIndex{}
}

// Index adds a project to the index, tokenizing its key and name.
func (i *SearchIndex) Index(p serverapi.ServerProject) {
	tokens := make(map[string]bool)
	for _, t := range tokenize(p.Key) {
		tokens[t] = true
	}
	for _, t := range tokenize(p.Name) {
		tokens[t] = true
	}
	i.docs = append(i.docs, indexedProject{project: p, tokens: tokens})
}

// Size returns the number of indexed projects.
func (i *SearchIndex) Size() int {
	return len(i.docs)
}

// IsEmpty reports whether the index holds no projects.
func (i *SearchIndex) IsEmpty() bool {
	return len(i.docs) == 0
}

// Search scores every indexed project against the query and returns the
// matches ordered by descending score. Ties are ordered by project key so
// identical inputs always produce identical output.
func (i *SearchIndex) Search(query string) []ScoredProject {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var results []ScoredProject
	for _, doc := range i.docs {
		score := scoreDoc(queryTokens, doc.tokens)
		if score > 0 {
			results = append(results, ScoredProject{Project: doc.project, Score: score})
		}
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Project.Key < results[b].Project.Key
	})
	return results
}

// scoreDoc rates a document against the query tokens: an exact token match
// counts 1.0, a prefix match 0.5, normalized by the query length so scores
// stay in [0, 1].
func scoreDoc(queryTokens []string, docTokens map[string]bool) float64 {
	var matched float64
	for _, q := range queryTokens {
		if docTokens[q] {
			matched += 1.0
			continue
		}
		for t := range docTokens {
			if strings.HasPrefix(t, q) || strings.HasPrefix(q, t) {
				matched += 0.5
				break
			}
		}
	}
	return matched / float64(len(queryTokens))
}

// tokenize lowercases and splits on any non-alphanumeric rune.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
