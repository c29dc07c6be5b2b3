package index

import (
	"context"
	"regexp"
	"strings"

	"github.com/vineelkrish/vivabot/internal/model"
)

// KeywordSearcher is a degraded, non-semantic substitute for the
// embedding index, used when no embedding service is available. It
// counts literal keyword hits per concept block. It is strictly inferior
// to the semantic path and must be selected explicitly, never silently.
type KeywordSearcher struct {
	subjects map[string][]model.Concept
}

var wordRe = regexp.MustCompile(`[a-zA-Z]+`)

// Words too common to carry retrieval signal.
var stopwords = map[string]bool{
	"what": true, "is": true, "an": true, "the": true, "a": true,
	"explain": true, "define": true, "how": true, "why": true,
	"does": true, "do": true, "of": true, "to": true, "in": true,
	"on": true, "and": true, "for": true,
}

// Minimum keyword hits required to accept a concept block.
const minKeywordHits = 1

// NewKeywordSearcher creates an empty keyword searcher.
func NewKeywordSearcher() *KeywordSearcher {
	return &KeywordSearcher{subjects: make(map[string][]model.Concept)}
}

// Build replaces the subject's concept set.
func (k *KeywordSearcher) Build(subject string, concepts []model.Concept) {
	k.subjects[subject] = concepts
}

// Query tokenizes the text and returns the concept whose block contains
// the most query keywords, searching every subject. Queries with no
// extractable keywords, or with fewer than the minimum hits, return an
// empty match rather than an error.
func (k *KeywordSearcher) Query(_ context.Context, text string) (Match, error) {
	keywords := extractKeywords(text)
	if len(keywords) == 0 {
		return Match{}, nil
	}

	var best Match
	bestHits := 0
	for subject, concepts := range k.subjects {
		for i := range concepts {
			block := strings.ToLower(concepts[i].RawBody)
			hits := 0
			for _, kw := range keywords {
				if strings.Contains(block, kw) {
					hits++
				}
			}
			if hits > bestHits {
				bestHits = hits
				best = Match{
					Concept: &concepts[i],
					Subject: subject,
					Score:   float64(hits),
				}
			}
		}
	}

	if bestHits < minKeywordHits {
		return Match{}, nil
	}
	return best, nil
}

func extractKeywords(query string) []string {
	var keywords []string
	for _, w := range wordRe.FindAllString(strings.ToLower(query), -1) {
		if !stopwords[w] {
			keywords = append(keywords, w)
		}
	}
	return keywords
}
