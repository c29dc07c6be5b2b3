// Package index builds per-subject concept embeddings and answers
// nearest-concept queries, routing multi-subject deployments through
// short subject keyword profiles.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vineelkrish/vivabot/internal/embed"
	"github.com/vineelkrish/vivabot/internal/kb"
	"github.com/vineelkrish/vivabot/internal/model"
)

// Confidence floors below which a best match is rejected as outside the
// syllabus. Single-subject mode can afford a stricter floor because no
// routing error dilutes the scores. Tunable, not derived.
const (
	DefaultFloorMulti  = 0.35
	DefaultFloorSingle = 0.40
)

// Match is the result of a retrieval query. A nil Concept with Subject
// set means the query routed to a subject but nothing cleared the
// confidence floor.
type Match struct {
	Concept *model.Concept
	Subject string
	Score   float64
}

// Retriever answers nearest-concept queries.
type Retriever interface {
	Query(ctx context.Context, text string) (Match, error)
}

// Index holds one embedding per concept, per subject.
type Index struct {
	mu          sync.RWMutex
	embedder    embed.Embedder
	subjects    map[string]*subjectIndex
	profiles    map[string][]float32
	floorMulti  float64
	floorSingle float64
}

type subjectIndex struct {
	concepts []model.Concept
	vectors  [][]float32
}

// Option configures an Index.
type Option func(*Index)

// WithFloors overrides the multi- and single-subject confidence floors.
func WithFloors(multi, single float64) Option {
	return func(ix *Index) {
		ix.floorMulti = multi
		ix.floorSingle = single
	}
}

// New creates an empty index backed by the given embedder.
func New(embedder embed.Embedder, opts ...Option) *Index {
	ix := &Index{
		embedder:    embedder,
		subjects:    make(map[string]*subjectIndex),
		profiles:    make(map[string][]float32),
		floorMulti:  DefaultFloorMulti,
		floorSingle: DefaultFloorSingle,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Build replaces the subject's index with embeddings for the given
// concepts. All concept descriptions go out in one batched embed call,
// and the swap is all-or-nothing: an embed failure leaves any previous
// index for the subject untouched.
func (ix *Index) Build(ctx context.Context, subject string, concepts []model.Concept) error {
	texts := make([]string, len(concepts))
	for i, c := range concepts {
		texts[i] = kb.SemanticText(c)
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("build index for %s: %w", subject, err)
	}

	ix.mu.Lock()
	ix.subjects[subject] = &subjectIndex{concepts: concepts, vectors: vectors}
	ix.mu.Unlock()

	slog.Info("concept index built", "subject", subject, "concepts", len(concepts))
	return nil
}

// SetProfile embeds a hand-authored keyword profile used to route
// queries to this subject.
func (ix *Index) SetProfile(ctx context.Context, subject, keywords string) error {
	vecs, err := ix.embedder.Embed(ctx, []string{keywords})
	if err != nil {
		return fmt.Errorf("embed subject profile for %s: %w", subject, err)
	}
	ix.mu.Lock()
	ix.profiles[subject] = vecs[0]
	ix.mu.Unlock()
	return nil
}

// Subjects returns the indexed subject names in sorted order.
func (ix *Index) Subjects() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	names := make([]string, 0, len(ix.subjects))
	for name := range ix.subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConceptCount returns the number of indexed concepts for a subject.
func (ix *Index) ConceptCount(subject string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if si := ix.subjects[subject]; si != nil {
		return len(si.concepts)
	}
	return 0
}

// Query embeds the text once, routes it to a subject, and returns the
// best-matching concept there. Scores strictly below the confidence
// floor reject the match; a score exactly at the floor is accepted.
func (ix *Index) Query(ctx context.Context, text string) (Match, error) {
	vecs, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return Match{}, fmt.Errorf("embed query: %w", err)
	}
	qvec := vecs[0]

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	subject, floor := ix.route(qvec)
	si := ix.subjects[subject]
	if si == nil || len(si.concepts) == 0 {
		return Match{Subject: subject}, nil
	}

	bestIdx := -1
	bestScore := -1.0
	for i, vec := range si.vectors {
		if score := embed.Cosine(qvec, vec); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestScore < floor {
		return Match{Subject: subject, Score: bestScore}, nil
	}

	concept := si.concepts[bestIdx]
	return Match{Concept: &concept, Subject: subject, Score: bestScore}, nil
}

// route picks the target subject for a query vector. With a single
// subject there is nothing to decide. With several, the highest profile
// similarity wins, best-effort: routing never rejects, weak queries are
// caught downstream by the confidence floor.
func (ix *Index) route(qvec []float32) (string, float64) {
	if len(ix.subjects) <= 1 {
		for subject := range ix.subjects {
			return subject, ix.floorSingle
		}
		return "", ix.floorSingle
	}

	best := ""
	bestScore := -2.0
	for subject := range ix.subjects {
		profile, ok := ix.profiles[subject]
		if !ok {
			continue
		}
		if score := embed.Cosine(qvec, profile); score > bestScore {
			bestScore = score
			best = subject
		}
	}

	if best == "" {
		// No profiles configured; fall back to the first subject in
		// sorted order so behavior stays deterministic.
		for _, subject := range ix.subjectNamesLocked() {
			return subject, ix.floorMulti
		}
	}
	return best, ix.floorMulti
}

func (ix *Index) subjectNamesLocked() []string {
	names := make([]string, 0, len(ix.subjects))
	for name := range ix.subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
