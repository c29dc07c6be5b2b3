package interview

import (
	"context"
	"math"

	"github.com/vineelkrish/vivabot/internal/embed"
)

// DefaultMatchThreshold is the similarity above which a rubric point
// counts as covered by the answer.
const DefaultMatchThreshold = 0.45

// NeutralScore is awarded when a question carries no rubric points:
// there is nothing to grade against, so the answer is neither rewarded
// nor penalized.
const NeutralScore = 50

// Scorer grades free-text answers by semantic coverage of rubric points.
// It is a coverage metric, not a holistic one: matching 2 of 4 points
// scores 50 no matter how well the answer restates those 2.
type Scorer struct {
	embedder  embed.Embedder
	threshold float64
}

// NewScorer creates a scorer. threshold <= 0 selects the default.
func NewScorer(embedder embed.Embedder, threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &Scorer{embedder: embedder, threshold: threshold}
}

// Score returns a 0-100 coverage score for the answer against the rubric.
// An empty rubric always scores NeutralScore. The answer and all rubric
// points go out in a single batched embed call.
func (s *Scorer) Score(ctx context.Context, answer string, rubric []string) (int, error) {
	if len(rubric) == 0 {
		return NeutralScore, nil
	}

	texts := make([]string, 0, len(rubric)+1)
	texts = append(texts, answer)
	texts = append(texts, rubric...)

	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	answerVec := vecs[0]
	matched := 0
	for _, pointVec := range vecs[1:] {
		if embed.Cosine(answerVec, pointVec) > s.threshold {
			matched++
		}
	}

	return int(math.Round(float64(matched) / float64(len(rubric)) * 100)), nil
}
