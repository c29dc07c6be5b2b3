// Package interview drives a timed, difficulty-adaptive mock oral exam:
// it asks questions drawn from a concept bank, scores answers against
// rubric points, and adjusts the next question's tier from the score.
package interview

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/vineelkrish/vivabot/internal/model"
)

// DefaultDuration is the session time budget.
const DefaultDuration = 300 * time.Second

// ErrNoQuestions is returned by Start when the bank holds no questions.
var ErrNoQuestions = errors.New("question bank has no questions")

// FeedbackKind classifies an answer for the presentation layer, which
// localizes the actual feedback line.
type FeedbackKind string

const (
	FeedbackStrong   FeedbackKind = "strong"
	FeedbackOkay     FeedbackKind = "okay"
	FeedbackWeak     FeedbackKind = "weak"
	FeedbackInactive FeedbackKind = "inactive"
)

// Result is the outcome of submitting one answer.
type Result struct {
	Score    int
	Feedback FeedbackKind
	// Next is the next question prompt, empty when the session ended.
	Next string
	// Final is set once, when the session transitioned to finished.
	Final *model.Summary
}

// Session is one in-progress interview run. It performs no locking;
// callers exposing it over a concurrent server must serialize mutation.
type Session struct {
	bank     model.QuestionBank
	concepts []string
	scorer   *Scorer
	rng      *rand.Rand
	now      func() time.Time
	duration time.Duration

	active          bool
	startTime       time.Time
	currentConcept  string
	currentTier     model.Difficulty
	currentQuestion *model.Question
	scores          map[string][]int
	attempted       int
}

// Option configures a Session.
type Option func(*Session)

// WithRand injects a seedable random source for deterministic question
// selection in tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithSeed derives a deterministic random source from a seed.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)))
}

// WithClock injects the wall clock used for the time budget.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithDuration overrides the session time budget.
func WithDuration(d time.Duration) Option {
	return func(s *Session) { s.duration = d }
}

// NewSession creates an idle session over the given question bank.
func NewSession(bank model.QuestionBank, scorer *Scorer, opts ...Option) *Session {
	concepts := bank.Concepts()
	sort.Strings(concepts)

	s := &Session{
		bank:     bank,
		concepts: concepts,
		scorer:   scorer,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:      time.Now,
		duration: DefaultDuration,
		scores:   make(map[string][]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active reports whether the session is running.
func (s *Session) Active() bool {
	return s.active
}

// Attempted returns the number of answers recorded so far.
func (s *Session) Attempted() int {
	return s.attempted
}

// Tier returns the session's current difficulty tier.
func (s *Session) Tier() model.Difficulty {
	return s.currentTier
}

// Start activates the session, resets all state from any previous run,
// and returns the first question prompt. Prior score history is
// discarded; read Final before restarting if it is still needed.
func (s *Session) Start(ctx context.Context) (string, error) {
	if s.bank.Count() == 0 {
		return "", ErrNoQuestions
	}

	s.active = true
	s.startTime = s.now()
	s.currentTier = model.DifficultyEasy
	s.currentConcept = ""
	s.currentQuestion = nil
	s.scores = make(map[string][]int)
	s.attempted = 0

	return s.pickQuestion(), nil
}

// Submit scores the answer to the current question, applies the adaptive
// tier rule, and selects the next question. When the time budget has
// expired the Result carries the final summary and an empty Next.
// Submitting to an inactive session yields a zero-score inactive Result,
// never an error.
func (s *Session) Submit(ctx context.Context, answer string) (Result, error) {
	if !s.active || s.currentQuestion == nil {
		return Result{Score: 0, Feedback: FeedbackInactive}, nil
	}

	score, err := s.scorer.Score(ctx, answer, s.currentQuestion.RubricPoints)
	if err != nil {
		return Result{}, fmt.Errorf("score answer: %w", err)
	}

	s.scores[s.currentConcept] = append(s.scores[s.currentConcept], score)
	s.attempted++

	// Memoryless tier rule: only the just-scored answer counts, so one
	// strong answer immediately unlocks hard questions.
	var feedback FeedbackKind
	switch {
	case score > 75:
		s.currentTier = model.DifficultyHard
		feedback = FeedbackStrong
	case score > 40:
		s.currentTier = model.DifficultyMedium
		feedback = FeedbackOkay
	default:
		s.currentTier = model.DifficultyEasy
		feedback = FeedbackWeak
	}

	result := Result{Score: score, Feedback: feedback, Next: s.pickQuestion()}
	if result.Next == "" {
		final := s.Final()
		result.Final = &final
	}
	return result, nil
}

// pickQuestion selects the next question, or returns empty and
// deactivates the session when the time budget has expired. Expiry is
// only noticed here; a session that never selects again simply stays
// nominally active.
func (s *Session) pickQuestion() string {
	if s.now().Sub(s.startTime) > s.duration {
		s.active = false
		s.currentQuestion = nil
		return ""
	}

	// Concepts are chosen uniformly, unweighted by prior performance.
	// A concept with nothing at the session tier falls back to easy for
	// this pick only; the session tier itself is untouched. Concepts
	// empty even at easy are skipped by retrying.
	for range len(s.concepts) * 4 {
		concept := s.concepts[s.rng.IntN(len(s.concepts))]
		tier := s.currentTier
		pool := s.bank[concept][tier]
		if len(pool) == 0 {
			tier = model.DifficultyEasy
			pool = s.bank[concept][tier]
		}
		if len(pool) == 0 {
			continue
		}

		q := pool[s.rng.IntN(len(pool))]
		s.currentConcept = concept
		s.currentQuestion = &q
		return fmt.Sprintf("[%s - %s]\n%s", concept, strings.ToUpper(string(tier)), q.Text)
	}

	s.active = false
	s.currentQuestion = nil
	return ""
}

// Final aggregates the session's recorded scores.
func (s *Session) Final() model.Summary {
	return Aggregate(s.scores)
}

// Aggregate summarizes per-concept scores: concepts averaging >= 70 are
// strong, < 40 weak, and the overall score is the rounded mean of the
// per-concept averages. Every concept weighs equally no matter how many
// questions it received. No recorded scores yield a zero summary, not a
// division fault.
func Aggregate(scores map[string][]int) model.Summary {
	summary := model.Summary{Strong: []string{}, Weak: []string{}}
	if len(scores) == 0 {
		return summary
	}

	var total float64
	for concept, recorded := range scores {
		sum := 0
		for _, sc := range recorded {
			sum += sc
		}
		avg := float64(sum) / float64(len(recorded))
		total += avg

		if avg >= 70 {
			summary.Strong = append(summary.Strong, concept)
		}
		if avg < 40 {
			summary.Weak = append(summary.Weak, concept)
		}
	}

	sort.Strings(summary.Strong)
	sort.Strings(summary.Weak)
	summary.Score = int(math.Round(total / float64(len(scores))))
	return summary
}
