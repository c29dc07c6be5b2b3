package model

import "strings"

// Difficulty represents a question difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists all tiers in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty converts a free-form string into a Difficulty.
// The second return value is false for unrecognized names.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy, true
	case DifficultyMedium:
		return DifficultyMedium, true
	case DifficultyHard:
		return DifficultyHard, true
	}
	return "", false
}

// Concept is a single topic record parsed from a knowledge base file.
// Identity is Name within a subject; re-parsing replaces the whole set.
type Concept struct {
	Name       string   `json:"name"`
	RawBody    string   `json:"-"`
	Definition string   `json:"definition"`
	KeyPoints  []string `json:"key_points"`
	Examples   string   `json:"examples"`
}

// Question is one interview question with its grading rubric.
type Question struct {
	ConceptName  string     `json:"concept_name"`
	Difficulty   Difficulty `json:"difficulty"`
	Text         string     `json:"text"`
	RubricPoints []string   `json:"rubric_points"`
}

// QuestionBank groups questions by concept name and difficulty tier.
type QuestionBank map[string]map[Difficulty][]Question

// Concepts returns the concept names present in the bank.
// Order is not guaranteed.
func (b QuestionBank) Concepts() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	return names
}

// Count returns the total number of questions across all concepts and tiers.
func (b QuestionBank) Count() int {
	n := 0
	for _, tiers := range b {
		for _, qs := range tiers {
			n += len(qs)
		}
	}
	return n
}

// Summary aggregates a finished interview session.
type Summary struct {
	Score  int      `json:"score"`
	Strong []string `json:"strong"`
	Weak   []string `json:"weak"`
}
