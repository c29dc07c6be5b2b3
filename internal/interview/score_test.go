package interview

import (
	"context"
	"fmt"
	"testing"
)

type fakeEmbedder struct {
	vecs map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.vecs[text]
		if !ok {
			return nil, fmt.Errorf("no fake vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Ping(context.Context) error { return nil }

// basis returns an 8-dimensional unit vector along the given axis.
func basis(i int) []float32 {
	v := make([]float32, 8)
	v[i] = 1
	return v
}

func TestScoreEmptyRubric(t *testing.T) {
	// No rubric means nothing to grade against: always the neutral
	// score, regardless of the answer, even an empty one. The embedder
	// must not be consulted at all.
	s := NewScorer(nil, 0)

	for _, answer := range []string{"", "a detailed answer", "wrong"} {
		got, err := s.Score(context.Background(), answer, nil)
		if err != nil {
			t.Fatalf("Score(%q): %v", answer, err)
		}
		if got != NeutralScore {
			t.Errorf("Score(%q) = %d, want %d", answer, got, NeutralScore)
		}
	}
}

func TestScoreCoverage(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string][]float32{
		"full":    {1, 0, 0, 0, 0, 0, 0, 0},
		"partial": {1, 1, 0, 0, 0, 0, 0, 0},
		"":        make([]float32, 8),
		"p1":      basis(0),
		"p2":      basis(1),
		"p3":      basis(2),
		"p4":      basis(3),
	}}
	s := NewScorer(emb, 0)

	tests := []struct {
		name   string
		answer string
		rubric []string
		want   int
	}{
		{"all matched", "full", []string{"p1"}, 100},
		{"half matched", "partial", []string{"p1", "p2", "p3", "p4"}, 50},
		{"none matched", "full", []string{"p3", "p4"}, 0},
		{"empty answer scores zero", "", []string{"p1", "p2"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Score(context.Background(), tt.answer, tt.rubric)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreRounding(t *testing.T) {
	emb := &fakeEmbedder{vecs: map[string][]float32{
		"one": basis(0),
		"p1":  basis(0),
		"p2":  basis(1),
		"p3":  basis(2),
	}}
	s := NewScorer(emb, 0)

	// 1 of 3 matched: 33.33 rounds to 33.
	got, err := s.Score(context.Background(), "one", []string{"p1", "p2", "p3"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got != 33 {
		t.Errorf("Score() = %d, want 33", got)
	}
}
