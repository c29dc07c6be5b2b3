// Package kb parses plain-text knowledge base and question bank files
// into concept and question records.
//
// Knowledge base files contain concept blocks delimited by a literal
// "--- CONCEPT: <name> ---" marker, with optional Definition, Key Points,
// Explanation and Examples sections. Question bank files contain
// "CONCEPT: <name>" blocks with "LEVEL: <tier>" sub-blocks, each holding
// one "QUESTION: <text>" line and zero or more "* <rubric point>" lines.
package kb

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/vineelkrish/vivabot/internal/model"
)

const conceptMarker = "--- CONCEPT:"

// UnknownConcept names blocks whose header could not be parsed.
// Malformed blocks degrade to this rather than failing the parse.
const UnknownConcept = "Unknown Concept"

var (
	conceptNameRe = regexp.MustCompile(`---\s*CONCEPT:\s*(.*?)\s*---`)
	sectionRe     = regexp.MustCompile(`(?i)^(definition|explanation|examples?|key points)\s*:\s*(.*)`)
	bulletRe      = regexp.MustCompile(`^[-*•]\s*`)
	numberedRe    = regexp.MustCompile(`^\d+\.\s+`)
	questionRe    = regexp.MustCompile(`^QUESTION:\s*(.*)`)
)

// LoadFile reads a knowledge base or question bank file.
// A missing file is an immediate error; retrieval never defers this to
// the first query.
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load knowledge file: %w", err)
	}
	return string(data), nil
}

// ParseConcepts splits raw knowledge base text into concept records.
// Any text before the first concept marker is discarded. Blocks without a
// recognizable name become "Unknown Concept" records.
func ParseConcepts(text string) []model.Concept {
	parts := strings.Split(text, conceptMarker)
	if len(parts) < 2 {
		return nil
	}

	var concepts []model.Concept
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "" {
			continue
		}
		block := conceptMarker + part
		concepts = append(concepts, parseConceptBlock(block))
	}
	return concepts
}

func parseConceptBlock(block string) model.Concept {
	c := model.Concept{
		Name:    UnknownConcept,
		RawBody: strings.TrimSpace(block),
	}
	if m := conceptNameRe.FindStringSubmatch(block); m != nil && m[1] != "" {
		c.Name = m[1]
	}

	body := conceptNameRe.ReplaceAllString(block, "")

	var defLines, exLines []string
	section := ""
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := sectionRe.FindStringSubmatch(line); m != nil {
			section = strings.ToLower(m[1])
			if rest := strings.TrimSpace(m[2]); rest != "" {
				switch section {
				case "definition", "explanation":
					defLines = append(defLines, rest)
				case "example", "examples":
					exLines = append(exLines, rest)
				case "key points":
					c.KeyPoints = append(c.KeyPoints, stripBullet(rest))
				}
			}
			continue
		}

		if bulletRe.MatchString(line) {
			point := stripBullet(line)
			if section == "key points" && point != "" {
				c.KeyPoints = append(c.KeyPoints, point)
			}
			continue
		}

		switch section {
		case "definition", "explanation":
			defLines = append(defLines, line)
		case "example", "examples":
			exLines = append(exLines, line)
		}
	}

	c.Definition = strings.Join(defLines, " ")
	c.Examples = strings.Join(exLines, " ")
	return c
}

// NormalizedBody flattens a concept block into one label-free paragraph:
// the header is dropped, section labels are stripped but their content
// kept, and bullet or numbered markers are removed. All lines join with
// single spaces so definition, explanation and key points stay in one
// semantic unit. Scoring the sections independently produced noticeably
// weaker matches.
func NormalizedBody(block string) string {
	body := conceptNameRe.ReplaceAllString(block, "")

	var collected []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			line = strings.TrimSpace(m[2])
			if line == "" {
				continue
			}
		}
		line = stripBullet(line)
		line = numberedRe.ReplaceAllString(line, "")
		if line != "" {
			collected = append(collected, line)
		}
	}
	return strings.Join(collected, " ")
}

// SemanticText builds the string a concept is embedded from.
func SemanticText(c model.Concept) string {
	return c.Name + ". " + NormalizedBody(c.RawBody)
}

func stripBullet(line string) string {
	return strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
}

// ParseQuestions splits raw question bank text into a bank keyed by
// concept name and difficulty. An entry without a QUESTION line is
// silently dropped; an unrecognized LEVEL name skips the whole sub-block
// with a warning.
func ParseQuestions(text string) model.QuestionBank {
	bank := model.QuestionBank{}

	blocks := strings.Split(text, "CONCEPT:")
	for _, block := range blocks[1:] {
		lines := strings.SplitN(strings.TrimSpace(block), "\n", 2)
		concept := strings.TrimSpace(lines[0])
		if concept == "" {
			continue
		}

		tiers := map[model.Difficulty][]model.Question{}
		for _, d := range model.Difficulties {
			tiers[d] = nil
		}

		entries := strings.Split(block, "LEVEL:")
		for _, entry := range entries[1:] {
			entryLines := strings.Split(strings.TrimSpace(entry), "\n")
			level, ok := model.ParseDifficulty(entryLines[0])
			if !ok {
				slog.Warn("skipping question block with unknown level",
					"concept", concept, "level", strings.TrimSpace(entryLines[0]))
				continue
			}

			q := model.Question{ConceptName: concept, Difficulty: level}
			for _, line := range entryLines[1:] {
				line = strings.TrimSpace(line)
				switch {
				case questionRe.MatchString(line):
					q.Text = strings.TrimSpace(questionRe.FindStringSubmatch(line)[1])
				case strings.HasPrefix(line, "*"):
					if point := stripBullet(line); point != "" {
						q.RubricPoints = append(q.RubricPoints, point)
					}
				}
			}

			// No question line means nothing to ask; drop the entry.
			if q.Text == "" {
				continue
			}
			tiers[level] = append(tiers[level], q)
		}

		bank[concept] = tiers
	}

	return bank
}
