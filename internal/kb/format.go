package kb

import (
	"regexp"
	"strings"

	"github.com/vineelkrish/vivabot/internal/model"
)

var trailingDashesRe = regexp.MustCompile(`-{2,}`)

// FormatConcept renders a concept block for display or voice output:
// title line first, then section content with labels removed and list
// markers stripped (the presentation layer adds its own bullets).
func FormatConcept(c model.Concept) string {
	var formatted []string
	section := ""

	for _, line := range strings.Split(c.RawBody, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(strings.ToLower(line), strings.ToLower(conceptMarker)) {
			title := line[strings.Index(line, ":")+1:]
			title = strings.TrimSpace(trailingDashesRe.ReplaceAllString(title, ""))
			if title == "" {
				title = c.Name
			}
			formatted = append(formatted, title)
			section = ""
			continue
		}

		if m := sectionRe.FindStringSubmatch(line); m != nil {
			section = strings.ToLower(m[1])
			// The key points label itself is noise; its bullets follow.
			if section != "key points" {
				if content := strings.TrimSpace(m[2]); content != "" {
					formatted = append(formatted, content)
				}
			}
			continue
		}

		if bulletRe.MatchString(line) {
			formatted = append(formatted, stripBullet(line))
			continue
		}

		if numberedRe.MatchString(line) {
			formatted = append(formatted, numberedRe.ReplaceAllString(line, ""))
			continue
		}

		switch section {
		case "definition", "explanation", "example", "examples":
			formatted = append(formatted, line)
		}
	}

	if len(formatted) == 0 {
		return c.Name
	}
	return strings.Join(formatted, "\n")
}
