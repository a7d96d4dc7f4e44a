// Package score holds the stateless heuristics the engine consults: scene
// evaluation, tension scoring, lexical contradiction candidates, and
// display-name comparison. Everything here is a pure function over text so
// the heuristics can be swapped or tested in isolation from the state
// machine.
package score

import (
	"fmt"
	"strings"

	"storyloom/internal/entity"
)

type Evaluation struct {
	// Failures abort the tick; Warnings are recorded and never abort.
	Failures []string
	Warnings []string
}

func (e Evaluation) Failed() bool {
	return len(e.Failures) > 0
}

// EvaluateScene runs the hard and soft checks over committed-candidate
// prose. requiredNames are the display names the plan put on stage.
func EvaluateScene(text string, minWords int, requiredNames []string) Evaluation {
	var ev Evaluation

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		ev.Failures = append(ev.Failures, "prose is empty")
		return ev
	}

	words := WordCount(text)
	if words < minWords {
		ev.Failures = append(ev.Failures, fmt.Sprintf("scene is %d words, minimum is %d", words, minWords))
	}

	lower := strings.ToLower(text)
	for _, name := range requiredNames {
		first := firstToken(name)
		if first == "" {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(first)) {
			ev.Warnings = append(ev.Warnings, fmt.Sprintf("planned character %q never appears", name))
		}
	}

	return ev
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}

var tensionMarkers = []string{
	"blood", "scream", "shatter", "blade", "fire", "dead", "death",
	"panic", "fear", "run", "fight", "chase", "gun", "knife", "storm",
	"collapse", "trap", "betray", "attack", "wound",
}

// TensionScore is a lexical estimate of a scene's tension on a 0–10 scale
// with its category bucket. It counts marker density, not meaning.
func TensionScore(text string) (int, entity.TensionCategory) {
	words := WordCount(text)
	if words == 0 {
		return 0, entity.TensionCalm
	}

	lower := strings.ToLower(text)
	hits := 0
	for _, marker := range tensionMarkers {
		hits += strings.Count(lower, marker)
	}
	hits += strings.Count(text, "!")

	// Density per 100 words, clamped to the scale.
	level := hits * 100 / words
	if level > 10 {
		level = 10
	}

	return level, TensionCategoryFor(level)
}

func TensionCategoryFor(level int) entity.TensionCategory {
	switch {
	case level <= 2:
		return entity.TensionCalm
	case level <= 5:
		return entity.TensionRising
	case level <= 8:
		return entity.TensionHigh
	default:
		return entity.TensionClimactic
	}
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
