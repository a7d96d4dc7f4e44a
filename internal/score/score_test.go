package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"storyloom/internal/entity"
)

func TestEvaluateScene(t *testing.T) {
	t.Run("empty prose is a hard failure", func(t *testing.T) {
		ev := EvaluateScene("   ", 100, nil)
		assert.True(t, ev.Failed())
	})

	t.Run("short prose is a hard failure", func(t *testing.T) {
		ev := EvaluateScene("A few words only.", 100, nil)
		assert.True(t, ev.Failed())
	})

	t.Run("missing planned character is a warning not a failure", func(t *testing.T) {
		text := strings.Repeat("Alice walked through the quiet market stalls. ", 30)
		ev := EvaluateScene(text, 100, []string{"Alice Smith", "Bob Johnson"})
		assert.False(t, ev.Failed())
		assert.Len(t, ev.Warnings, 1)
		assert.Contains(t, ev.Warnings[0], "Bob Johnson")
	})
}

func TestTensionScore(t *testing.T) {
	calm := strings.Repeat("The meadow lay quiet under the afternoon sun. ", 20)
	level, category := TensionScore(calm)
	assert.LessOrEqual(t, level, 2)
	assert.Equal(t, entity.TensionCalm, category)

	tense := strings.Repeat("Blood on the blade! She had to run, fear in every step, fire behind her. ", 20)
	level, category = TensionScore(tense)
	assert.Greater(t, level, 5)
	assert.NotEqual(t, entity.TensionCalm, category)
}

func TestTensionCategoryFor(t *testing.T) {
	assert.Equal(t, entity.TensionCalm, TensionCategoryFor(0))
	assert.Equal(t, entity.TensionRising, TensionCategoryFor(4))
	assert.Equal(t, entity.TensionHigh, TensionCategoryFor(7))
	assert.Equal(t, entity.TensionClimactic, TensionCategoryFor(10))
}

func TestSameDisplayName(t *testing.T) {
	assert.True(t, SameDisplayName("Alice Smith", "Alice Smith"))
	assert.True(t, SameDisplayName("alice  smith", "Alice Smith"))
	assert.True(t, SameDisplayName("Alice", "Alice Smith"))
	assert.True(t, SameDisplayName("Smith", "Alice Smith"))
	assert.False(t, SameDisplayName("Alice Smith", "Bob Johnson"))
	assert.False(t, SameDisplayName("Alice Smith", "Alice Johnson"))
	assert.False(t, SameDisplayName("", "Alice"))
}

func TestCandidateContradiction(t *testing.T) {
	a := "Iron disrupts the weave of charted magic near running water"
	b := "The weave of charted magic is strengthened by iron"
	assert.True(t, CandidateContradiction("magic", a, "magic", b))

	// Different category never matches.
	assert.False(t, CandidateContradiction("magic", a, "geography", b))

	// Too little overlap.
	assert.False(t, CandidateContradiction("magic", a, "magic", "Dragons sleep for a century"))

	// Empty category never matches.
	assert.False(t, CandidateContradiction("", a, "", b))
}
