package score

import "strings"

// stopwords excluded from overlap counting so shared articles never make
// two lore records look related.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "to": {},
	"and": {}, "or": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"it": {}, "its": {}, "that": {}, "this": {}, "with": {}, "for": {},
	"by": {}, "at": {}, "be": {}, "not": {}, "no": {},
}

const contradictionOverlap = 3

// CandidateContradiction flags two lore records as potentially
// contradictory: same category and enough informative-token overlap that
// they plausibly speak about the same rule. Lexical only; no semantic
// reasoning is attempted.
func CandidateContradiction(categoryA, contentA, categoryB, contentB string) bool {
	if strings.TrimSpace(categoryA) == "" || !strings.EqualFold(categoryA, categoryB) {
		return false
	}
	return tokenOverlap(contentA, contentB) >= contradictionOverlap
}

func tokenOverlap(a, b string) int {
	seen := map[string]struct{}{}
	for _, tok := range informativeTokens(a) {
		seen[tok] = struct{}{}
	}
	overlap := 0
	counted := map[string]struct{}{}
	for _, tok := range informativeTokens(b) {
		if _, dup := counted[tok]; dup {
			continue
		}
		if _, ok := seen[tok]; ok {
			overlap++
			counted[tok] = struct{}{}
		}
	}
	return overlap
}

// TopicMentioned reports whether enough of a topic's informative tokens
// appear in the text to count as a mention. Used for open-loop mention
// tracking at commit time.
func TopicMentioned(text, topic string) bool {
	tokens := informativeTokens(topic)
	if len(tokens) == 0 {
		return false
	}
	need := 2
	if len(tokens) < need {
		need = len(tokens)
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			hits++
			if hits >= need {
				return true
			}
		}
	}
	return false
}

func informativeTokens(s string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if len(tok) < 3 {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return out
}
