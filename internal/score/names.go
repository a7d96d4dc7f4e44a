package score

import "strings"

// SameDisplayName decides whether two character names refer to the same
// person. A single-token name matches the first or last token of a fuller
// one, so "Alice" and "Alice Smith" agree while "Alice Smith" and
// "Bob Johnson" do not.
func SameDisplayName(a, b string) bool {
	na := normalizeName(a)
	nb := normalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}

	ta := strings.Fields(na)
	tb := strings.Fields(nb)
	if len(ta) == 1 {
		return ta[0] == tb[0] || ta[0] == tb[len(tb)-1]
	}
	if len(tb) == 1 {
		return tb[0] == ta[0] || tb[0] == ta[len(ta)-1]
	}
	return false
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\'', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
