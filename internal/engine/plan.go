package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"storyloom/internal/actions"
)

// Plan is the structured intention the planning stage produces: what the
// next scene is about and the ordered operations that prepare the world
// for it.
type Plan struct {
	Intention     string   `json:"intention"`
	SceneTitle    string   `json:"scene_title"`
	POVCharacter  string   `json:"pov_character"`
	Location      string   `json:"location,omitempty"`
	Characters    []string `json:"characters,omitempty"`
	Beats         []string `json:"beats,omitempty"`
	TensionTarget string   `json:"tension_target,omitempty"`
	PlotBeatID    string   `json:"plot_beat_id,omitempty"`

	Actions []actions.Action `json:"actions,omitempty"`
}

// ParsePlan decodes a plan from raw model output. Models wrap JSON in
// prose and code fences often enough that we extract the outermost object
// instead of trusting the whole response.
func ParsePlan(raw string) (*Plan, error) {
	body, err := extractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	var p Plan
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	return &p, nil
}

func (p *Plan) validate() error {
	if strings.TrimSpace(p.Intention) == "" {
		return fmt.Errorf("plan has no intention")
	}
	if strings.TrimSpace(p.SceneTitle) == "" {
		return fmt.Errorf("plan has no scene title")
	}
	if strings.TrimSpace(p.POVCharacter) == "" {
		return fmt.Errorf("plan names no point-of-view character")
	}
	return nil
}

// isPlaceholder reports whether a plan value refers to the result of an
// earlier action instead of an allocated identifier. "$2" means the
// identifier returned by action index 2.
func isPlaceholder(v string) bool {
	if len(v) < 2 || v[0] != '$' {
		return false
	}
	for _, r := range v[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func placeholderIndex(v string) int {
	n := 0
	for _, r := range v[1:] {
		n = n*10 + int(r-'0')
	}
	return n
}

// substitutePlaceholders rewrites every "$N" reference in the plan to the
// identifier the Nth action produced. Called between the entity-generation
// sub-phase and the remaining operations on the first tick.
func (p *Plan) substitutePlaceholders(results []map[string]any) error {
	resolve := func(v string) (string, error) {
		if !isPlaceholder(v) {
			return v, nil
		}
		n := placeholderIndex(v)
		if n >= len(results) {
			return "", fmt.Errorf("placeholder %q refers to action %d, only %d completed", v, n, len(results))
		}
		id, ok := results[n]["id"].(string)
		if !ok {
			return "", fmt.Errorf("placeholder %q: action %d produced no identifier", v, n)
		}
		return id, nil
	}

	var err error
	if p.POVCharacter, err = resolve(p.POVCharacter); err != nil {
		return err
	}
	if p.Location, err = resolve(p.Location); err != nil {
		return err
	}
	for i, action := range p.Actions {
		for key, val := range action.Args {
			switch v := val.(type) {
			case string:
				resolved, rErr := resolve(v)
				if rErr != nil {
					return rErr
				}
				p.Actions[i].Args[key] = resolved
			case []any:
				for j, item := range v {
					if s, ok := item.(string); ok {
						resolved, rErr := resolve(s)
						if rErr != nil {
							return rErr
						}
						v[j] = resolved
					}
				}
			}
		}
	}
	return nil
}

// extractJSONObject returns the outermost balanced JSON object in raw,
// skipping braces inside string literals.
func extractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}
