package engine

import (
	"fmt"
	"strings"
)

const planInstructions = `You are the story planner. Decide what the next scene is about and which
world changes prepare for it. Respond with a single JSON object:
{
  "intention": "what this scene accomplishes for the story",
  "scene_title": "short title",
  "pov_character": "character identifier",
  "location": "location identifier",
  "characters": ["display names on stage"],
  "beats": ["ordered bullet points the scene should hit"],
  "tension_target": "calm|rising|high|climactic",
  "actions": [{"name": "operation", "args": {...}}]
}
Available operations: create_character(name, role?, description?),
create_location(name, description?, atmosphere?), generate_name(kind),
create_relationship(character_a, character_b, type, status?, intensity?),
update_relationship(character_a, character_b, status?, event?),
add_open_loop(description, category?, importance?, character_ids?),
resolve_open_loop(loop_id, summary?),
update_character_state(character_id, location_id?, emotional?, add_goals?),
add_lore(content, type, category?), search_world(query, kinds?, limit?).`

const firstTickInstructions = `This is the opening scene; the world is empty. Create the protagonist and
the opening location first. Refer to entities you are creating with "$N"
where N is the index of the action that creates them, e.g.
"pov_character": "$0" for the character made by the first action.`

func (e *Engine) planPrompt(t *tickState) string {
	var b strings.Builder
	b.WriteString(planInstructions)
	if t.tick == 0 {
		b.WriteString("\n\n")
		b.WriteString(firstTickInstructions)
	}
	fmt.Fprintf(&b, "\n\nTick %d.\n\n%s", t.tick, t.worldContext)
	return b.String()
}

func (e *Engine) prosePrompt(t *tickState) string {
	var b strings.Builder
	b.WriteString("Write the scene in full prose, third person limited, past tense.\n")
	fmt.Fprintf(&b, "Title: %s\n", t.plan.SceneTitle)
	fmt.Fprintf(&b, "Intention: %s\n", t.plan.Intention)
	if len(t.plan.Beats) > 0 {
		fmt.Fprintf(&b, "Beats:\n  %s\n", strings.Join(t.plan.Beats, "\n  "))
	}
	if t.plan.TensionTarget != "" {
		fmt.Fprintf(&b, "Tension: %s\n", t.plan.TensionTarget)
	}
	fmt.Fprintf(&b, "Minimum length: %d words.\n\n%s", e.cfg.Story.SceneMinWords, t.worldContext)
	return b.String()
}

func (e *Engine) factsPrompt(t *tickState) string {
	var b strings.Builder
	b.WriteString(`Extract the state changes this scene established. Respond with a single
JSON object:
{
  "pov_name": "name the prose uses for the point-of-view character",
  "characters": [{"character_id": "", "name": "", "location_id": "",
                  "emotional": "", "physical": "", "inventory": [],
                  "goals": [], "beliefs": [], "summary": ""}],
  "locations": [{"location_id": "", "description": "", "atmosphere": "",
                 "features": [], "summary": ""}],
  "relationships": [{"character_a": "", "character_b": "", "type": "",
                     "status": "", "intensity": 0, "event": ""}],
  "new_loops": [{"description": "", "category": "", "importance": ""}],
  "resolutions": [{"loop_id": "", "summary": ""}]
}
Report only what the prose actually changed. Omit empty sections.`)
	fmt.Fprintf(&b, "\n\n%s\n\nScene:\n%s", t.worldContext, t.prose)
	return b.String()
}

func (e *Engine) lorePrompt(t *tickState) string {
	var b strings.Builder
	b.WriteString(`List any world rules, constraints or established facts this scene
introduced. Respond with a single JSON object:
{"lore": [{"content": "", "type": "rule|fact|constraint|capability|limitation",
           "category": "", "importance": "", "tags": []}]}
Only durable truths about how the world works; no plot events. An empty
list is a valid answer.`)
	fmt.Fprintf(&b, "\n\nScene:\n%s", t.prose)
	return b.String()
}
