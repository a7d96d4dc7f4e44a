package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyloom/internal/config"
	"storyloom/internal/entity"
	"storyloom/internal/facts"
	"storyloom/internal/gen"
	"storyloom/internal/search"
	"storyloom/internal/store"
	"storyloom/internal/store/fs"
)

// fakeGen routes each request by the instruction block at the top of the
// prompt, the way the real stages distinguish themselves.
type fakeGen struct {
	plan  func() (string, error)
	prose func() (string, error)
	facts func() (string, error)
	lore  func() (string, error)
}

func (g *fakeGen) Generate(ctx context.Context, req gen.Request) (string, error) {
	switch {
	case strings.HasPrefix(req.Prompt, "You are the story planner"):
		return g.plan()
	case strings.HasPrefix(req.Prompt, "Write the scene"):
		return g.prose()
	case strings.HasPrefix(req.Prompt, "Extract the state changes"):
		return g.facts()
	case strings.HasPrefix(req.Prompt, "List any world rules"):
		return g.lore()
	}
	return "", fmt.Errorf("unexpected prompt: %.40s", req.Prompt)
}

func respond(s string) func() (string, error) {
	return func() (string, error) { return s, nil }
}

type fakeIndex struct {
	docs map[string]string
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[string]string{}} }

func (f *fakeIndex) Close(ctx context.Context) error { return nil }

func (f *fakeIndex) Upsert(ctx context.Context, kind entity.Kind, id, text string, meta map[string]string) error {
	f.docs[id] = text
	return nil
}

func (f *fakeIndex) Remove(ctx context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, query string, kinds []entity.Kind, limit int) ([]search.Hit, error) {
	var hits []search.Hit
	for id := range f.docs {
		kind, _ := entity.KindOf(id)
		hits = append(hits, search.Hit{ID: id, Kind: kind, Distance: 0.5})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func testConfig() *config.ProjectConfig {
	return &config.ProjectConfig{
		Project:    "test",
		Version:    1,
		Generation: config.GenerationConfig{Model: "test-model", MaxTokens: 500, Timeout: "5s"},
		Story:      config.StoryConfig{SceneMinWords: 5},
		Promotion:  config.PromotionConfig{WindowStart: 10, WindowEnd: 15, MinMentions: 5},
	}
}

func newTestEngine(t *testing.T, g gen.Service) (*Engine, *fs.Client, string) {
	t.Helper()
	projectDir := t.TempDir()
	storeRoot := filepath.Join(projectDir, "world")
	st, err := fs.New(storeRoot)
	require.NoError(t, err)

	e, err := New(Options{
		Store:      st,
		Gen:        g,
		Index:      newFakeIndex(),
		Config:     testConfig(),
		Log:        zap.NewNop(),
		StoreRoot:  storeRoot,
		ProjectDir: projectDir,
	})
	require.NoError(t, err)
	return e, st, projectDir
}

func planJSON(t *testing.T, p map[string]any) string {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return string(data)
}

const longProse = "Mara walked the length of the pier and counted the boats that had not " +
	"come back. The harbormaster's lamp was dark. Somewhere behind her a rope " +
	"creaked against wood and she turned, one hand already in her coat pocket."

func emptyFacts() string { return `{"pov_name": ""}` }
func emptyLore() string  { return `{"lore": []}` }

func TestFirstTickTwoPhaseDispatch(t *testing.T) {
	ctx := context.Background()

	plan := planJSON(t, map[string]any{
		"intention":     "introduce the protagonist and her rival at the harbor",
		"scene_title":   "The Empty Pier",
		"pov_character": "$0",
		"location":      "$2",
		"characters":    []string{"Mara Voss", "Edric Hale"},
		"actions": []map[string]any{
			{"name": "create_character", "args": map[string]any{"name": "Mara Voss", "role": "protagonist"}},
			{"name": "create_character", "args": map[string]any{"name": "Edric Hale", "role": "rival"}},
			{"name": "create_location", "args": map[string]any{"name": "The Empty Pier"}},
			{"name": "create_relationship", "args": map[string]any{
				"character_a": "$0", "character_b": "$1", "type": "rivals"}},
		},
	})

	g := &fakeGen{
		plan:  respond("Here is the plan:\n```json\n" + plan + "\n```"),
		prose: respond(longProse),
		facts: respond(emptyFacts()),
		lore:  respond(emptyLore()),
	}
	e, st, _ := newTestEngine(t, g)
	require.NoError(t, st.SaveState(ctx, &store.State{CurrentTick: 0}))

	res, err := e.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Tick)

	// Placeholders resolved to real identifiers and the relationship got
	// real characters on both sides.
	rels, err := st.ListRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	a, err := st.GetCharacter(ctx, rels[0].CharacterA)
	require.NoError(t, err)
	require.NotNil(t, a)

	state, err := st.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentTick)
	assert.Equal(t, "char_1", state.ActiveCharacter)

	scene, err := st.GetScene(ctx, res.SceneID)
	require.NoError(t, err)
	require.NotNil(t, scene)
	assert.Equal(t, 0, scene.Tick)

	pov, err := st.GetCharacter(ctx, "char_1")
	require.NoError(t, err)
	require.NotNil(t, pov)
	assert.True(t, pov.Active, "the promoted point of view carries the active flag")
}

func steadyTickGen(t *testing.T) *fakeGen {
	plan := planJSON(t, map[string]any{
		"intention":     "Mara confronts the harbormaster",
		"scene_title":   "Dark Lamp",
		"pov_character": "char_1",
		"characters":    []string{"Mara Voss"},
		"actions":       []map[string]any{},
	})
	return &fakeGen{
		plan:  respond(plan),
		prose: respond(longProse),
		facts: respond(emptyFacts()),
		lore:  respond(emptyLore()),
	}
}

func seedRunningState(t *testing.T, st *fs.Client, tick int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.SaveCharacter(ctx, &entity.Character{
		Meta: entity.Meta{ID: "char_1"}, FirstName: "Mara", FamilyName: "Voss", Active: true,
	}))
	require.NoError(t, st.SaveState(ctx, &store.State{CurrentTick: tick, ActiveCharacter: "char_1"}))
}

func TestTickRetryAfterCrashBeforeAdvance(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine(t, steadyTickGen(t))
	seedRunningState(t, st, 1)

	_, err := e.RunTick(ctx)
	require.NoError(t, err)

	// Simulate a crash after commit but before the counter advanced: roll
	// the persisted counter back and run the same tick again.
	state, err := st.LoadState(ctx)
	require.NoError(t, err)
	state.CurrentTick = 1
	require.NoError(t, st.SaveState(ctx, state))

	res, err := e.RunTick(ctx)
	require.NoError(t, err)

	// The retry allocated a fresh scene identifier instead of colliding
	// with the one the crashed run already wrote.
	ids, err := st.ListIDs(ctx, entity.KindScene)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.Contains(t, ids, res.SceneID)

	state, err = st.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentTick)
}

func TestEvaluateFailureWritesFailureRecord(t *testing.T) {
	ctx := context.Background()
	g := steadyTickGen(t)
	g.prose = respond("Too short.")
	e, st, projectDir := newTestEngine(t, g)
	seedRunningState(t, st, 1)

	_, err := e.RunTick(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene rejected")

	// Counter untouched; the next run retries tick 1.
	state, err := st.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentTick)

	data, err := os.ReadFile(filepath.Join(projectDir, "failures", "tick_1.json"))
	require.NoError(t, err)
	var rec FailureRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, 1, rec.Tick)
	assert.Equal(t, "validation", rec.Error.Kind)
	assert.NotEmpty(t, rec.RunID)
	assert.Contains(t, rec.Error.Trace, StageEvaluate)
	require.NotNil(t, rec.Plan)
	assert.Equal(t, "Dark Lamp", rec.Plan.SceneTitle)
}

func TestExtractFactsDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	g := steadyTickGen(t)
	factCalls := 0
	g.facts = func() (string, error) {
		factCalls++
		return "", fmt.Errorf("%w: model unavailable", gen.ErrProvider)
	}
	e, st, _ := newTestEngine(t, g)
	seedRunningState(t, st, 1)

	res, err := e.RunTick(ctx)
	require.NoError(t, err, "a failed extraction must not fail the tick")
	assert.Equal(t, 2, factCalls, "extraction retries exactly once")

	scene, err := st.GetScene(ctx, res.SceneID)
	require.NoError(t, err)
	require.NotNil(t, scene, "the scene commits even when extraction degrades")
}

func TestProseFailureDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	g := steadyTickGen(t)
	g.prose = func() (string, error) {
		return "", fmt.Errorf("%w: deadline exceeded", gen.ErrTimeout)
	}
	e, st, projectDir := newTestEngine(t, g)
	seedRunningState(t, st, 1)

	_, err := e.RunTick(ctx)
	require.Error(t, err)

	ids, err := st.ListIDs(ctx, entity.KindScene)
	require.NoError(t, err)
	assert.Empty(t, ids)

	data, err := os.ReadFile(filepath.Join(projectDir, "failures", "tick_1.json"))
	require.NoError(t, err)
	var rec FailureRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "timeout", rec.Error.Kind)
}

// loreSaveFilter passes lore writes through only for the identifiers it
// allows.
type loreSaveFilter struct {
	store.Store
	allow map[string]bool
}

func (s *loreSaveFilter) SaveLore(ctx context.Context, l *entity.Lore) error {
	if s.allow[l.ID] {
		return s.Store.SaveLore(ctx, l)
	}
	return fmt.Errorf("disk full")
}

func TestLoreSaveFailureDoesNotFailTick(t *testing.T) {
	ctx := context.Background()
	g := steadyTickGen(t)
	g.lore = respond(`{"lore": [{"content": "Iron disrupts the weave of all charted magic", "type": "rule", "category": "magic"}]}`)

	projectDir := t.TempDir()
	storeRoot := filepath.Join(projectDir, "world")
	st, err := fs.New(storeRoot)
	require.NoError(t, err)

	existing := &entity.Lore{
		Meta:     entity.Meta{ID: "lore_1"},
		Type:     entity.LoreRule,
		Category: "magic",
		Content:  "Iron disrupts the weave of charted magic",
	}
	require.NoError(t, st.SaveLore(ctx, existing))
	index := newFakeIndex()
	require.NoError(t, index.Upsert(ctx, entity.KindLore, "lore_1", existing.Content, nil))

	e, err := New(Options{
		Store:      &loreSaveFilter{Store: st, allow: map[string]bool{"lore_1": true}},
		Gen:        g,
		Index:      index,
		Config:     testConfig(),
		Log:        zap.NewNop(),
		StoreRoot:  storeRoot,
		ProjectDir: projectDir,
	})
	require.NoError(t, err)
	seedRunningState(t, st, 1)

	res, err := e.RunTick(ctx)
	require.NoError(t, err, "a dropped lore item must not fail a committed tick")

	state, err := st.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentTick)

	scene, err := st.GetScene(ctx, res.SceneID)
	require.NoError(t, err)
	require.NotNil(t, scene)

	// The new record never persisted, so the existing contradiction
	// counterpart must not point at it.
	kept, err := st.GetLore(ctx, "lore_1")
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Empty(t, kept.PotentialContradictions)

	ids, err := st.ListIDs(ctx, entity.KindLore)
	require.NoError(t, err)
	assert.Equal(t, []string{"lore_1"}, ids)
}

func TestPOVForkTransfersActiveFlag(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine(t, steadyTickGen(t))
	seedRunningState(t, st, 3)

	state, err := st.LoadState(ctx)
	require.NoError(t, err)
	ts := &tickState{
		tick:    3,
		state:   state,
		sceneID: "scene_001",
		sceneFacts: &facts.SceneFacts{
			POVName:    "Sable Quint",
			Characters: []facts.CharacterFacts{{CharacterID: "char_1", Emotional: "uneasy"}},
		},
	}
	require.NoError(t, e.applyFacts(ctx, ts))

	assert.Equal(t, "char_2", ts.state.ActiveCharacter)
	old, err := st.GetCharacter(ctx, "char_1")
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.False(t, old.Active, "the superseded point of view hands the flag over")
	fresh, err := st.GetCharacter(ctx, "char_2")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.True(t, fresh.Active)
}

func seedLoop(t *testing.T, st *fs.Client, id string, mentions int) {
	t.Helper()
	require.NoError(t, st.SaveOpenLoop(context.Background(), &entity.OpenLoop{
		Meta:         entity.Meta{ID: id},
		Description:  "who emptied the harbor",
		Status:       entity.LoopOpen,
		CharacterIDs: []string{"char_1"},
		MentionCount: mentions,
	}))
}

func TestGoalPromotionThreshold(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine(t, steadyTickGen(t))
	seedRunningState(t, st, 10)

	seedLoop(t, st, "loop_1", 4)
	state, err := st.LoadState(ctx)
	require.NoError(t, err)

	// Four mentions is below the bar.
	ts := &tickState{tick: 10, state: state}
	require.NoError(t, e.goalPromotionCheck(ctx, ts))
	assert.Empty(t, ts.state.StoryGoals)

	// Five promotes on the first eligible tick.
	seedLoop(t, st, "loop_1", 5)
	require.NoError(t, e.goalPromotionCheck(ctx, ts))
	require.Equal(t, []string{"loop_1"}, ts.state.StoryGoals)

	loop, err := st.GetOpenLoop(ctx, "loop_1")
	require.NoError(t, err)
	assert.True(t, loop.IsStoryGoal)

	// Non-reentrant: a louder loop later never displaces the goal.
	seedLoop(t, st, "loop_2", 9)
	require.NoError(t, e.goalPromotionCheck(ctx, ts))
	assert.Equal(t, []string{"loop_1"}, ts.state.StoryGoals)
}

func TestGoalPromotionRespectsWindowAndUserGoal(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine(t, steadyTickGen(t))
	seedRunningState(t, st, 9)
	seedLoop(t, st, "loop_1", 8)

	state, err := st.LoadState(ctx)
	require.NoError(t, err)

	// Outside the window, nothing happens regardless of mentions.
	ts := &tickState{tick: 9, state: state}
	require.NoError(t, e.goalPromotionCheck(ctx, ts))
	assert.Empty(t, ts.state.StoryGoals)

	ts = &tickState{tick: 16, state: state}
	require.NoError(t, e.goalPromotionCheck(ctx, ts))
	assert.Empty(t, ts.state.StoryGoals)

	// A user-specified goal disables promotion entirely.
	state.Foundation.UserStoryGoal = "escape the island"
	ts = &tickState{tick: 12, state: state}
	require.NoError(t, e.goalPromotionCheck(ctx, ts))
	assert.Empty(t, ts.state.StoryGoals)
	loop, err := st.GetOpenLoop(ctx, "loop_1")
	require.NoError(t, err)
	assert.False(t, loop.IsStoryGoal)
}

func TestParsePlanExtractsFencedJSON(t *testing.T) {
	raw := "Sure! Here is the plan:\n```json\n" +
		`{"intention": "open", "scene_title": "One", "pov_character": "char_1"}` +
		"\n```\nLet me know if you need changes."
	p, err := ParsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "One", p.SceneTitle)

	_, err = ParsePlan("no json here at all")
	assert.Error(t, err)
}

func TestPlaceholderSyntax(t *testing.T) {
	assert.True(t, isPlaceholder("$0"))
	assert.True(t, isPlaceholder("$12"))
	assert.False(t, isPlaceholder("char_1"))
	assert.False(t, isPlaceholder("$"))
	assert.False(t, isPlaceholder("$x"))
	assert.Equal(t, 12, placeholderIndex("$12"))
}
