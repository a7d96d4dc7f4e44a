package facts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyloom/internal/entity"
	"storyloom/internal/store/fs"
)

func newTestApplier(t *testing.T) (*Applier, *fs.Client) {
	t.Helper()
	st, err := fs.New(t.TempDir())
	require.NoError(t, err)
	return NewApplier(st, zap.NewNop()), st
}

func seedCharacter(t *testing.T, st *fs.Client, id, first, family string) {
	t.Helper()
	require.NoError(t, st.SaveCharacter(context.Background(), &entity.Character{
		Meta:       entity.Meta{ID: id},
		FirstName:  first,
		FamilyName: family,
	}))
}

func TestApplyScalarReplaceRecordsHistory(t *testing.T) {
	ctx := context.Background()
	a, st := newTestApplier(t)
	seedCharacter(t, st, "char_1", "Alice", "Smith")

	res := a.Apply(ctx, 3, "scene_003", "", &SceneFacts{
		Characters: []CharacterFacts{{
			CharacterID: "char_1",
			Emotional:   "wary",
		}},
	})
	assert.Equal(t, 1, res.CharactersUpdated)

	ch, err := st.GetCharacter(ctx, "char_1")
	require.NoError(t, err)
	assert.Equal(t, "wary", ch.State.Emotional)
	require.Len(t, ch.History, 1)
	assert.Equal(t, 3, ch.History[0].Tick)
	assert.Equal(t, "scene_003", ch.History[0].SceneID)
	assert.Contains(t, ch.History[0].ChangedFields, "emotional")
}

func TestApplyListAppendIdempotent(t *testing.T) {
	ctx := context.Background()
	a, st := newTestApplier(t)
	seedCharacter(t, st, "char_1", "Alice", "Smith")

	diff := &SceneFacts{
		Characters: []CharacterFacts{{
			CharacterID: "char_1",
			Inventory:   []string{"brass key", "map fragment"},
		}},
	}

	res := a.Apply(ctx, 1, "scene_001", "", diff)
	assert.Equal(t, 1, res.CharactersUpdated)

	// Re-applying the same list fact must not duplicate entries or grow
	// history.
	res = a.Apply(ctx, 2, "scene_002", "", diff)
	assert.Equal(t, 0, res.CharactersUpdated)

	ch, err := st.GetCharacter(ctx, "char_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"brass key", "map fragment"}, ch.State.Inventory)
	assert.Len(t, ch.History, 1)
}

func TestApplyHistoryRecordsDeltaOnly(t *testing.T) {
	ctx := context.Background()
	a, st := newTestApplier(t)
	seedCharacter(t, st, "char_1", "Alice", "Smith")

	a.Apply(ctx, 1, "scene_001", "", &SceneFacts{
		Characters: []CharacterFacts{{CharacterID: "char_1", Inventory: []string{"brass key"}}},
	})
	res := a.Apply(ctx, 2, "scene_002", "", &SceneFacts{
		Characters: []CharacterFacts{{CharacterID: "char_1", Inventory: []string{"brass key", "lantern"}}},
	})
	assert.Equal(t, 1, res.CharactersUpdated)

	ch, err := st.GetCharacter(ctx, "char_1")
	require.NoError(t, err)
	require.Len(t, ch.History, 2)
	assert.Contains(t, ch.History[1].Summary, "lantern")
	assert.NotContains(t, ch.History[1].Summary, "brass key")
}

func TestPOVMismatchForksNewCharacter(t *testing.T) {
	ctx := context.Background()
	a, st := newTestApplier(t)
	seedCharacter(t, st, "char_1", "Alice", "Smith")

	alicePath := filepath.Join(st.Root(), "characters", "char_1.json")
	before, err := os.ReadFile(alicePath)
	require.NoError(t, err)

	res := a.Apply(ctx, 5, "scene_005", "char_1", &SceneFacts{
		POVName: "Bob Johnson",
		Characters: []CharacterFacts{{
			CharacterID: "char_1",
			Emotional:   "determined",
			Inventory:   []string{"rifle"},
		}},
	})

	assert.Equal(t, 1, res.CharactersCreated)
	assert.Equal(t, 0, res.CharactersUpdated)
	require.NotEmpty(t, res.NewPOVCharacterID)
	assert.NotEqual(t, "char_1", res.NewPOVCharacterID)

	// The stored character must be byte-for-byte untouched.
	after, err := os.ReadFile(alicePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	bob, err := st.GetCharacter(ctx, res.NewPOVCharacterID)
	require.NoError(t, err)
	require.NotNil(t, bob)
	assert.Equal(t, "Bob Johnson", bob.DisplayName())
	assert.True(t, bob.Active)
	assert.Equal(t, "determined", bob.State.Emotional)
	assert.Equal(t, []string{"rifle"}, bob.State.Inventory)
}

func TestPOVNameAgreementUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	a, st := newTestApplier(t)
	seedCharacter(t, st, "char_1", "Alice", "Smith")

	// A bare first name still refers to the same character.
	res := a.Apply(ctx, 5, "scene_005", "char_1", &SceneFacts{
		POVName: "Alice",
		Characters: []CharacterFacts{{
			CharacterID: "char_1",
			Emotional:   "relieved",
		}},
	})
	assert.Equal(t, 1, res.CharactersUpdated)
	assert.Equal(t, 0, res.CharactersCreated)
	assert.Empty(t, res.NewPOVCharacterID)
}

func TestRelationshipRequiresBothCharacters(t *testing.T) {
	ctx := context.Background()
	a, st := newTestApplier(t)
	seedCharacter(t, st, "char_1", "Alice", "Smith")

	res := a.Apply(ctx, 1, "scene_001", "", &SceneFacts{
		Relationships: []RelationshipFacts{{
			CharacterA: "char_1",
			CharacterB: "char_2",
			Type:       "rivals",
		}},
	})
	assert.Equal(t, 0, res.RelationshipsUpdated)

	rels, err := st.ListRelationships(ctx)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRelationshipCreateThenUpdateKeepsOneRecord(t *testing.T) {
	ctx := context.Background()
	a, st := newTestApplier(t)
	seedCharacter(t, st, "char_1", "Alice", "Smith")
	seedCharacter(t, st, "char_2", "Bob", "Johnson")

	five := 5
	res := a.Apply(ctx, 1, "scene_001", "", &SceneFacts{
		Relationships: []RelationshipFacts{{
			CharacterA: "char_1",
			CharacterB: "char_2",
			Type:       "allies",
			Status:     "trusting",
			Intensity:  &five,
		}},
	})
	assert.Equal(t, 1, res.RelationshipsUpdated)

	// Reversed pair order must update the same record.
	res = a.Apply(ctx, 2, "scene_002", "", &SceneFacts{
		Relationships: []RelationshipFacts{{
			CharacterA: "char_2",
			CharacterB: "char_1",
			Status:     "strained",
			Event:      "the argument at the docks",
		}},
	})
	assert.Equal(t, 1, res.RelationshipsUpdated)

	rels, err := st.ListRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "strained", rels[0].Status)
	require.Len(t, rels[0].History, 2)
	assert.Contains(t, rels[0].History[1].StatusChange, "strained")
}

func TestNewLoopsAndResolutions(t *testing.T) {
	ctx := context.Background()
	a, st := newTestApplier(t)

	res := a.Apply(ctx, 1, "scene_001", "", &SceneFacts{
		NewLoops: []NewLoop{
			{Description: "who sent the letter", Category: "mystery", CharacterIDs: []string{"char_1"}},
			{Description: ""},
		},
	})
	assert.Equal(t, 1, res.LoopsCreated)

	loops, err := st.ListOpenLoops(ctx)
	require.NoError(t, err)
	require.Len(t, loops, 1)
	loopID := loops[0].ID

	res = a.Apply(ctx, 2, "scene_002", "", &SceneFacts{
		Resolutions: []LoopResolution{
			{LoopID: loopID, Summary: "the letter came from the harbormaster"},
			{LoopID: "loop_999"},
		},
	})
	assert.Equal(t, 1, res.LoopsResolved)

	loop, err := st.GetOpenLoop(ctx, loopID)
	require.NoError(t, err)
	assert.Equal(t, entity.LoopResolved, loop.Status)
	assert.Equal(t, "scene_002", loop.ResolvedBy)
}

func TestUnknownCharacterByNameIsCreated(t *testing.T) {
	ctx := context.Background()
	a, st := newTestApplier(t)

	res := a.Apply(ctx, 1, "scene_001", "", &SceneFacts{
		Characters: []CharacterFacts{{
			Name:      "Mara Voss",
			Emotional: "curious",
		}},
	})
	assert.Equal(t, 1, res.CharactersCreated)

	all, err := st.ListCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Mara Voss", all[0].DisplayName())
	assert.False(t, all[0].Active)
}
